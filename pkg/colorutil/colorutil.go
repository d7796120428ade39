// Package colorutil provides shared color utilities for the labeling tool.
package colorutil

import (
	"image/color"
)

// Common overlay colors used throughout the application.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}

	// Preview is the stroke color for shapes still being drawn.
	Preview = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

// GroupPalette is cycled through as new annotation groups are created.
var GroupPalette = []color.RGBA{
	{255, 0, 0, 255},   // Red
	{0, 255, 0, 255},   // Green
	{0, 0, 255, 255},   // Blue
	{255, 255, 0, 255}, // Yellow
	{255, 0, 255, 255}, // Magenta
	{0, 255, 255, 255}, // Cyan
}

// PaletteColor returns the palette entry for the n-th group.
func PaletteColor(n int) color.RGBA {
	if n < 0 {
		n = -n
	}
	return GroupPalette[n%len(GroupPalette)]
}

// RGB returns an opaque color from a triple.
func RGB(rgb [3]uint8) color.RGBA {
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

// Triple returns the R, G, B components of c.
func Triple(c color.RGBA) [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// Blend mixes overlay into base with the given weight (0 keeps base, 1 is overlay).
func Blend(base, overlay color.RGBA, weight float64) color.RGBA {
	if weight <= 0 {
		return base
	}
	if weight >= 1 {
		return overlay
	}
	inv := 1 - weight
	return color.RGBA{
		R: uint8(float64(base.R)*inv + float64(overlay.R)*weight),
		G: uint8(float64(base.G)*inv + float64(overlay.G)*weight),
		B: uint8(float64(base.B)*inv + float64(overlay.B)*weight),
		A: 255,
	}
}
