package image

import (
	"image"
	"image/color"

	"ct-labeler/pkg/geometry"

	"github.com/disintegration/imaging"
)

// Adjustment holds the display-only brightness and sharpness settings.
type Adjustment struct {
	Brightness int // 0..100, 50 is neutral
	Sharpness  int // 0 disables sharpening
}

// DefaultAdjustment returns the neutral settings.
func DefaultAdjustment() Adjustment {
	return Adjustment{Brightness: 50}
}

// IsNeutral reports whether a leaves the image unchanged.
func (a Adjustment) IsNeutral() bool {
	return a.Brightness == 50 && a.Sharpness <= 0
}

// laplacian is the high-pass kernel added back onto the image per sharpness step.
var laplacian = [9]float64{
	0, -1, 0,
	-1, 4, -1,
	0, -1, 0,
}

// Adjust applies brightness and sharpness to img. The source is never modified.
func Adjust(img image.Image, a Adjustment) *image.NRGBA {
	out := imaging.Clone(img)

	if a.Brightness != 50 {
		offset := int((float64(a.Brightness) - 50) * 2.55)
		out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
			c.R = clamp8(int(c.R) + offset)
			c.G = clamp8(int(c.G) + offset)
			c.B = clamp8(int(c.B) + offset)
			return c
		})
	}

	if a.Sharpness > 0 {
		var kernel [9]float64
		for i, k := range laplacian {
			kernel[i] = k * float64(a.Sharpness)
		}
		// Convolve3x3 clamps, so only the positive edge response is added.
		high := imaging.Convolve3x3(out, kernel, nil)
		for i := 0; i < len(out.Pix); i += 4 {
			out.Pix[i] = clamp8(int(out.Pix[i]) + int(high.Pix[i]))
			out.Pix[i+1] = clamp8(int(out.Pix[i+1]) + int(high.Pix[i+1]))
			out.Pix[i+2] = clamp8(int(out.Pix[i+2]) + int(high.Pix[i+2]))
		}
	}

	return out
}

// FitDisplay scales img to the display size.
func FitDisplay(img image.Image, display geometry.Size) *image.NRGBA {
	w, h := display.Ints()
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
