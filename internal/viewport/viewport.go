// Package viewport converts coordinates between the native image frame and the
// scaled display viewport the image is shown in.
package viewport

import (
	"errors"
	"fmt"

	"ct-labeler/pkg/geometry"
)

// ErrInvalidViewport is returned when either frame has a zero dimension,
// typically because the display has not been laid out yet.
var ErrInvalidViewport = errors.New("viewport: zero-sized frame")

// NativePoint is a point in full-resolution image coordinates.
type NativePoint struct {
	X, Y float64
}

// DisplayPoint is a point in display viewport coordinates.
type DisplayPoint struct {
	X, Y float64
}

// Native creates a NativePoint.
func Native(x, y float64) NativePoint { return NativePoint{X: x, Y: y} }

// Display creates a DisplayPoint.
func Display(x, y float64) DisplayPoint { return DisplayPoint{X: x, Y: y} }

// Point2D drops the space tag.
func (p NativePoint) Point2D() geometry.Point2D { return geometry.Point2D{X: p.X, Y: p.Y} }

// Point2D drops the space tag.
func (p DisplayPoint) Point2D() geometry.Point2D { return geometry.Point2D{X: p.X, Y: p.Y} }

// NativeFrom tags a raw point as native.
func NativeFrom(p geometry.Point2D) NativePoint { return NativePoint{X: p.X, Y: p.Y} }

// DisplayFrom tags a raw point as display.
func DisplayFrom(p geometry.Point2D) DisplayPoint { return DisplayPoint{X: p.X, Y: p.Y} }

// Mapper holds a validated pair of frame sizes. The zero Mapper is invalid.
type Mapper struct {
	native  geometry.Size
	display geometry.Size
	sx, sy  float64
}

// NewMapper creates a mapper between a native image size and a display size.
func NewMapper(native, display geometry.Size) (Mapper, error) {
	if native.IsZero() || display.IsZero() {
		return Mapper{}, fmt.Errorf("native %vx%v, display %vx%v: %w",
			native.Width, native.Height, display.Width, display.Height, ErrInvalidViewport)
	}
	return Mapper{
		native:  native,
		display: display,
		sx:      display.Width / native.Width,
		sy:      display.Height / native.Height,
	}, nil
}

// Valid reports whether the mapper was built from non-zero sizes.
func (m Mapper) Valid() bool {
	return m.sx != 0 && m.sy != 0
}

// Native returns the native image size.
func (m Mapper) Native() geometry.Size { return m.native }

// Display returns the display viewport size.
func (m Mapper) Display() geometry.Size { return m.display }

// Scale returns the per-axis display/native factors.
func (m Mapper) Scale() (sx, sy float64) { return m.sx, m.sy }

// ToDisplay converts a native point to display space.
func (m Mapper) ToDisplay(p NativePoint) DisplayPoint {
	if !m.Valid() {
		return DisplayPoint(p)
	}
	return DisplayPoint{X: p.X * m.sx, Y: p.Y * m.sy}
}

// ToNative converts a display point to native space.
func (m Mapper) ToNative(p DisplayPoint) NativePoint {
	if !m.Valid() {
		return NativePoint(p)
	}
	return NativePoint{X: p.X / m.sx, Y: p.Y / m.sy}
}

// LengthToDisplay scales a per-axis length pair (radii, offsets) to display
// units. Angles must never be passed through here.
func (m Mapper) LengthToDisplay(v geometry.Point2D) geometry.Point2D {
	if !m.Valid() {
		return v
	}
	return v.ScaleXY(m.sx, m.sy)
}

// LengthToNative scales a per-axis length pair to native units.
func (m Mapper) LengthToNative(v geometry.Point2D) geometry.Point2D {
	if !m.Valid() {
		return v
	}
	return v.ScaleXY(1/m.sx, 1/m.sy)
}

// ToDisplay converts p without building a Mapper. On a zero-sized frame the
// point is returned unchanged together with ErrInvalidViewport.
func ToDisplay(p NativePoint, native, display geometry.Size) (DisplayPoint, error) {
	m, err := NewMapper(native, display)
	if err != nil {
		return DisplayPoint(p), err
	}
	return m.ToDisplay(p), nil
}

// ToNative converts p without building a Mapper. On a zero-sized frame the
// point is returned unchanged together with ErrInvalidViewport.
func ToNative(p DisplayPoint, native, display geometry.Size) (NativePoint, error) {
	m, err := NewMapper(native, display)
	if err != nil {
		return NativePoint(p), err
	}
	return m.ToNative(p), nil
}

// RescaleFactors returns the per-axis factors that re-project geometry
// authored against from onto to. A zero from size yields identity factors.
func RescaleFactors(from, to geometry.Size) (sx, sy float64) {
	if from.IsZero() || to.IsZero() {
		return 1, 1
	}
	return to.Width / from.Width, to.Height / from.Height
}

// Rescale re-projects a native point authored against from onto to.
func Rescale(p NativePoint, from, to geometry.Size) NativePoint {
	sx, sy := RescaleFactors(from, to)
	return NativePoint{X: p.X * sx, Y: p.Y * sy}
}
