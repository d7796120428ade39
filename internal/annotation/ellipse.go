package annotation

import (
	"fmt"
	"math"

	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"
)

// EllipseEncoding tells how an ellipse was authored.
type EllipseEncoding int

const (
	// Canonical ellipses store center, semi-axes and angle.
	Canonical EllipseEncoding = iota
	// TwoPoint ellipses store the two corners of their bounding box and are
	// axis-aligned. They are upgraded to Canonical on first edit or save.
	TwoPoint
)

func (e EllipseEncoding) String() string {
	switch e {
	case Canonical:
		return "canonical"
	case TwoPoint:
		return "two-point"
	default:
		return "unknown"
	}
}

// EllipseParams is the canonical parameter triple of an ellipse.
type EllipseParams struct {
	Center viewport.NativePoint
	Axes   geometry.Point2D // semi-axes: X is a, Y is b
	Angle  float64          // degrees, clockwise on screen
}

// Ellipse is a rotated ellipse annotation.
type Ellipse struct {
	Encoding EllipseEncoding

	// Canonical form
	Center viewport.NativePoint
	Axes   geometry.Point2D
	Angle  float64

	// TwoPoint form
	Corners [2]viewport.NativePoint

	Frame       geometry.Size
	EncodedMask string
}

// NewEllipse creates a canonical ellipse.
func NewEllipse(center viewport.NativePoint, a, b, angle float64, frame geometry.Size) *Ellipse {
	return &Ellipse{
		Encoding: Canonical,
		Center:   center,
		Axes:     geometry.NewPoint2D(a, b),
		Angle:    angle,
		Frame:    frame,
	}
}

// NewTwoPointEllipse creates an ellipse in the legacy bounding-box form.
func NewTwoPointEllipse(p1, p2 viewport.NativePoint, frame geometry.Size) *Ellipse {
	return &Ellipse{
		Encoding: TwoPoint,
		Corners:  [2]viewport.NativePoint{p1, p2},
		Frame:    frame,
	}
}

// EllipseFromBox returns the canonical parameters of the axis-aligned ellipse
// inscribed in the box spanned by p1 and p2.
func EllipseFromBox(p1, p2 viewport.NativePoint) EllipseParams {
	return EllipseParams{
		Center: viewport.NativeFrom(p1.Point2D().Midpoint(p2.Point2D())),
		Axes:   geometry.NewPoint2D(math.Abs(p2.X-p1.X)/2, math.Abs(p2.Y-p1.Y)/2),
	}
}

func (e *Ellipse) Kind() Kind                { return KindEllipse }
func (e *Ellipse) NativeSize() geometry.Size { return e.Frame }
func (e *Ellipse) Mask() string              { return e.EncodedMask }
func (e *Ellipse) SetMask(encoded string)    { e.EncodedMask = encoded }

// Params returns the canonical parameters without changing the encoding.
func (e *Ellipse) Params() EllipseParams {
	if e.Encoding == TwoPoint {
		return EllipseFromBox(e.Corners[0], e.Corners[1])
	}
	return EllipseParams{Center: e.Center, Axes: e.Axes, Angle: e.Angle}
}

// SetParams stores p in canonical form and invalidates the mask.
func (e *Ellipse) SetParams(p EllipseParams) {
	e.Encoding = Canonical
	e.Center = p.Center
	e.Axes = p.Axes
	e.Angle = p.Angle
	e.Corners = [2]viewport.NativePoint{}
	e.EncodedMask = ""
}

// Normalize upgrades a two-point ellipse to canonical form in place.
// It reports whether an upgrade happened. The mask is kept since the
// region is unchanged.
func (e *Ellipse) Normalize() bool {
	if e.Encoding != TwoPoint {
		return false
	}
	p := e.Params()
	e.Encoding = Canonical
	e.Center = p.Center
	e.Axes = p.Axes
	e.Angle = p.Angle
	e.Corners = [2]viewport.NativePoint{}
	return true
}

// Rescale re-projects the ellipse onto another native size.
// Coordinates and axes are scaled per axis; the angle is kept.
func (e *Ellipse) Rescale(to geometry.Size) {
	if e.Frame == to {
		return
	}
	sx, sy := viewport.RescaleFactors(e.Frame, to)
	switch e.Encoding {
	case TwoPoint:
		for i := range e.Corners {
			e.Corners[i] = viewport.Native(e.Corners[i].X*sx, e.Corners[i].Y*sy)
		}
	default:
		e.Center = viewport.Native(e.Center.X*sx, e.Center.Y*sy)
		e.Axes = e.Axes.ScaleXY(sx, sy)
	}
	e.Frame = to
	e.EncodedMask = ""
}

// Validate rejects ellipses with a zero or negative semi-axis.
func (e *Ellipse) Validate() error {
	if e.Frame.IsZero() {
		return fmt.Errorf("ellipse without image size: %w", ErrDegenerateShape)
	}
	p := e.Params()
	if p.Axes.X <= 0 || p.Axes.Y <= 0 {
		return fmt.Errorf("ellipse axes %.1fx%.1f: %w", p.Axes.X, p.Axes.Y, ErrDegenerateShape)
	}
	return nil
}

// Clone returns a deep copy.
func (e *Ellipse) Clone() Shape {
	c := *e
	return &c
}
