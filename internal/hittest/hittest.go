// Package hittest answers which annotation, and which part of it, lies under
// the pointer.
package hittest

import (
	"math"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"
)

// DefaultTolerance is the handle pick radius in display pixels.
const DefaultTolerance = 10.0

// Handle names one of the four cardinal points of an ellipse.
type Handle int

const (
	NoHandle Handle = iota
	Top
	Bottom
	Left
	Right
)

func (h Handle) String() string {
	switch h {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Action is what a press at some point would do to an ellipse.
type Action int

const (
	None Action = iota
	Move
	Resize
	Rotate
)

func (a Action) String() string {
	switch a {
	case Move:
		return "move"
	case Resize:
		return "resize"
	case Rotate:
		return "rotate"
	default:
		return "none"
	}
}

// Hit is the result of Classify. Handle is set only for Resize.
type Hit struct {
	Action Action
	Handle Handle
}

// Handles holds the four ellipse handles in display space.
type Handles struct {
	Top, Bottom, Left, Right viewport.DisplayPoint
}

// Get returns the position of h.
func (hs Handles) Get(h Handle) viewport.DisplayPoint {
	switch h {
	case Top:
		return hs.Top
	case Bottom:
		return hs.Bottom
	case Left:
		return hs.Left
	default:
		return hs.Right
	}
}

// resizeOrder is the order handles are tried in; the first match wins.
var resizeOrder = []Handle{Top, Bottom, Left, Right}

// PointInEllipse reports whether p lies inside the ellipse. The angle is in
// degrees, clockwise on screen. Degenerate axes contain nothing.
func PointInEllipse(p, center, axes geometry.Point2D, angle float64) bool {
	a, b := axes.X, axes.Y
	if a <= 0 || b <= 0 {
		return false
	}
	local := p.RotateAround(center, -angle).Sub(center)
	x, y := local.X/a, local.Y/b
	return x*x+y*y <= 1
}

// PointInPolygon reports whether p lies inside or on the boundary of the ring.
func PointInPolygon(p geometry.Point2D, ring []geometry.Point2D) bool {
	return geometry.PointInPolygon(p, ring)
}

// EllipseHandles returns the cardinal points of a display-space ellipse,
// rotated by angle about its center.
func EllipseHandles(center viewport.DisplayPoint, axes geometry.Point2D, angle float64) Handles {
	c := center.Point2D()
	at := func(dx, dy float64) viewport.DisplayPoint {
		return viewport.DisplayFrom(c.Add(geometry.NewPoint2D(dx, dy)).RotateAround(c, angle))
	}
	return Handles{
		Top:    at(0, -axes.Y),
		Bottom: at(0, axes.Y),
		Left:   at(-axes.X, 0),
		Right:  at(axes.X, 0),
	}
}

// Classify decides what a press at p does to a display-space ellipse:
// resize within tol of any handle, rotate strictly between tol and 2*tol of
// the top handle, move inside the body, otherwise nothing.
func Classify(p, center viewport.DisplayPoint, axes geometry.Point2D, angle, tol float64) Hit {
	hs := EllipseHandles(center, axes, angle)
	pt := p.Point2D()

	for _, h := range resizeOrder {
		if pt.Distance(hs.Get(h).Point2D()) < tol {
			return Hit{Action: Resize, Handle: h}
		}
	}
	if d := pt.Distance(hs.Top.Point2D()); d > tol && d < 2*tol {
		return Hit{Action: Rotate}
	}
	if PointInEllipse(pt, center.Point2D(), axes, angle) {
		return Hit{Action: Move}
	}
	return Hit{}
}

// Near reports whether two display points lie within tol of each other.
func Near(p, q viewport.DisplayPoint, tol float64) bool {
	return math.Hypot(p.X-q.X, p.Y-q.Y) <= tol
}

// DisplayEllipse projects an ellipse into display space. The angle is kept.
func DisplayEllipse(e *annotation.Ellipse, m viewport.Mapper) (viewport.DisplayPoint, geometry.Point2D, float64) {
	p := e.Params()
	return m.ToDisplay(p.Center), m.LengthToDisplay(p.Axes), p.Angle
}

// Contains reports whether the native point p lies inside shape.
func Contains(shape annotation.Shape, p viewport.NativePoint) bool {
	switch s := shape.(type) {
	case *annotation.Ellipse:
		params := s.Params()
		return PointInEllipse(p.Point2D(), params.Center.Point2D(), params.Axes, params.Angle)
	case *annotation.Polygon:
		return PointInPolygon(p.Point2D(), s.Ring())
	}
	return false
}

// Pick returns the first shape, in scan order, containing the display point
// p. Later shapes never take precedence over earlier ones.
func Pick(set *annotation.Set, m viewport.Mapper, p viewport.DisplayPoint) (annotation.Ref, bool) {
	if set == nil || !m.Valid() {
		return annotation.Ref{}, false
	}
	native := m.ToNative(p)

	var found annotation.Ref
	ok := false
	set.Each(func(ref annotation.Ref, _ *annotation.Group, shape annotation.Shape) bool {
		if shape.NativeSize() != m.Native() {
			shape = shape.Clone()
			shape.Rescale(m.Native())
		}
		if Contains(shape, native) {
			found, ok = ref, true
			return false
		}
		return true
	})
	return found, ok
}
