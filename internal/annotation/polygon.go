package annotation

import (
	"fmt"

	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"
)

// Polygon is a closed ring of vertices. KindPolygon rings have straight edges
// drawn closed; KindClosedCurve rings come from freehand strokes. Both fill
// the same way.
type Polygon struct {
	Shape       Kind
	Points      []viewport.NativePoint // first == last
	Frame       geometry.Size
	EncodedMask string
}

// NewPolygon creates a polygon or closed curve, closing the ring when needed.
func NewPolygon(kind Kind, points []viewport.NativePoint, frame geometry.Size) *Polygon {
	raw := make([]geometry.Point2D, len(points))
	for i, p := range points {
		raw[i] = p.Point2D()
	}
	closed := geometry.CloseRing(raw)

	pts := make([]viewport.NativePoint, len(closed))
	for i, p := range closed {
		pts[i] = viewport.NativeFrom(p)
	}
	return &Polygon{Shape: kind, Points: pts, Frame: frame}
}

func (p *Polygon) Kind() Kind                { return p.Shape }
func (p *Polygon) NativeSize() geometry.Size { return p.Frame }
func (p *Polygon) Mask() string              { return p.EncodedMask }
func (p *Polygon) SetMask(encoded string)    { p.EncodedMask = encoded }

// Closed reports whether the outline is stroked as a closed polygon.
func (p *Polygon) Closed() bool {
	return p.Shape == KindPolygon
}

// Ring returns the vertices as untagged points.
func (p *Polygon) Ring() []geometry.Point2D {
	out := make([]geometry.Point2D, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Point2D()
	}
	return out
}

// Rescale re-projects every vertex onto another native size.
func (p *Polygon) Rescale(to geometry.Size) {
	if p.Frame == to {
		return
	}
	for i, pt := range p.Points {
		p.Points[i] = viewport.Rescale(pt, p.Frame, to)
	}
	p.Frame = to
	p.EncodedMask = ""
}

// Validate rejects rings with fewer than three distinct vertices.
func (p *Polygon) Validate() error {
	if !p.Shape.Valid() || p.Shape == KindEllipse {
		return fmt.Errorf("polygon kind %q: %w", p.Shape, ErrDegenerateShape)
	}
	if p.Frame.IsZero() {
		return fmt.Errorf("polygon without image size: %w", ErrDegenerateShape)
	}
	if n := geometry.DistinctVertices(p.Ring()); n < 3 {
		return fmt.Errorf("polygon with %d distinct vertices: %w", n, ErrDegenerateShape)
	}
	return nil
}

// Clone returns a deep copy.
func (p *Polygon) Clone() Shape {
	c := *p
	c.Points = append([]viewport.NativePoint(nil), p.Points...)
	return &c
}
