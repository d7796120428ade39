package render

import (
	"image"
	"image/color"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/hittest"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/colorutil"
	"ct-labeler/pkg/geometry"
)

// HighlightWeight is how strongly the selected shape is tinted with its group color.
const HighlightWeight = 0.3

// outlineSegments is the number of chords used to stroke an ellipse.
const outlineSegments = 90

// Options controls what Overlay draws besides the outlines.
type Options struct {
	Selected     annotation.Ref
	HasSelection bool
	Labels       bool
	Handles      bool // draw resize handles on a selected ellipse
}

// Overlay strokes every shape of set onto output, which must be display-sized.
// Groups draw in insertion order so later shapes land on top.
func Overlay(output *image.RGBA, set *annotation.Set, m viewport.Mapper, opts Options) {
	if set == nil || !m.Valid() {
		return
	}

	set.Each(func(ref annotation.Ref, g *annotation.Group, shape annotation.Shape) bool {
		selected := opts.HasSelection && ref == opts.Selected
		if selected {
			Highlight(output, shape, m, g.Color)
		}
		Shape(output, shape, m, g.Color)
		if selected && opts.Handles {
			if e, ok := shape.(*annotation.Ellipse); ok {
				drawHandles(output, e, m)
			}
		}
		return true
	})

	if opts.Labels {
		for _, g := range set.Groups() {
			if len(g.Shapes) == 0 {
				continue
			}
			anchor := labelAnchor(g.Shapes[0], m)
			drawLabel(output, g.Name, int(anchor.X), int(anchor.Y), g.Color)
		}
	}
}

// project returns shape expressed in the mapper's native frame.
func project(shape annotation.Shape, m viewport.Mapper) annotation.Shape {
	if shape.NativeSize() == m.Native() {
		return shape
	}
	c := shape.Clone()
	c.Rescale(m.Native())
	return c
}

func displayRing(p *annotation.Polygon, m viewport.Mapper) []geometry.Point2D {
	out := make([]geometry.Point2D, len(p.Points))
	for i, pt := range p.Points {
		out[i] = m.ToDisplay(pt).Point2D()
	}
	return out
}

// Shape strokes one shape with a 1 px line in col.
func Shape(output *image.RGBA, shape annotation.Shape, m viewport.Mapper, col color.RGBA) {
	switch s := project(shape, m).(type) {
	case *annotation.Ellipse:
		center, axes, angle := hittest.DisplayEllipse(s, m)
		outline := geometry.EllipseOutline(center.Point2D(), axes.X, axes.Y, angle, outlineSegments)
		drawPolyline(output, outline, true, col, 1)
	case *annotation.Polygon:
		ring := displayRing(s, m)
		drawPolyline(output, ring, s.Closed(), col, 1)
	}
}

// Highlight tints the display-space interior of shape with col.
func Highlight(output *image.RGBA, shape annotation.Shape, m viewport.Mapper, col color.RGBA) {
	switch s := project(shape, m).(type) {
	case *annotation.Ellipse:
		center, axes, angle := hittest.DisplayEllipse(s, m)
		blendEllipse(output, center.Point2D(), axes, angle, col, HighlightWeight)
	case *annotation.Polygon:
		blendPolygon(output, displayRing(s, m), col, HighlightWeight)
	}
}

func drawHandles(output *image.RGBA, e *annotation.Ellipse, m viewport.Mapper) {
	center, axes, angle := hittest.DisplayEllipse(project(e, m).(*annotation.Ellipse), m)
	hs := hittest.EllipseHandles(center, axes, angle)
	for _, h := range []viewport.DisplayPoint{hs.Top, hs.Bottom, hs.Left, hs.Right} {
		drawSquare(output, int(h.X), int(h.Y), 2, colorutil.White)
	}
	// rotate grip above the top handle
	grip := viewport.DisplayFrom(center.Point2D().Add(geometry.NewPoint2D(0, -axes.Y-1.5*hittest.DefaultTolerance)).RotateAround(center.Point2D(), angle))
	drawSquare(output, int(grip.X), int(grip.Y), 2, colorutil.Yellow)
}

// labelAnchor is where a group's name goes: just above its first shape.
func labelAnchor(shape annotation.Shape, m viewport.Mapper) geometry.Point2D {
	switch s := project(shape, m).(type) {
	case *annotation.Ellipse:
		center, axes, _ := hittest.DisplayEllipse(s, m)
		r := axes.X
		if axes.Y > r {
			r = axes.Y
		}
		return geometry.NewPoint2D(center.X-r, center.Y-r-3)
	case *annotation.Polygon:
		box := geometry.BoundingBox(displayRing(s, m))
		return geometry.NewPoint2D(box.X, box.Y-3)
	}
	return geometry.Point2D{}
}

// PreviewPath strokes an in-progress polyline in the preview color.
func PreviewPath(output *image.RGBA, pts []viewport.DisplayPoint, closed bool) {
	if len(pts) == 0 {
		return
	}
	raw := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		raw[i] = p.Point2D()
	}
	drawPolyline(output, raw, closed, colorutil.Preview, 1)
}

// PreviewEllipse strokes the axis-aligned ellipse inscribed in the box
// spanned by two display corners.
func PreviewEllipse(output *image.RGBA, p1, p2 viewport.DisplayPoint) {
	center := p1.Point2D().Midpoint(p2.Point2D())
	a := (p2.X - p1.X) / 2
	b := (p2.Y - p1.Y) / 2
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a == 0 && b == 0 {
		return
	}
	drawPolyline(output, geometry.EllipseOutline(center, a, b, 0, outlineSegments), true, colorutil.Preview, 1)
}
