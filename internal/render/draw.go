// Package render draws annotation overlays onto display-sized images.
package render

import (
	"image"
	"image/color"
	"math"
	"sort"

	"ct-labeler/pkg/colorutil"
	"ct-labeler/pkg/geometry"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	half := thickness / 2

	for {
		for t := -half; t <= half; t++ {
			for s := -half; s <= half; s++ {
				px, py := x1+s, y1+t
				if image.Pt(px, py).In(bounds) {
					output.SetRGBA(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawPolyline strokes consecutive points, joining last to first when closed.
func drawPolyline(output *image.RGBA, pts []geometry.Point2D, closed bool, col color.RGBA, thickness int) {
	if len(pts) == 1 {
		drawLine(output, int(pts[0].X), int(pts[0].Y), int(pts[0].X), int(pts[0].Y), col, thickness)
		return
	}
	for i := 0; i+1 < len(pts); i++ {
		drawLine(output, int(pts[i].X), int(pts[i].Y), int(pts[i+1].X), int(pts[i+1].Y), col, thickness)
	}
	if closed && len(pts) > 2 {
		last := pts[len(pts)-1]
		drawLine(output, int(last.X), int(last.Y), int(pts[0].X), int(pts[0].Y), col, thickness)
	}
}

// blendPixel mixes col into the pixel at (x, y).
func blendPixel(output *image.RGBA, x, y int, col color.RGBA, weight float64) {
	if !image.Pt(x, y).In(output.Bounds()) {
		return
	}
	output.SetRGBA(x, y, colorutil.Blend(output.RGBAAt(x, y), col, weight))
}

// blendPolygon tints the interior of a ring using a scanline fill.
func blendPolygon(output *image.RGBA, pts []geometry.Point2D, col color.RGBA, weight float64) {
	if len(pts) < 3 {
		return
	}
	bounds := output.Bounds()
	box := geometry.BoundingBox(pts)

	n := len(pts)
	for y := int(box.Y); y <= int(box.Y+box.Height); y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		fy := float64(y)

		var xs []float64
		for i := 0; i < n; i++ {
			p1 := pts[i]
			p2 := pts[(i+1)%n]
			if (p1.Y <= fy && p2.Y > fy) || (p2.Y <= fy && p1.Y > fy) {
				t := (fy - p1.Y) / (p2.Y - p1.Y)
				xs = append(xs, p1.X+t*(p2.X-p1.X))
			}
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(xs[i]); x <= int(xs[i+1]); x++ {
				blendPixel(output, x, y, col, weight)
			}
		}
	}
}

// blendEllipse tints every pixel inside a rotated ellipse.
func blendEllipse(output *image.RGBA, center, axes geometry.Point2D, angle float64, col color.RGBA, weight float64) {
	a, b := axes.X, axes.Y
	if a <= 0 || b <= 0 {
		return
	}
	r := math.Max(a, b)
	cos, sin := math.Cos(geometry.Radians(angle)), math.Sin(geometry.Radians(angle))

	for y := int(center.Y - r - 1); y <= int(center.Y+r+1); y++ {
		for x := int(center.X - r - 1); x <= int(center.X+r+1); x++ {
			dx, dy := float64(x)-center.X, float64(y)-center.Y
			lx := (dx*cos + dy*sin) / a
			ly := (-dx*sin + dy*cos) / b
			if lx*lx+ly*ly <= 1 {
				blendPixel(output, x, y, col, weight)
			}
		}
	}
}

// drawSquare fills a small square centered on (cx, cy).
func drawSquare(output *image.RGBA, cx, cy, half int, col color.RGBA) {
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			if image.Pt(x, y).In(output.Bounds()) {
				output.SetRGBA(x, y, col)
			}
		}
	}
}

// drawLabel draws text with its baseline-left corner at (x, y) over a dark
// backing box so it stays readable on bright images.
func drawLabel(output *image.RGBA, label string, x, y int, col color.RGBA) {
	if label == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  output,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}

	width := d.MeasureString(label).Ceil()
	metrics := face.Metrics()
	box := image.Rect(x-1, y-metrics.Ascent.Ceil()-1, x+width+1, y+metrics.Descent.Ceil()+1).Intersect(output.Bounds())
	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			blendPixel(output, px, py, colorutil.Black, 0.6)
		}
	}

	d.DrawString(label)
}
