package geometry

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestRotateAroundClockwiseOnScreen(t *testing.T) {
	center := NewPoint2D(50, 50)
	p := NewPoint2D(60, 50)

	got := p.RotateAround(center, 90)

	// +90 on a y-down screen moves the point from the right of center to below it
	if !scalar.EqualWithinAbs(got.X, 50, 1e-9) || !scalar.EqualWithinAbs(got.Y, 60, 1e-9) {
		t.Errorf("expected (50, 60), got (%.4f, %.4f)", got.X, got.Y)
	}
}

func TestAngleFrom(t *testing.T) {
	origin := NewPoint2D(0, 0)
	tests := []struct {
		p    Point2D
		want float64
	}{
		{NewPoint2D(1, 0), 0},
		{NewPoint2D(0, 1), 90},
		{NewPoint2D(-1, 0), 180},
		{NewPoint2D(0, -1), -90},
	}
	for _, tt := range tests {
		if got := tt.p.AngleFrom(origin); !scalar.EqualWithinAbs(got, tt.want, 1e-9) {
			t.Errorf("AngleFrom(%v) = %.4f, want %.4f", tt.p, got, tt.want)
		}
	}
}

func TestNormalizeDegrees(t *testing.T) {
	if got := NormalizeDegrees(-90); got != 270 {
		t.Errorf("expected 270, got %v", got)
	}
	if got := NormalizeDegrees(450); got != 90 {
		t.Errorf("expected 90, got %v", got)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}

	if !PointInPolygon(NewPoint2D(5, 5), square) {
		t.Error("center should be inside")
	}
	if !PointInPolygon(NewPoint2D(10, 5), square) {
		t.Error("edge point should count as inside")
	}
	if !PointInPolygon(NewPoint2D(0, 0), square) {
		t.Error("vertex should count as inside")
	}
	if PointInPolygon(NewPoint2D(11, 5), square) {
		t.Error("point right of square should be outside")
	}
	if PointInPolygon(NewPoint2D(5, 5), square[:2]) {
		t.Error("two-point ring cannot contain anything")
	}
}

func TestDistinctVertices(t *testing.T) {
	ring := []Point2D{{0, 0}, {0, 0}, {5, 0}, {5, 5}, {0, 0}}
	if got := DistinctVertices(ring); got != 3 {
		t.Errorf("expected 3 distinct vertices, got %d", got)
	}
}

func TestCloseRing(t *testing.T) {
	open := []Point2D{{0, 0}, {5, 0}, {5, 5}}
	closed := CloseRing(open)
	if len(closed) != 4 || closed[3] != open[0] {
		t.Errorf("expected ring closed with first vertex, got %v", closed)
	}
	if len(open) != 3 {
		t.Error("input slice was modified")
	}
	if again := CloseRing(closed); len(again) != 4 {
		t.Errorf("closing a closed ring should be a no-op, got %d points", len(again))
	}
}

func TestEllipseOutline(t *testing.T) {
	center := NewPoint2D(20, 20)
	pts := EllipseOutline(center, 10, 5, 0, 4)
	want := []Point2D{{30, 20}, {20, 25}, {10, 20}, {20, 15}}
	for i := range want {
		if !scalar.EqualWithinAbs(pts[i].X, want[i].X, 1e-9) || !scalar.EqualWithinAbs(pts[i].Y, want[i].Y, 1e-9) {
			t.Errorf("point %d: expected %v, got %v", i, want[i], pts[i])
		}
	}
}

func TestPolygonArea(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if got := PolygonArea(square); got != 100 {
		t.Errorf("expected area 100, got %v", got)
	}
}
