package hittest

import (
	"testing"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestPointInEllipseCenterAndFarPoints(t *testing.T) {
	center := geometry.NewPoint2D(100, 80)
	axes := geometry.NewPoint2D(30, 12)
	reach := 30 * 1.5 * 1.01

	for _, angle := range []float64{0, 17, 45, 90, 133, 180, 270, 359} {
		if !PointInEllipse(center, center, axes, angle) {
			t.Errorf("angle %v: center not contained", angle)
		}
		for _, off := range []geometry.Point2D{{X: reach}, {X: -reach}, {Y: reach}, {Y: -reach}} {
			if p := center.Add(off); PointInEllipse(p, center, axes, angle) {
				t.Errorf("angle %v: %v should be outside", angle, p)
			}
		}
	}
}

func TestPointInEllipseRotation(t *testing.T) {
	center := geometry.NewPoint2D(0, 0)
	axes := geometry.NewPoint2D(20, 5)

	if !PointInEllipse(geometry.NewPoint2D(15, 0), center, axes, 0) {
		t.Error("point on major axis should be inside")
	}
	if PointInEllipse(geometry.NewPoint2D(15, 0), center, axes, 90) {
		t.Error("after a quarter turn the major axis is vertical")
	}
	if !PointInEllipse(geometry.NewPoint2D(0, 15), center, axes, 90) {
		t.Error("point below center should be inside after a quarter turn")
	}
}

func TestPointInEllipseDegenerate(t *testing.T) {
	c := geometry.NewPoint2D(10, 10)
	if PointInEllipse(c, c, geometry.NewPoint2D(0, 5), 0) || PointInEllipse(c, c, geometry.NewPoint2D(5, 0), 0) {
		t.Error("degenerate ellipses contain nothing")
	}
}

func TestEllipseHandles(t *testing.T) {
	hs := EllipseHandles(viewport.Display(50, 50), geometry.NewPoint2D(20, 10), 0)
	want := Handles{
		Top:    viewport.Display(50, 40),
		Bottom: viewport.Display(50, 60),
		Left:   viewport.Display(30, 50),
		Right:  viewport.Display(70, 50),
	}
	if hs != want {
		t.Errorf("got %+v, want %+v", hs, want)
	}

	rot := EllipseHandles(viewport.Display(50, 50), geometry.NewPoint2D(20, 10), 90)
	// a clockwise quarter turn carries the right handle to the bottom
	if !scalar.EqualWithinAbs(rot.Right.X, 50, 1e-9) || !scalar.EqualWithinAbs(rot.Right.Y, 70, 1e-9) {
		t.Errorf("rotated right handle at %v", rot.Right)
	}
	if !scalar.EqualWithinAbs(rot.Top.X, 60, 1e-9) || !scalar.EqualWithinAbs(rot.Top.Y, 50, 1e-9) {
		t.Errorf("rotated top handle at %v", rot.Top)
	}
}

func TestClassifyPriority(t *testing.T) {
	center := viewport.Display(100, 100)
	axes := geometry.NewPoint2D(40, 30)
	tol := DefaultTolerance

	tests := []struct {
		name string
		p    viewport.DisplayPoint
		want Hit
	}{
		{"top handle", viewport.Display(100, 72), Hit{Action: Resize, Handle: Top}},
		{"bottom handle", viewport.Display(103, 130), Hit{Action: Resize, Handle: Bottom}},
		{"left handle", viewport.Display(60, 100), Hit{Action: Resize, Handle: Left}},
		{"right handle", viewport.Display(145, 100), Hit{Action: Resize, Handle: Right}},
		{"rotate ring above top", viewport.Display(100, 55), Hit{Action: Rotate}},
		// inside the body but within 2T of the top handle: rotate wins over move
		{"rotate ring inside body", viewport.Display(100, 85), Hit{Action: Rotate}},
		{"exactly T from top", viewport.Display(100, 60), Hit{}},
		{"exactly 2T from top", viewport.Display(100, 50), Hit{}},
		{"body", viewport.Display(110, 105), Hit{Action: Move}},
		{"outside", viewport.Display(10, 10), Hit{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.p, center, axes, 0, tol); got != tt.want {
				t.Errorf("Classify(%v) = %v/%v, want %v/%v", tt.p, got.Action, got.Handle, tt.want.Action, tt.want.Handle)
			}
		})
	}
}

func TestPickFirstInsertedWins(t *testing.T) {
	native := geometry.NewSize(200, 200)
	m, err := viewport.NewMapper(native, geometry.NewSize(400, 400))
	if err != nil {
		t.Fatal(err)
	}

	set := annotation.NewSet()
	set.Add("first", annotation.NewEllipse(viewport.Native(100, 100), 40, 40, 0, native))
	set.Add("second", annotation.NewEllipse(viewport.Native(110, 100), 40, 40, 0, native))
	set.Add("first", annotation.NewEllipse(viewport.Native(100, 100), 10, 10, 0, native))

	for _, p := range []viewport.DisplayPoint{
		viewport.Display(200, 200), viewport.Display(220, 200), viewport.Display(250, 210),
	} {
		ref, ok := Pick(set, m, p)
		if !ok || ref != (annotation.Ref{Group: "first", Index: 0}) {
			t.Errorf("Pick(%v) = %v, %v; want first#0", p, ref, ok)
		}
	}

	ref, ok := Pick(set, m, viewport.Display(290, 200))
	if !ok || ref.Group != "second" {
		t.Errorf("expected second group, got %v, %v", ref, ok)
	}
	if _, ok := Pick(set, m, viewport.Display(5, 5)); ok {
		t.Error("empty area should pick nothing")
	}
}

func TestPickTwoPointAndPolygon(t *testing.T) {
	native := geometry.NewSize(100, 100)
	m, _ := viewport.NewMapper(native, native)

	set := annotation.NewSet()
	set.Add("box", annotation.NewTwoPointEllipse(viewport.Native(10, 10), viewport.Native(30, 20), native))
	set.Add("tri", annotation.NewPolygon(annotation.KindPolygon, []viewport.NativePoint{
		viewport.Native(50, 50), viewport.Native(90, 50), viewport.Native(50, 90),
	}, native))

	if ref, ok := Pick(set, m, viewport.Display(20, 15)); !ok || ref.Group != "box" {
		t.Errorf("two-point ellipse not picked: %v, %v", ref, ok)
	}
	if ref, ok := Pick(set, m, viewport.Display(55, 55)); !ok || ref.Group != "tri" {
		t.Errorf("polygon not picked: %v, %v", ref, ok)
	}
	if _, ok := Pick(set, m, viewport.Display(85, 85)); ok {
		t.Error("point past the hypotenuse should miss")
	}
	if _, ok := Pick(set, viewport.Mapper{}, viewport.Display(20, 15)); ok {
		t.Error("invalid mapper should pick nothing")
	}
}
