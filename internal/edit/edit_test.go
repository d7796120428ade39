package edit

import (
	"errors"
	"testing"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/hittest"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"

	"gonum.org/v1/gonum/floats/scalar"
)

var native = geometry.NewSize(100, 100)

func setup(t *testing.T, display geometry.Size) (*annotation.Set, *annotation.Ellipse, viewport.Mapper) {
	t.Helper()
	mp, err := viewport.NewMapper(native, display)
	if err != nil {
		t.Fatal(err)
	}
	set := annotation.NewSet()
	e := annotation.NewEllipse(viewport.Native(50, 50), 20, 10, 0, native)
	if _, err := set.Add("lesion", e); err != nil {
		t.Fatal(err)
	}
	return set, e, mp
}

var target = annotation.Ref{Group: "lesion", Index: 0}

func TestResizeRightHandle(t *testing.T) {
	set, e, mp := setup(t, native)
	m := NewMachine(0, 0)

	state, err := m.Press(set, target, mp, viewport.Display(70, 50))
	if err != nil || state != Resizing {
		t.Fatalf("expected Resizing, got %v, %v", state, err)
	}
	if s, _ := m.Session(); s.Handle != hittest.Right {
		t.Fatalf("expected right handle, got %v", s.Handle)
	}

	if !m.Drag(set, mp, viewport.Display(85, 50)) {
		t.Fatal("drag was ignored")
	}
	if e.Axes != geometry.NewPoint2D(35, 10) {
		t.Errorf("expected axes (35, 10), got %v", e.Axes)
	}
	if e.Center != viewport.Native(50, 50) {
		t.Errorf("center moved to %v", e.Center)
	}
}

func TestResizeUsesNativeUnitsAndFloor(t *testing.T) {
	set, e, mp := setup(t, geometry.NewSize(200, 200))
	m := NewMachine(0, 0)

	// top handle sits at display (100, 80)
	if state, err := m.Press(set, target, mp, viewport.Display(100, 80)); err != nil || state != Resizing {
		t.Fatalf("expected Resizing, got %v, %v", state, err)
	}
	m.Drag(set, mp, viewport.Display(100, 70))
	if e.Axes.Y != 15 {
		t.Errorf("dragging the top handle up 10 display px should add 5 native, got %v", e.Axes.Y)
	}
	m.Drag(set, mp, viewport.Display(100, 150))
	if e.Axes.Y != MinAxis {
		t.Errorf("expected axis floored at %v, got %v", MinAxis, e.Axes.Y)
	}
}

func TestMoveFromSnapshot(t *testing.T) {
	set, e, mp := setup(t, geometry.NewSize(200, 100))
	m := NewMachine(0, 0)

	if state, _ := m.Press(set, target, mp, viewport.Display(120, 50)); state != Moving {
		t.Fatalf("expected Moving, got %v", state)
	}
	for i := 1; i <= 10; i++ {
		m.Drag(set, mp, viewport.Display(120+float64(i)*2, 50+float64(i)))
	}
	// total displacement (20, 10) display is (10, 10) native
	if e.Center != viewport.Native(60, 60) {
		t.Errorf("expected center (60, 60), got %v", e.Center)
	}
	if e.Axes != geometry.NewPoint2D(20, 10) {
		t.Errorf("axes changed to %v", e.Axes)
	}
}

func TestRotateByQuarterTurn(t *testing.T) {
	set, e, mp := setup(t, native)
	m := NewMachine(0, 0)

	// 15 px above the top handle at (50, 40)
	if state, _ := m.Press(set, target, mp, viewport.Display(50, 25)); state != Rotating {
		t.Fatalf("expected Rotating, got %v", state)
	}
	m.Drag(set, mp, viewport.Display(75, 50))

	if !scalar.EqualWithinAbs(e.Angle, 90, 1e-9) {
		t.Errorf("expected angle 90, got %v", e.Angle)
	}
	if e.Center != viewport.Native(50, 50) || e.Axes != geometry.NewPoint2D(20, 10) {
		t.Error("rotation must not change center or axes")
	}

	// going back past the start wraps into [0, 360)
	m.Drag(set, mp, viewport.Display(25, 50))
	if !scalar.EqualWithinAbs(e.Angle, 270, 1e-9) {
		t.Errorf("expected angle 270, got %v", e.Angle)
	}
}

func TestPressUpgradesTwoPointAndDropsMask(t *testing.T) {
	mp, _ := viewport.NewMapper(native, native)
	set := annotation.NewSet()
	e := annotation.NewTwoPointEllipse(viewport.Native(20, 30), viewport.Native(80, 70), native)
	e.SetMask("cached")
	set.Add("legacy", e)

	m := NewMachine(0, 0)
	if state, _ := m.Press(set, annotation.Ref{Group: "legacy"}, mp, viewport.Display(50, 55)); state != Moving {
		t.Fatalf("expected Moving, got %v", state)
	}
	if e.Encoding != annotation.Canonical {
		t.Error("press should normalize the ellipse")
	}
	m.Drag(set, mp, viewport.Display(51, 55))
	if e.Mask() != "" {
		t.Error("drag should drop the cached mask")
	}
}

func TestPressMissStaysIdle(t *testing.T) {
	set, e, mp := setup(t, native)
	e.SetMask("cached")
	m := NewMachine(0, 0)

	state, err := m.Press(set, target, mp, viewport.Display(5, 5))
	if err != nil || state != Idle {
		t.Fatalf("expected Idle, got %v, %v", state, err)
	}
	if m.Drag(set, mp, viewport.Display(6, 6)) {
		t.Error("drag without a session should be ignored")
	}
	if e.Mask() != "cached" {
		t.Error("a miss must not touch the shape")
	}
}

func TestPressErrors(t *testing.T) {
	set, _, mp := setup(t, native)
	set.Add("outline", annotation.NewPolygon(annotation.KindPolygon, []viewport.NativePoint{
		viewport.Native(0, 0), viewport.Native(10, 0), viewport.Native(10, 10),
	}, native))
	m := NewMachine(0, 0)

	if _, err := m.Press(set, annotation.Ref{Group: "outline"}, mp, viewport.Display(8, 2)); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected ErrNotEditable for polygon, got %v", err)
	}
	if _, err := m.Press(set, annotation.Ref{Group: "missing"}, mp, viewport.Display(50, 50)); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected ErrNotEditable for missing target, got %v", err)
	}
	if _, err := m.Press(set, target, viewport.Mapper{}, viewport.Display(50, 50)); !errors.Is(err, viewport.ErrInvalidViewport) {
		t.Errorf("expected ErrInvalidViewport, got %v", err)
	}

	if _, err := m.Press(set, target, mp, viewport.Display(62, 57)); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Press(set, target, mp, viewport.Display(62, 57)); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}
}

func TestDragAfterDeleteIsNoop(t *testing.T) {
	set, _, mp := setup(t, native)
	m := NewMachine(0, 0)
	if _, err := m.Press(set, target, mp, viewport.Display(62, 57)); err != nil {
		t.Fatal(err)
	}

	set.Delete(target)
	replacement := annotation.NewEllipse(viewport.Native(10, 10), 5, 5, 0, native)
	set.Add("lesion", replacement)

	if m.Drag(set, mp, viewport.Display(60, 60)) {
		t.Error("drag on a deleted target should be ignored")
	}
	if replacement.Center != viewport.Native(10, 10) {
		t.Error("a new shape at the same ref must not be edited")
	}
	if _, ok := m.Release(); !ok {
		t.Error("release should still end the orphaned session")
	}
	if m.State() != Idle {
		t.Error("expected Idle after release")
	}
}

func TestForget(t *testing.T) {
	set, _, mp := setup(t, native)
	m := NewMachine(0, 0)
	m.Press(set, target, mp, viewport.Display(62, 57))

	if m.Forget(annotation.Ref{Group: "other"}) {
		t.Error("forgetting another group should keep the session")
	}
	if !m.Forget(target) || m.State() != Idle {
		t.Error("forgetting the target group should end the session")
	}
}
