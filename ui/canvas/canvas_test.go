package canvas

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/app"
	"ct-labeler/internal/engine"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/disintegration/imaging"
)

func press(x, y float32, button desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     button,
	}
}

func openCanvas(t *testing.T) (*AnnotationCanvas, *app.State) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	path := filepath.Join(t.TempDir(), "slice.png")
	if err := imaging.Save(image.NewGray(image.Rect(0, 0, 100, 100)), path); err != nil {
		t.Fatal(err)
	}
	state := app.NewState(engine.DefaultOptions())
	if _, err := state.OpenImage(path); err != nil {
		t.Fatal(err)
	}

	ac := New(state)
	ac.Resize(fyne.NewSize(200, 200))
	ac.draw(200, 200)
	return ac, state
}

func TestDrawWithoutImageIsBlack(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	ac := New(app.NewState(engine.DefaultOptions()))
	out := ac.draw(20, 10).(*image.RGBA)
	if out.Bounds().Dx() != 20 || out.RGBAAt(5, 5).A != 255 || out.RGBAAt(5, 5).R != 0 {
		t.Errorf("unexpected blank frame %v", out.RGBAAt(5, 5))
	}
}

func TestMouseDrawsEllipse(t *testing.T) {
	ac, state := openCanvas(t)

	var pending int
	state.Session.On(engine.EventPendingShape, func(interface{}) { pending++ })

	ac.Do(func(s *engine.Session) error {
		s.SetMode(engine.ModeEllipse)
		return nil
	})
	if ac.Cursor() != desktop.CrosshairCursor {
		t.Error("drawing modes should use a crosshair")
	}

	ac.MouseDown(press(40, 40, desktop.MouseButtonPrimary))
	ac.MouseMoved(press(120, 120, desktop.MouseButtonPrimary))
	ac.MouseUp(press(120, 120, desktop.MouseButtonPrimary))

	shape, ok := state.Session.Pending()
	if !ok || pending != 1 {
		t.Fatalf("expected a pending ellipse, got %v (%d events)", shape, pending)
	}
	e := shape.(*annotation.Ellipse)
	if e.Center.X != 40 || e.Axes.X != 20 {
		t.Errorf("ellipse in native space: center %v axes %v", e.Center, e.Axes)
	}
}

func TestMouseReportsDegenerateDrawing(t *testing.T) {
	ac, _ := openCanvas(t)

	var got error
	ac.OnError(func(err error) { got = err })
	ac.Do(func(s *engine.Session) error {
		s.SetMode(engine.ModeEllipse)
		return nil
	})

	ac.MouseDown(press(50, 50, desktop.MouseButtonPrimary))
	ac.MouseUp(press(50, 50, desktop.MouseButtonPrimary))
	if !errors.Is(got, annotation.ErrDegenerateShape) {
		t.Errorf("expected ErrDegenerateShape, got %v", got)
	}
}

func TestSecondaryClickClosesPolygon(t *testing.T) {
	ac, state := openCanvas(t)
	ac.Do(func(s *engine.Session) error {
		s.SetMode(engine.ModePolygon)
		return nil
	})

	for _, p := range [][2]float32{{20, 20}, {120, 20}, {120, 120}} {
		ac.MouseDown(press(p[0], p[1], desktop.MouseButtonPrimary))
		ac.MouseUp(press(p[0], p[1], desktop.MouseButtonPrimary))
	}
	ac.MouseDown(press(0, 0, desktop.MouseButtonSecondary))

	shape, ok := state.Session.Pending()
	if !ok || shape.Kind() != annotation.KindPolygon {
		t.Fatalf("expected a pending polygon, got %v", shape)
	}
}
