package app

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"ct-labeler/internal/engine"
	ctimage "ct-labeler/internal/image"
	"ct-labeler/internal/store"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"

	"github.com/disintegration/imaging"
)

func writeSlice(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	img.SetNRGBA(50, 50, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func drawEllipse(t *testing.T, s *State, name string) {
	t.Helper()
	sess := s.Session
	sess.SetMode(engine.ModeEllipse)
	if err := sess.OnPointerDown(viewport.Display(40, 40)); err != nil {
		t.Fatal(err)
	}
	sess.OnPointerMove(viewport.Display(120, 120))
	if err := sess.OnPointerUp(viewport.Display(120, 120)); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.CommitPending(name); err != nil {
		t.Fatal(err)
	}
	sess.SetMode(engine.ModeNormal)
}

func TestAddFilesFiltersAndDeduplicates(t *testing.T) {
	s := NewState(engine.DefaultOptions())

	var events int
	s.On(EventFilesChanged, func(interface{}) { events++ })

	if n := s.AddFiles("a.png", "b.txt", "a.png", "c.dcm"); n != 2 {
		t.Errorf("added %d, want 2", n)
	}
	if n := s.AddFiles("a.png"); n != 0 {
		t.Errorf("re-adding should add nothing, got %d", n)
	}
	if events != 1 {
		t.Errorf("expected one files event, got %d", events)
	}
	if !s.RemoveFile("a.png") || s.RemoveFile("missing.png") {
		t.Error("RemoveFile results wrong")
	}
	if len(s.Files) != 1 || s.Files[0] != "c.dcm" {
		t.Errorf("files = %v", s.Files)
	}
}

func TestSaveWithoutImage(t *testing.T) {
	s := NewState(engine.DefaultOptions())
	if _, err := s.Save(); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}

func TestOpenDrawSaveReopen(t *testing.T) {
	dir := t.TempDir()
	path := writeSlice(t, dir, "slice.png")
	s := NewState(engine.DefaultOptions())

	warnings, err := s.OpenImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %v", warnings)
	}
	if s.Modified {
		t.Error("freshly opened image should not be modified")
	}
	if HasAnnotations(path) {
		t.Error("no annotation file yet")
	}

	frame := s.Render(geometry.NewSize(200, 200))
	if frame.Bounds().Dx() != 200 {
		t.Fatalf("frame bounds %v", frame.Bounds())
	}

	drawEllipse(t, s, "liver")
	if !s.Modified {
		t.Error("commit should mark the state modified")
	}

	jsonPath, err := s.Save()
	if err != nil {
		t.Fatal(err)
	}
	if jsonPath != store.PathFor(path) || !HasAnnotations(path) {
		t.Errorf("annotation file not written at %s", jsonPath)
	}
	if s.Modified {
		t.Error("save should clear modified")
	}

	doc, err := store.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Annotations) != 1 || doc.Annotations[0].Mask == "" {
		t.Fatalf("unexpected document %+v", doc)
	}

	reopened := NewState(engine.DefaultOptions())
	if _, err := reopened.OpenImage(path); err != nil {
		t.Fatal(err)
	}
	if got := reopened.Session.Set().ShapeCount(); got != 1 {
		t.Errorf("reloaded %d shapes, want 1", got)
	}
	if reopened.Modified {
		t.Error("loading should not mark the state modified")
	}
}

func TestOpenImageReportsCorruptAnnotations(t *testing.T) {
	dir := t.TempDir()
	path := writeSlice(t, dir, "slice.png")
	if err := os.WriteFile(store.PathFor(path), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewState(engine.DefaultOptions())
	warnings, err := s.OpenImage(path)
	if err != nil {
		t.Fatalf("image itself should open: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", warnings)
	}
}

func TestOpenImageMissingFile(t *testing.T) {
	s := NewState(engine.DefaultOptions())
	if _, err := s.OpenImage(filepath.Join(t.TempDir(), "gone.png")); err == nil {
		t.Error("expected an error for a missing image")
	}
	if s.Current != "" {
		t.Error("failed open should not change the current file")
	}
}

func TestAdjustmentIsPerFile(t *testing.T) {
	dir := t.TempDir()
	a := writeSlice(t, dir, "a.png")
	b := writeSlice(t, dir, "b.png")
	s := NewState(engine.DefaultOptions())

	if _, err := s.OpenImage(a); err != nil {
		t.Fatal(err)
	}
	bright := ctimage.Adjustment{Brightness: 80, Sharpness: 2}
	s.SetAdjustment(bright)

	if _, err := s.OpenImage(b); err != nil {
		t.Fatal(err)
	}
	if s.Adjustment() != ctimage.DefaultAdjustment() {
		t.Errorf("new file should start neutral, got %+v", s.Adjustment())
	}

	if _, err := s.OpenImage(a); err != nil {
		t.Fatal(err)
	}
	if s.Adjustment() != bright {
		t.Errorf("adjustment not restored, got %+v", s.Adjustment())
	}
}

func TestDisplayBaseAppliesAdjustment(t *testing.T) {
	path := writeSlice(t, t.TempDir(), "slice.png")
	s := NewState(engine.DefaultOptions())
	if s.DisplayBase(geometry.NewSize(10, 10)) != nil {
		t.Error("no image should give no base")
	}
	if _, err := s.OpenImage(path); err != nil {
		t.Fatal(err)
	}

	display := geometry.NewSize(100, 100)
	plain := s.DisplayBase(display)
	if s.DisplayBase(display) != plain {
		t.Error("base should be cached for the same size and adjustment")
	}

	s.SetAdjustment(ctimage.Adjustment{Brightness: 100})
	lit := s.DisplayBase(display)
	r, _, _, _ := lit.At(10, 10).RGBA()
	if r>>8 < 120 {
		t.Errorf("expected brightened background, got %d", r>>8)
	}
}
