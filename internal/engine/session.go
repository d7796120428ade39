// Package engine ties the annotation model, hit testing, gestures, rendering
// and persistence into one session object driven by pointer events.
//
// A Session is not safe for concurrent use; the UI layer serializes calls.
package engine

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"strings"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/edit"
	"ct-labeler/internal/hittest"
	"ct-labeler/internal/mask"
	"ct-labeler/internal/render"
	"ct-labeler/internal/store"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/colorutil"
	"ct-labeler/pkg/geometry"
)

// ErrNoPending is returned by CommitPending when nothing is waiting.
var ErrNoPending = errors.New("engine: no pending shape")

// Mode selects what pointer input does.
type Mode int

const (
	ModeNormal Mode = iota
	ModeEllipse
	ModePolygon
	ModeClosedCurve
)

func (m Mode) String() string {
	switch m {
	case ModeEllipse:
		return "ellipse"
	case ModePolygon:
		return "polygon"
	case ModeClosedCurve:
		return "closed_curve"
	default:
		return "normal"
	}
}

// Options tunes interaction thresholds.
type Options struct {
	HandleTolerance float64 // display pixels
	MinAxis         float64 // native units
	HideLabels      bool
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{HandleTolerance: hittest.DefaultTolerance, MinAxis: edit.MinAxis}
}

// Session is the editing state for one open image.
type Session struct {
	opts Options

	set       *annotation.Set
	native    geometry.Size
	display   geometry.Size
	mapper    viewport.Mapper
	imagePath string
	mode      Mode

	machine *edit.Machine

	selected    annotation.Ref
	hasSelected bool

	// In-progress drawing, kept in native space so a viewport change does
	// not distort it.
	drawing []viewport.NativePoint
	pressed bool
	cursor  viewport.DisplayPoint
	pending annotation.Shape

	listeners map[EventType][]EventListener
}

// New creates a session with no image.
func New(opts Options) *Session {
	def := DefaultOptions()
	if opts.HandleTolerance <= 0 {
		opts.HandleTolerance = def.HandleTolerance
	}
	if opts.MinAxis <= 0 {
		opts.MinAxis = def.MinAxis
	}
	return &Session{
		opts:      opts,
		set:       annotation.NewSet(),
		machine:   edit.NewMachine(opts.HandleTolerance, opts.MinAxis),
		listeners: make(map[EventType][]EventListener),
	}
}

// Options returns the active thresholds.
func (s *Session) Options() Options { return s.opts }

// Set returns the live annotation set.
func (s *Session) Set() *annotation.Set { return s.set }

// Mode returns the current input mode.
func (s *Session) Mode() Mode { return s.mode }

// Mapper returns the current coordinate mapper, which is invalid until both
// an image and a viewport size are known.
func (s *Session) Mapper() viewport.Mapper { return s.mapper }

// NativeSize returns the size of the open image.
func (s *Session) NativeSize() geometry.Size { return s.native }

// ImagePath returns the path of the open image.
func (s *Session) ImagePath() string { return s.imagePath }

// EditState returns the state of the gesture machine.
func (s *Session) EditState() edit.State { return s.machine.State() }

// OnImageOpened starts over with an empty set for a new image.
func (s *Session) OnImageOpened(native geometry.Size, path string) {
	s.native = native
	s.imagePath = path
	s.set = annotation.NewSet()
	s.machine.Cancel()
	s.resetDrawing()
	s.pending = nil
	s.clearSelection()
	s.rebuildMapper()

	if path == "" {
		log.Printf("Image closed")
	} else {
		log.Printf("Image opened: %s (%.0fx%.0f)", path, native.Width, native.Height)
	}
	s.Emit(EventImageOpened, native)
	s.Emit(EventShapesChanged, nil)
}

// SetViewport records the display size the image is drawn at.
func (s *Session) SetViewport(display geometry.Size) {
	if display == s.display {
		return
	}
	s.display = display
	s.rebuildMapper()
}

func (s *Session) rebuildMapper() {
	m, err := viewport.NewMapper(s.native, s.display)
	if err != nil {
		s.mapper = viewport.Mapper{}
		return
	}
	s.mapper = m
}

// SetMode switches input mode, ending any gesture and dropping any
// unfinished drawing.
func (s *Session) SetMode(mode Mode) {
	s.machine.Cancel()
	s.resetDrawing()
	s.mode = mode
}

func (s *Session) resetDrawing() {
	s.drawing = nil
	s.pressed = false
}

// Drawing returns the in-progress vertices in display space.
func (s *Session) Drawing() []viewport.DisplayPoint {
	out := make([]viewport.DisplayPoint, len(s.drawing))
	for i, p := range s.drawing {
		out[i] = s.mapper.ToDisplay(p)
	}
	return out
}

// Pending returns the finished shape waiting for a name.
func (s *Session) Pending() (annotation.Shape, bool) {
	return s.pending, s.pending != nil
}

// OnPointerDown handles a button press at display point p.
func (s *Session) OnPointerDown(p viewport.DisplayPoint) error {
	if !s.mapper.Valid() {
		return viewport.ErrInvalidViewport
	}
	if s.pending != nil {
		return nil
	}
	s.cursor = p
	native := s.mapper.ToNative(p)

	switch s.mode {
	case ModeEllipse:
		s.drawing = []viewport.NativePoint{native, native}
		s.pressed = true
	case ModeClosedCurve:
		s.drawing = []viewport.NativePoint{native}
		s.pressed = true
	case ModePolygon:
		if len(s.drawing) >= 3 && hittest.Near(p, s.mapper.ToDisplay(s.drawing[0]), s.opts.HandleTolerance) {
			return s.ClosePolygon()
		}
		s.drawing = append(s.drawing, native)
	case ModeNormal:
		return s.pressNormal(p)
	}
	return nil
}

func (s *Session) pressNormal(p viewport.DisplayPoint) error {
	if s.hasSelected {
		state, err := s.machine.Press(s.set, s.selected, s.mapper, p)
		switch {
		case err == nil && state != edit.Idle:
			log.Printf("Edit started: %s on %s #%d", state, s.selected.Group, s.selected.Index)
			return nil
		case err != nil && !errors.Is(err, edit.ErrNotEditable):
			return err
		}
	}

	if ref, ok := hittest.Pick(s.set, s.mapper, p); ok {
		s.Select(ref)
	}
	return nil
}

// OnPointerMove handles pointer motion, with or without a button held.
func (s *Session) OnPointerMove(p viewport.DisplayPoint) error {
	if !s.mapper.Valid() {
		return viewport.ErrInvalidViewport
	}
	s.cursor = p
	if s.pending != nil {
		return nil
	}

	switch s.mode {
	case ModeEllipse:
		if s.pressed {
			s.drawing[1] = s.mapper.ToNative(p)
		}
	case ModeClosedCurve:
		if s.pressed {
			s.drawing = append(s.drawing, s.mapper.ToNative(p))
		}
	case ModeNormal:
		if s.machine.State() != edit.Idle {
			if s.machine.Drag(s.set, s.mapper, p) {
				s.Emit(EventShapesChanged, nil)
			}
			return nil
		}
		// hover selection sticks until another shape is under the pointer
		if ref, ok := hittest.Pick(s.set, s.mapper, p); ok {
			s.Select(ref)
		}
	}
	return nil
}

// OnPointerUp handles a button release. It returns ErrDegenerateShape when
// the finished drawing encloses no area; the drawing is then discarded.
func (s *Session) OnPointerUp(p viewport.DisplayPoint) error {
	if !s.mapper.Valid() {
		return viewport.ErrInvalidViewport
	}
	s.cursor = p

	switch s.mode {
	case ModeEllipse:
		if !s.pressed {
			return nil
		}
		s.drawing[1] = s.mapper.ToNative(p)
		params := annotation.EllipseFromBox(s.drawing[0], s.drawing[1])
		s.resetDrawing()
		return s.finish(annotation.NewEllipse(params.Center, params.Axes.X, params.Axes.Y, 0, s.native))
	case ModeClosedCurve:
		if !s.pressed {
			return nil
		}
		pts := append(s.drawing, s.mapper.ToNative(p))
		s.resetDrawing()
		return s.finish(annotation.NewPolygon(annotation.KindClosedCurve, pts, s.native))
	case ModeNormal:
		if st, ok := s.machine.Release(); ok {
			log.Printf("Edit finished: %s on %s #%d", st.State, st.Target.Group, st.Target.Index)
			s.Emit(EventShapesChanged, nil)
		}
	}
	return nil
}

// ClosePolygon finishes the polygon being drawn.
func (s *Session) ClosePolygon() error {
	if s.mode != ModePolygon || len(s.drawing) == 0 {
		return nil
	}
	pts := s.drawing
	s.resetDrawing()
	return s.finish(annotation.NewPolygon(annotation.KindPolygon, pts, s.native))
}

// finish validates a drawn shape and parks it until it is named.
func (s *Session) finish(shape annotation.Shape) error {
	if err := shape.Validate(); err != nil {
		log.Printf("Discarding %s: %v", shape.Kind(), err)
		return err
	}
	s.pending = shape
	s.Emit(EventPendingShape, shape.Kind())
	return nil
}

// CommitPending adds the pending shape to the named group with a freshly
// rasterized mask. A new name creates a group with the next palette color.
func (s *Session) CommitPending(name string) (annotation.Ref, error) {
	if s.pending == nil {
		return annotation.Ref{}, ErrNoPending
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return annotation.Ref{}, annotation.ErrInvalidName
	}

	encoded, err := mask.Generate(s.pending, s.native)
	if err != nil {
		return annotation.Ref{}, fmt.Errorf("rasterize %s: %w", s.pending.Kind(), err)
	}
	s.pending.SetMask(encoded)

	g, err := s.set.Add(name, s.pending)
	if err != nil {
		return annotation.Ref{}, err
	}
	ref := annotation.Ref{Group: g.Name, Index: len(g.Shapes) - 1}
	log.Printf("Added %s to %q", s.pending.Kind(), name)
	s.pending = nil

	s.Emit(EventShapesChanged, nil)
	return ref, nil
}

// DiscardPending drops the pending shape.
func (s *Session) DiscardPending() {
	if s.pending == nil {
		return
	}
	s.pending = nil
	s.Emit(EventShapesChanged, nil)
}

// Selected returns the selected shape, if any.
func (s *Session) Selected() (annotation.Ref, bool) {
	return s.selected, s.hasSelected
}

// Select makes ref the selection. Refs that point at nothing are ignored.
func (s *Session) Select(ref annotation.Ref) bool {
	if _, ok := s.set.Shape(ref); !ok {
		return false
	}
	if s.hasSelected && s.selected == ref {
		return true
	}
	s.selected, s.hasSelected = ref, true
	s.Emit(EventSelectionChanged, ref)
	return true
}

// ClearSelection deselects without touching any shape.
func (s *Session) ClearSelection() {
	if !s.hasSelected {
		return
	}
	s.clearSelection()
	s.Emit(EventSelectionChanged, nil)
}

func (s *Session) clearSelection() {
	s.selected, s.hasSelected = annotation.Ref{}, false
}

// DeleteSelected removes the selected shape, and its group when it was the
// last one. It reports whether anything was deleted.
func (s *Session) DeleteSelected() bool {
	if !s.hasSelected {
		return false
	}
	ref := s.selected
	removed, groupRemoved := s.set.Delete(ref)
	s.machine.Forget(ref)
	s.ClearSelection()
	if !removed {
		return false
	}

	if groupRemoved {
		log.Printf("Deleted %s #%d and its now empty group", ref.Group, ref.Index)
	} else {
		log.Printf("Deleted %s #%d", ref.Group, ref.Index)
	}
	s.Emit(EventShapesChanged, nil)
	return true
}

// RenameGroup renames a group. It fails with annotation.ErrNameConflict when
// newName is taken, leaving everything unchanged.
func (s *Session) RenameGroup(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := s.set.Rename(oldName, newName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	s.machine.Forget(annotation.Ref{Group: oldName})
	if s.hasSelected && s.selected.Group == oldName {
		s.selected.Group = newName
		s.Emit(EventSelectionChanged, s.selected)
	}
	s.Emit(EventShapesChanged, nil)
	return nil
}

// RenderOverlay copies base, which should already be display-sized, and
// draws every annotation on top along with the selection highlight and any
// drawing in progress.
func (s *Session) RenderOverlay(base image.Image) *image.RGBA {
	var bounds image.Rectangle
	if !s.display.IsZero() {
		w, h := s.display.Ints()
		bounds = image.Rect(0, 0, w, h)
	} else if base != nil {
		bounds = image.Rect(0, 0, base.Bounds().Dx(), base.Bounds().Dy())
	}
	output := image.NewRGBA(bounds)
	if base != nil {
		draw.Draw(output, bounds, base, base.Bounds().Min, draw.Src)
	}
	if !s.mapper.Valid() {
		return output
	}

	render.Overlay(output, s.set, s.mapper, render.Options{
		Selected:     s.selected,
		HasSelection: s.hasSelected,
		Labels:       !s.opts.HideLabels,
		Handles:      s.mode == ModeNormal,
	})

	switch {
	case s.pending != nil:
		render.Shape(output, s.pending, s.mapper, colorutil.Preview)
	case s.mode == ModeEllipse && s.pressed:
		d := s.Drawing()
		render.PreviewEllipse(output, d[0], d[1])
	case s.mode == ModeClosedCurve && s.pressed:
		render.PreviewPath(output, s.Drawing(), false)
	case s.mode == ModePolygon && len(s.drawing) > 0:
		render.PreviewPath(output, append(s.Drawing(), s.cursor), false)
	}
	return output
}

// SaveDocument serializes the set against the open image. Masks are
// generated where missing and stale geometry is re-projected.
func (s *Session) SaveDocument() (*store.Document, error) {
	s.machine.Cancel()
	doc, err := store.Save(s.set, s.native, s.imagePath)
	if err != nil {
		return nil, fmt.Errorf("save annotations: %w", err)
	}
	log.Printf("Saved %d annotations in %d groups", len(doc.Annotations), s.set.Len())
	s.Emit(EventDocumentSaved, doc)
	return doc, nil
}

// LoadDocument replaces the set with the document's contents and returns
// per-record warnings.
func (s *Session) LoadDocument(doc *store.Document) []error {
	set, warnings := store.Load(doc, s.native)
	s.set = set
	s.machine.Cancel()
	s.resetDrawing()
	s.pending = nil
	s.clearSelection()

	log.Printf("Loaded %d shapes in %d groups (%d warnings)", set.ShapeCount(), set.Len(), len(warnings))
	s.Emit(EventSelectionChanged, nil)
	s.Emit(EventDocumentLoaded, warnings)
	s.Emit(EventShapesChanged, nil)
	return warnings
}
