// Package app provides application lifecycle management and events.
package app

import (
	"errors"
	"fmt"
	goimage "image"
	"log"
	"os"
	"sync"

	"ct-labeler/internal/engine"
	"ct-labeler/internal/image"
	"ct-labeler/internal/store"
	"ct-labeler/pkg/geometry"
)

// ErrNoImage is returned by operations that need an open image.
var ErrNoImage = errors.New("no image open")

// State holds the open file list, the current image and its annotation session.
type State struct {
	mu sync.RWMutex

	// Annotation engine for the current image
	Session *engine.Session

	// Files
	Files    []string
	Current  string
	Layer    *image.Layer
	Modified bool

	// Per-file display adjustments, kept for the lifetime of the process
	adjustments map[string]image.Adjustment

	// Cached display base for the current image
	baseSize geometry.Size
	baseAdj  image.Adjustment
	base     goimage.Image

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventFilesChanged EventType = iota
	EventImageLoaded
	EventAnnotationsSaved
	EventModified
	EventAdjustmentChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a new application state.
func NewState(opts engine.Options) *State {
	s := &State{
		Session:     engine.New(opts),
		adjustments: make(map[string]image.Adjustment),
		listeners:   make(map[EventType][]EventListener),
	}
	s.Session.On(engine.EventShapesChanged, func(interface{}) {
		if s.HasImage() {
			s.SetModified(true)
		}
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// HasImage reports whether an image is open.
func (s *State) HasImage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Layer != nil
}

// SetModified marks the annotations as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	changed := s.Modified != modified
	s.Modified = modified
	s.mu.Unlock()
	if changed {
		s.Emit(EventModified, modified)
	}
}

// AddFiles appends supported, not yet listed images to the file list and
// returns how many were added.
func (s *State) AddFiles(paths ...string) int {
	s.mu.Lock()
	added := 0
	for _, p := range paths {
		if !image.IsSupportedFormat(p) || s.hasFile(p) {
			continue
		}
		s.Files = append(s.Files, p)
		added++
	}
	files := append([]string(nil), s.Files...)
	s.mu.Unlock()

	if added > 0 {
		s.Emit(EventFilesChanged, files)
	}
	return added
}

func (s *State) hasFile(path string) bool {
	for _, f := range s.Files {
		if f == path {
			return true
		}
	}
	return false
}

// RemoveFile drops path from the file list. Removing the current file
// closes it.
func (s *State) RemoveFile(path string) bool {
	s.mu.Lock()
	idx := -1
	for i, f := range s.Files {
		if f == path {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.Files = append(s.Files[:idx], s.Files[idx+1:]...)
	delete(s.adjustments, path)
	closing := s.Current == path
	if closing {
		s.Current = ""
		s.Layer = nil
		s.base = nil
		s.Modified = false
	}
	files := append([]string(nil), s.Files...)
	s.mu.Unlock()

	if closing {
		s.Session.OnImageOpened(geometry.Size{}, "")
	}
	s.Emit(EventFilesChanged, files)
	return true
}

// HasAnnotations reports whether an annotation file exists beside path.
func HasAnnotations(path string) bool {
	_, err := os.Stat(store.PathFor(path))
	return err == nil
}

// OpenImage loads the image at path, resets the session and loads any
// annotation file found beside it. Load warnings are returned, not fatal.
func (s *State) OpenImage(path string) ([]error, error) {
	layer, err := image.Load(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s.mu.Lock()
	s.Layer = layer
	s.Current = path
	s.base = nil
	if !s.hasFile(path) {
		s.Files = append(s.Files, path)
	}
	s.mu.Unlock()

	s.Session.OnImageOpened(layer.Size(), path)

	var warnings []error
	jsonPath := store.PathFor(path)
	if HasAnnotations(path) {
		doc, err := store.ReadFile(jsonPath)
		if err != nil {
			log.Printf("Failed to read annotations %s: %v", jsonPath, err)
			warnings = append(warnings, err)
		} else {
			warnings = append(warnings, s.Session.LoadDocument(doc)...)
		}
	} else {
		log.Printf("No annotation file for %s", path)
	}
	for _, w := range warnings {
		log.Printf("Warning: %v", w)
	}

	s.SetModified(false)
	s.Emit(EventImageLoaded, path)
	return warnings, nil
}

// Save writes the current annotations beside the image and returns the
// JSON path.
func (s *State) Save() (string, error) {
	s.mu.RLock()
	current := s.Current
	s.mu.RUnlock()
	if current == "" {
		return "", ErrNoImage
	}

	doc, err := s.Session.SaveDocument()
	if err != nil {
		return "", err
	}
	jsonPath := store.PathFor(current)
	if err := store.WriteFile(jsonPath, doc); err != nil {
		return "", err
	}

	log.Printf("Annotations written to %s", jsonPath)
	s.SetModified(false)
	s.Emit(EventAnnotationsSaved, jsonPath)
	return jsonPath, nil
}

// Adjustment returns the display adjustment of the current image.
func (s *State) Adjustment() image.Adjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.adjustments[s.Current]; ok {
		return a
	}
	return image.DefaultAdjustment()
}

// SetAdjustment changes the display adjustment of the current image.
func (s *State) SetAdjustment(a image.Adjustment) {
	s.mu.Lock()
	if s.Current == "" {
		s.mu.Unlock()
		return
	}
	s.adjustments[s.Current] = a
	s.mu.Unlock()
	s.Emit(EventAdjustmentChanged, a)
}

// DisplayBase returns the adjusted image scaled to display, or nil when
// nothing is open.
func (s *State) DisplayBase(display geometry.Size) goimage.Image {
	adj := s.Adjustment()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Layer == nil || display.IsZero() {
		return nil
	}
	if s.base != nil && s.baseSize == display && s.baseAdj == adj {
		return s.base
	}

	var src goimage.Image = s.Layer.Image
	if !adj.IsNeutral() {
		src = image.Adjust(src, adj)
	}
	s.base = image.FitDisplay(src, display)
	s.baseSize = display
	s.baseAdj = adj
	return s.base
}

// Render lays the session out at display size and returns the composed frame.
func (s *State) Render(display geometry.Size) *goimage.RGBA {
	s.Session.SetViewport(display)
	return s.Session.RenderOverlay(s.DisplayBase(display))
}
