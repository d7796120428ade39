// Package canvas provides the annotation canvas widget.
package canvas

import (
	"errors"
	"image"
	"sync"

	"ct-labeler/internal/app"
	"ct-labeler/internal/engine"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// AnnotationCanvas shows the current image stretched to the widget and
// forwards mouse input to the annotation session. All session access is
// serialized through the canvas mutex.
type AnnotationCanvas struct {
	widget.BaseWidget

	mu    sync.Mutex
	state *app.State

	raster *fynecanvas.Raster
	scale  float32 // raster pixels per fyne unit

	onError func(error)
}

var (
	_ desktop.Mouseable  = (*AnnotationCanvas)(nil)
	_ desktop.Hoverable  = (*AnnotationCanvas)(nil)
	_ desktop.Cursorable = (*AnnotationCanvas)(nil)
)

// New creates a canvas bound to state.
func New(state *app.State) *AnnotationCanvas {
	ac := &AnnotationCanvas{state: state, scale: 1}
	ac.raster = fynecanvas.NewRaster(ac.draw)
	ac.raster.ScaleMode = fynecanvas.ImageScalePixels
	ac.ExtendBaseWidget(ac)
	return ac
}

// OnError sets the callback for errors raised by pointer handling.
func (ac *AnnotationCanvas) OnError(callback func(error)) {
	ac.onError = callback
}

// Do runs fn with exclusive access to the session and redraws afterwards.
func (ac *AnnotationCanvas) Do(fn func(s *engine.Session) error) error {
	ac.mu.Lock()
	err := fn(ac.state.Session)
	ac.mu.Unlock()
	ac.Refresh()
	return err
}

// Refresh redraws the canvas.
func (ac *AnnotationCanvas) Refresh() {
	ac.raster.Refresh()
}

// draw is the raster drawing function.
func (ac *AnnotationCanvas) draw(w, h int) image.Image {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if size := ac.Size(); size.Width > 0 {
		ac.scale = float32(w) / size.Width
	}
	if !ac.state.HasImage() || w <= 0 || h <= 0 {
		output := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 3; i < len(output.Pix); i += 4 {
			output.Pix[i] = 255
		}
		return output
	}
	return ac.state.Render(geometry.NewSize(float64(w), float64(h)))
}

func (ac *AnnotationCanvas) toDisplay(pos fyne.Position) viewport.DisplayPoint {
	return viewport.Display(float64(pos.X*ac.scale), float64(pos.Y*ac.scale))
}

// pointer runs one session handler and reports anything but a missing layout.
func (ac *AnnotationCanvas) pointer(pos fyne.Position, handler func(*engine.Session, viewport.DisplayPoint) error) {
	ac.mu.Lock()
	err := handler(ac.state.Session, ac.toDisplay(pos))
	ac.mu.Unlock()

	ac.Refresh()
	if err != nil && !errors.Is(err, viewport.ErrInvalidViewport) && ac.onError != nil {
		ac.onError(err)
	}
}

// MouseDown implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseDown(ev *desktop.MouseEvent) {
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		ac.pointer(ev.Position, (*engine.Session).OnPointerDown)
	case desktop.MouseButtonSecondary:
		// right click finishes a polygon
		if err := ac.Do(func(s *engine.Session) error { return s.ClosePolygon() }); err != nil && ac.onError != nil {
			ac.onError(err)
		}
	}
}

// MouseUp implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	ac.pointer(ev.Position, (*engine.Session).OnPointerUp)
}

// MouseIn implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseIn(ev *desktop.MouseEvent) {
	ac.MouseMoved(ev)
}

// MouseMoved implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ac.pointer(ev.Position, (*engine.Session).OnPointerMove)
}

// MouseOut implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseOut() {}

// Cursor implements desktop.Cursorable.
func (ac *AnnotationCanvas) Cursor() desktop.Cursor {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.state.Session.Mode() == engine.ModeNormal {
		return desktop.DefaultCursor
	}
	return desktop.CrosshairCursor
}

// MinSize keeps the canvas usable before an image is open.
func (ac *AnnotationCanvas) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// CreateRenderer implements fyne.Widget.
func (ac *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ac.raster)
}
