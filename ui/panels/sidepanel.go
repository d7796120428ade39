// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"path/filepath"
	"strings"

	"ct-labeler/internal/app"
	"ct-labeler/internal/engine"
	ctimage "ct-labeler/internal/image"
	"ct-labeler/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// Modes in the order shown by the mode selector.
var Modes = []engine.Mode{engine.ModeNormal, engine.ModeEllipse, engine.ModePolygon, engine.ModeClosedCurve}

func modeLabels() []string {
	out := make([]string, len(Modes))
	for i, m := range Modes {
		out[i] = m.String()
	}
	return out
}

// SidePanel holds the file list, mode selector, display adjustments and
// the annotation group list.
//
// Session events fire while the canvas lock is held, so listeners here read
// the session directly and never call canvas.Do.
type SidePanel struct {
	state     *app.State
	canvas    *canvas.AnnotationCanvas
	window    fyne.Window
	container fyne.CanvasObject

	files      *widget.List
	groups     *widget.List
	groupRows  []string
	groupNames []string
	selected   string

	modes      *widget.RadioGroup
	brightness *widget.Slider
	sharpness  *widget.Slider
	syncing    bool

	onOpen func(path string)
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, cvs *canvas.AnnotationCanvas) *SidePanel {
	sp := &SidePanel{state: state, canvas: cvs}

	sp.files = widget.NewList(
		func() int { return len(sp.state.Files) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			path := sp.state.Files[id]
			name := filepath.Base(path)
			if app.HasAnnotations(path) {
				name += "  [json]"
			}
			obj.(*widget.Label).SetText(name)
		},
	)
	sp.files.OnSelected = func(id widget.ListItemID) {
		if id < len(sp.state.Files) && sp.onOpen != nil && sp.state.Files[id] != sp.state.Current {
			sp.onOpen(sp.state.Files[id])
		}
	}

	sp.groups = widget.NewList(
		func() int { return len(sp.groupRows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(sp.groupRows[id])
		},
	)
	sp.groups.OnSelected = func(id widget.ListItemID) {
		if id < len(sp.groupNames) {
			sp.selected = sp.groupNames[id]
		}
	}

	sp.modes = widget.NewRadioGroup(modeLabels(), func(label string) {
		for _, m := range Modes {
			if m.String() == label {
				sp.canvas.Do(func(s *engine.Session) error {
					s.SetMode(m)
					return nil
				})
			}
		}
	})
	sp.modes.SetSelected(engine.ModeNormal.String())

	sp.brightness = widget.NewSlider(0, 100)
	sp.brightness.Step = 1
	sp.sharpness = widget.NewSlider(0, 10)
	sp.sharpness.Step = 1
	sp.brightness.OnChanged = func(float64) { sp.applyAdjustment() }
	sp.sharpness.OnChanged = func(float64) { sp.applyAdjustment() }
	sp.syncAdjustment()

	resetBtn := widget.NewButton("Reset", func() {
		sp.state.SetAdjustment(ctimage.DefaultAdjustment())
		sp.syncAdjustment()
		sp.canvas.Refresh()
	})
	renameBtn := widget.NewButton("Rename", sp.onRename)
	deleteBtn := widget.NewButton("Delete Shape", sp.DeleteSelected)

	controls := container.NewVBox(
		widget.NewLabelWithStyle("Mode", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sp.modes,
		widget.NewSeparator(),
		widget.NewLabel("Brightness"),
		sp.brightness,
		widget.NewLabel("Sharpness"),
		sp.sharpness,
		resetBtn,
	)

	sp.container = container.NewBorder(
		controls, nil, nil, nil,
		container.NewVSplit(
			container.NewBorder(widget.NewLabel("Files"), nil, nil, nil, sp.files),
			container.NewBorder(widget.NewLabel("Annotations"), container.NewHBox(renameBtn, deleteBtn), nil, nil, sp.groups),
		),
	)

	sp.setupEventHandlers()
	return sp
}

func (sp *SidePanel) setupEventHandlers() {
	sp.state.On(app.EventFilesChanged, func(interface{}) {
		sp.files.Refresh()
	})
	sp.state.On(app.EventAnnotationsSaved, func(interface{}) {
		sp.files.Refresh()
	})
	sp.state.On(app.EventImageLoaded, func(interface{}) {
		sp.syncAdjustment()
		sp.files.Refresh()
	})
	sp.state.Session.On(engine.EventShapesChanged, func(interface{}) {
		sp.refreshGroups(sp.state.Session)
	})
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.window = w
}

// OnOpen sets the callback for choosing a file from the list.
func (sp *SidePanel) OnOpen(callback func(path string)) {
	sp.onOpen = callback
}

// SetMode selects mode in the mode selector, which switches the session.
func (sp *SidePanel) SetMode(mode engine.Mode) {
	sp.modes.SetSelected(mode.String())
}

// DeleteSelected removes the selected shape.
func (sp *SidePanel) DeleteSelected() {
	sp.canvas.Do(func(s *engine.Session) error {
		s.DeleteSelected()
		return nil
	})
}

func (sp *SidePanel) refreshGroups(s *engine.Session) {
	groups := s.Set().Groups()
	sp.groupNames = sp.groupNames[:0]
	sp.groupRows = sp.groupRows[:0]
	for _, g := range groups {
		sp.groupNames = append(sp.groupNames, g.Name)
		sp.groupRows = append(sp.groupRows, fmt.Sprintf("%s (%d)", g.Name, len(g.Shapes)))
	}
	sp.groups.Refresh()
}

func (sp *SidePanel) applyAdjustment() {
	if sp.syncing {
		return
	}
	sp.state.SetAdjustment(ctimage.Adjustment{
		Brightness: int(sp.brightness.Value),
		Sharpness:  int(sp.sharpness.Value),
	})
	sp.canvas.Refresh()
}

// syncAdjustment moves the sliders to the current image's settings.
func (sp *SidePanel) syncAdjustment() {
	a := sp.state.Adjustment()
	sp.syncing = true
	sp.brightness.SetValue(float64(a.Brightness))
	sp.sharpness.SetValue(float64(a.Sharpness))
	sp.syncing = false
}

func (sp *SidePanel) onRename() {
	if sp.selected == "" || sp.window == nil {
		return
	}
	old := sp.selected
	entry := widget.NewEntry()
	entry.SetText(old)
	dialog.ShowForm("Rename Annotation", "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			err := sp.canvas.Do(func(s *engine.Session) error {
				return s.RenameGroup(old, entry.Text)
			})
			if err != nil {
				dialog.ShowError(err, sp.window)
				return
			}
			sp.selected = strings.TrimSpace(entry.Text)
		}, sp.window)
}
