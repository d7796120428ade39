// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/app"
	"ct-labeler/internal/engine"
	ctimage "ct-labeler/internal/image"
	"ct-labeler/internal/version"
	"ct-labeler/ui/canvas"
	"ct-labeler/ui/panels"
	"ct-labeler/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const appTitle = "CT Labeler"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.AnnotationCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()

	w := p.FloatWithFallback(prefs.KeyWindowWidth, 1280)
	h := p.FloatWithFallback(prefs.KeyWindowHeight, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))
	mw.SetCloseIntercept(mw.onClose)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.state)
	mw.canvas.OnError(func(err error) {
		if errors.Is(err, annotation.ErrDegenerateShape) {
			mw.updateStatus("Shape discarded: too small")
			return
		}
		dialog.ShowError(err, mw.Window)
	})

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas)
	mw.sidePanel.SetWindow(mw.Window)
	mw.sidePanel.OnOpen(mw.openImage)

	mw.statusBar = widget.NewLabel("Open an image to start")

	split := container.NewHSplit(mw.sidePanel.Container(), mw.canvas)
	split.SetOffset(0.2)

	mw.SetContent(container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItem("Open Folder...", mw.onOpenFolder),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Annotations", mw.onSave),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Finish Polygon", mw.onClosePolygon),
		fyne.NewMenuItem("Delete Shape", mw.sidePanel.DeleteSelected),
		fyne.NewMenuItem("Remove File From List", mw.onRemoveFile),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Keys", mw.onKeys),
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))
}

// setupShortcuts binds the single-key mode switches, Delete and Ctrl+S.
func (mw *MainWindow) setupShortcuts() {
	c := mw.Canvas()
	c.SetOnTypedRune(func(r rune) {
		switch r {
		case 'n':
			mw.sidePanel.SetMode(engine.ModeNormal)
		case 'e':
			mw.sidePanel.SetMode(engine.ModeEllipse)
		case 'p':
			mw.sidePanel.SetMode(engine.ModePolygon)
		case 'c':
			mw.sidePanel.SetMode(engine.ModeClosedCurve)
		}
	})
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.sidePanel.DeleteSelected()
		case fyne.KeyReturn, fyne.KeyEnter:
			mw.onClosePolygon()
		case fyne.KeyEscape:
			mw.canvas.Do(func(s *engine.Session) error {
				s.ClearSelection()
				return nil
			})
		}
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		mw.onSave()
	})
}

// setupEventHandlers registers for application and session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + filepath.Base(path))
			mw.updateStatus("Image loaded: " + path)
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		title := appTitle
		if mw.state.Current != "" {
			title += " - " + filepath.Base(mw.state.Current)
		}
		if modified, ok := data.(bool); ok && modified {
			title += " *"
		}
		mw.SetTitle(title)
	})

	mw.state.On(app.EventAnnotationsSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
		}
	})

	// Runs with the canvas lock held; the dialog callbacks run later.
	mw.state.Session.On(engine.EventPendingShape, func(data interface{}) {
		kind, _ := data.(annotation.Kind)
		mw.promptName(kind)
	})

	mw.state.Session.On(engine.EventSelectionChanged, func(data interface{}) {
		if ref, ok := data.(annotation.Ref); ok {
			mw.updateStatus(fmt.Sprintf("Selected %s #%d", ref.Group, ref.Index+1))
		}
	})
}

// promptName asks for the group of the shape just drawn.
func (mw *MainWindow) promptName(kind annotation.Kind) {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("e.g. liver")
	dialog.ShowForm(fmt.Sprintf("Name %s", kind), "Save", "Discard",
		[]*widget.FormItem{widget.NewFormItem("Annotation", entry)},
		func(ok bool) {
			err := mw.canvas.Do(func(s *engine.Session) error {
				if !ok {
					s.DiscardPending()
					return nil
				}
				_, err := s.CommitPending(entry.Text)
				if err != nil {
					s.DiscardPending()
				}
				return err
			})
			if err != nil {
				dialog.ShowError(err, mw.Window)
			}
		}, mw.Window)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// lastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) lastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// AddFiles queues images given on the command line and opens the first.
func (mw *MainWindow) AddFiles(paths []string) {
	if mw.state.AddFiles(paths...) > 0 && mw.state.Current == "" {
		mw.openImage(mw.state.Files[0])
	}
}

// openImage switches to path, asking first when there are unsaved edits.
func (mw *MainWindow) openImage(path string) {
	load := func() {
		var (
			warnings []error
			err      error
		)
		mw.canvas.Do(func(*engine.Session) error {
			warnings, err = mw.state.OpenImage(path)
			return nil
		})
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(path))
		if len(warnings) > 0 {
			mw.updateStatus(fmt.Sprintf("Loaded with %d warnings (see log)", len(warnings)))
		}
	}

	if !mw.state.Modified {
		load()
		return
	}
	dialog.ShowConfirm("Unsaved Annotations",
		"Annotations on the current image are not saved. Discard them?",
		func(ok bool) {
			if ok {
				load()
			}
		}, mw.Window)
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.state.AddFiles(path)
		mw.openImage(path)
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(ctimage.SupportedFormats()))
	if loc := mw.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenFolder() {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		paths, err := ctimage.ListImages(uri.Path())
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		log.Printf("Found %d images in %s", len(paths), uri.Path())
		mw.AddFiles(paths)
	}, mw.Window)
	if loc := mw.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSave() {
	if mw.state.Current == "" {
		return
	}
	save := func() {
		var (
			path string
			err  error
		)
		mw.canvas.Do(func(*engine.Session) error {
			path, err = mw.state.Save()
			return nil
		})
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		dialog.ShowInformation("Save Complete", "Annotations saved to:\n"+path, mw.Window)
	}

	if !app.HasAnnotations(mw.state.Current) {
		save()
		return
	}
	dialog.ShowConfirm("Overwrite Confirmation",
		"An annotation file already exists for this image. Overwrite it?",
		func(ok bool) {
			if ok {
				save()
			}
		}, mw.Window)
}

func (mw *MainWindow) onClosePolygon() {
	err := mw.canvas.Do(func(s *engine.Session) error { return s.ClosePolygon() })
	if err != nil {
		mw.updateStatus("Polygon discarded: " + err.Error())
	}
}

func (mw *MainWindow) onRemoveFile() {
	if mw.state.Current == "" {
		return
	}
	mw.canvas.Do(func(*engine.Session) error {
		mw.state.RemoveFile(mw.state.Current)
		return nil
	})
	mw.SetTitle(appTitle)
}

// SavePreferences records the window size.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	if err := mw.prefs.Save(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

func (mw *MainWindow) onClose() {
	quit := func() {
		mw.SavePreferences()
		mw.Window.Close()
	}
	if !mw.state.Modified {
		quit()
		return
	}
	dialog.ShowConfirm("Unsaved Annotations", "Quit without saving?", func(ok bool) {
		if ok {
			quit()
		}
	}, mw.Window)
}

func (mw *MainWindow) onKeys() {
	dialog.ShowInformation("Keys",
		"n  select and edit\n"+
			"e  draw ellipse\n"+
			"p  draw polygon (Enter or right click to finish)\n"+
			"c  draw closed curve\n"+
			"Delete  remove selected shape\n"+
			"Esc  clear selection\n"+
			"Ctrl+S  save annotations",
		mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s %s\n\n"+
			"Ellipse, polygon and closed-curve labeling\n"+
			"for medical images, with mask export.",
			appTitle, version.String()),
		mw.Window)
}
