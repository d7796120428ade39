// Package main provides the entry point for the CT Labeler application.
package main

import (
	"log"
	"os"

	"ct-labeler/internal/app"
	"ct-labeler/internal/engine"
	"ct-labeler/internal/version"
	"ct-labeler/ui/mainwindow"
	"ct-labeler/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting CT Labeler %s", version.String())

	appPrefs := prefs.Load()

	opts := engine.DefaultOptions()
	opts.HandleTolerance = appPrefs.FloatWithFallback(prefs.KeyHandleTolerance, opts.HandleTolerance)
	opts.MinAxis = appPrefs.FloatWithFallback(prefs.KeyMinAxis, opts.MinAxis)
	opts.HideLabels = !appPrefs.Bool(prefs.KeyShowLabels, true)

	fyneApp := fyneapp.NewWithID("io.ctlabeler")
	fyneApp.Settings().SetTheme(&app.LabelerTheme{})

	appState := app.NewState(opts)
	win := mainwindow.New(fyneApp, appState, appPrefs)

	// Images given on the command line
	if len(os.Args) > 1 {
		win.AddFiles(os.Args[1:])
	}

	win.ShowAndRun()
}
