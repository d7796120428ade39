package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMissingFileGivesFallbacks(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "none.json"))
	if got := p.FloatWithFallback(KeyHandleTolerance, 10); got != 10 {
		t.Errorf("tolerance = %v", got)
	}
	if p.String(KeyLastDir) != "" {
		t.Error("expected empty last dir")
	}
	if !p.Bool(KeyShowLabels, true) {
		t.Error("expected bool fallback")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)
	p := LoadFrom(path)
	p.SetFloat(KeyHandleTolerance, 14)
	p.SetString(KeyLastDir, "/data/scans")
	p.SetBool(KeyShowLabels, false)
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}

	q := LoadFrom(path)
	if q.FloatWithFallback(KeyHandleTolerance, 10) != 14 {
		t.Error("tolerance not persisted")
	}
	if q.String(KeyLastDir) != "/data/scans" {
		t.Error("last dir not persisted")
	}
	if q.Bool(KeyShowLabels, true) {
		t.Error("bool not persisted")
	}
}

func TestCorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	if err := os.WriteFile(path, []byte("]]"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := LoadFrom(path)
	if p.FloatWithFallback(KeyMinAxis, 5) != 5 {
		t.Error("corrupt file should yield fallbacks")
	}
}
