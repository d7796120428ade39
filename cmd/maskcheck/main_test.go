package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/mask"
	"ct-labeler/internal/store"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"
)

var native = geometry.NewSize(80, 60)

func writeDoc(t *testing.T, edit func(doc *store.Document)) string {
	t.Helper()
	set := annotation.NewSet()
	set.Add("liver", annotation.NewEllipse(viewport.Native(40, 30), 15, 10, 20, native))
	set.Add("spleen", annotation.NewPolygon(annotation.KindPolygon, []viewport.NativePoint{
		viewport.Native(5, 5), viewport.Native(25, 5), viewport.Native(25, 20),
	}, native))

	doc, err := store.Save(set, native, "scan.png")
	if err != nil {
		t.Fatal(err)
	}
	if edit != nil {
		edit(doc)
	}
	path := filepath.Join(t.TempDir(), "scan.json")
	if err := store.WriteFile(path, doc); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckFileClean(t *testing.T) {
	var out bytes.Buffer
	res, err := checkFile(writeDoc(t, nil), options{regen: true, minIoU: 0.95}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if !res.ok() {
		t.Errorf("expected a clean file, got %+v\n%s", res, out.String())
	}
	if res.Report.Decoded != 2 {
		t.Errorf("decoded %d masks, want 2", res.Report.Decoded)
	}
}

func TestCheckFileCorruptMask(t *testing.T) {
	path := writeDoc(t, func(doc *store.Document) {
		doc.Annotations[1].Mask = "!!!"
	})
	var out bytes.Buffer
	res, err := checkFile(path, options{}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if res.ok() || res.Report.Failed != 1 {
		t.Errorf("expected one failure, got %+v", res.Report)
	}
	if !strings.Contains(out.String(), "spleen") {
		t.Errorf("failure should name the record:\n%s", out.String())
	}
}

func TestCheckFileSizeMismatch(t *testing.T) {
	path := writeDoc(t, func(doc *store.Document) {
		doc.Annotations[0].OrigSize = [2]float64{160, 120}
	})
	res, err := checkFile(path, options{}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatched != 1 {
		t.Errorf("expected one size mismatch, got %d", res.Mismatched)
	}
}

func TestCheckFileDriftedMask(t *testing.T) {
	path := writeDoc(t, func(doc *store.Document) {
		other := annotation.NewEllipse(viewport.Native(10, 50), 6, 6, 0, native)
		encoded, err := mask.Generate(other, native)
		if err != nil {
			t.Fatal(err)
		}
		doc.Annotations[0].Mask = encoded
	})
	var out bytes.Buffer
	res, err := checkFile(path, options{regen: true, minIoU: 0.95}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Drifted != 1 || res.ok() {
		t.Errorf("expected one drifted mask, got %+v\n%s", res, out.String())
	}
}

func TestCheckFileMissing(t *testing.T) {
	if _, err := checkFile(filepath.Join(t.TempDir(), "none.json"), options{}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a missing file")
	}
}
