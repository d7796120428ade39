// Command maskcheck validates the masks embedded in annotation JSON files.
//
// Every mask must decode, and its size must match the record's orig_size.
// With -regen each shape is rasterized again from its geometry and compared
// with the stored mask.
package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/mask"
	"ct-labeler/internal/store"
	"ct-labeler/pkg/geometry"
)

type options struct {
	regen   bool
	minIoU  float64
	verbose bool
}

// fileResult is the outcome of checking one document.
type fileResult struct {
	Report     mask.Report
	Mismatched int // decoded masks whose size differs from orig_size
	Drifted    int // masks below the IoU threshold after regeneration
}

func (r fileResult) ok() bool {
	return r.Report.OK() && r.Mismatched == 0 && r.Drifted == 0
}

func main() {
	regen := flag.Bool("regen", false, "Rasterize shapes again and compare with the stored masks")
	minIoU := flag.Float64("min-iou", 0.95, "Minimum overlap between stored and regenerated masks")
	verbose := flag.Bool("v", false, "Print every record")
	dir := flag.String("dir", "", "Check every .json file in this directory")
	flag.Parse()

	paths := flag.Args()
	if *dir != "" {
		found, err := filepath.Glob(filepath.Join(*dir, "*.json"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad directory: %v\n", err)
			os.Exit(1)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		fmt.Println("Usage: maskcheck [-regen] [-min-iou 0.95] [-v] [-dir <dir>] <file.json>...")
		os.Exit(1)
	}

	opts := options{regen: *regen, minIoU: *minIoU, verbose: *verbose}
	failed := 0
	for _, path := range paths {
		res, err := checkFile(path, opts, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if !res.ok() {
			failed++
		}
	}

	fmt.Printf("\n%d files checked, %d with problems\n", len(paths), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// checkFile validates one annotation document and writes a summary to out.
func checkFile(path string, opts options, out io.Writer) (fileResult, error) {
	var res fileResult

	doc, err := store.ReadFile(path)
	if err != nil {
		return res, err
	}
	fmt.Fprintf(out, "%s (%v)\n", path, doc.FilePath)

	for i, rec := range doc.Annotations {
		label := fmt.Sprintf("#%d %s/%s", i, rec.Name, rec.Shape)
		m, ok := res.Report.Check(label, rec.Mask)
		if !ok {
			continue
		}
		w, h := int(rec.OrigSize[0]), int(rec.OrigSize[1])
		size := m.Bounds().Size()
		if w > 0 && h > 0 && (size.X != w || size.Y != h) {
			res.Mismatched++
			fmt.Fprintf(out, "  %s: mask is %dx%d, orig_size is %dx%d\n", label, size.X, size.Y, w, h)
		} else if opts.verbose {
			fmt.Fprintf(out, "  %s: %dx%d, %d px\n", label, size.X, size.Y, mask.Area(m))
		}
	}
	for _, f := range res.Report.Failures {
		fmt.Fprintf(out, "  %s: %v\n", f.Label, f.Err)
	}

	if opts.regen {
		drifted, err := compareRegenerated(doc, opts, out)
		if err != nil {
			return res, err
		}
		res.Drifted = drifted
	}

	fmt.Fprintf(out, "  %s\n", res.Report.String())
	return res, nil
}

// compareRegenerated rasterizes every loadable shape and counts stored masks
// that overlap their regenerated version less than opts.minIoU.
func compareRegenerated(doc *store.Document, opts options, out io.Writer) (int, error) {
	set, _ := store.Load(doc, fallbackSize(doc))

	drifted := 0
	var firstErr error
	set.Each(func(ref annotation.Ref, _ *annotation.Group, shape annotation.Shape) bool {
		if shape.Mask() == "" {
			return true
		}
		stored, err := mask.Decode(shape.Mask())
		if err != nil {
			return true
		}
		fresh, err := mask.Rasterize(shape, sizeOf(stored))
		if err != nil {
			firstErr = err
			return false
		}
		iou, err := mask.IoU(stored, fresh)
		if err != nil {
			firstErr = err
			return false
		}
		if iou < opts.minIoU {
			drifted++
			fmt.Fprintf(out, "  %s #%d: stored mask overlaps geometry at %.3f\n", ref.Group, ref.Index, iou)
		}
		return true
	})
	return drifted, firstErr
}

// fallbackSize is the first orig_size in doc, used for records without one.
func fallbackSize(doc *store.Document) geometry.Size {
	for _, rec := range doc.Annotations {
		if rec.OrigSize[0] > 0 && rec.OrigSize[1] > 0 {
			return geometry.NewSize(rec.OrigSize[0], rec.OrigSize[1])
		}
	}
	return geometry.Size{}
}

func sizeOf(m *image.Gray) geometry.Size {
	b := m.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}
