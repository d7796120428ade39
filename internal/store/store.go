package store

import (
	"fmt"
	"log"
	"path/filepath"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/mask"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/colorutil"
	"ct-labeler/pkg/geometry"
)

// Save builds a document from set against the current native image size.
//
// Every shape is brought into the native frame first, so stale geometry is
// re-projected and its mask regenerated. Two-point ellipses are upgraded to
// canonical form. Ellipse masks are kept when present; polygon masks are
// always regenerated. Shapes in set are updated in place.
func Save(set *annotation.Set, native geometry.Size, imagePath string) (*Document, error) {
	if native.IsZero() {
		return nil, fmt.Errorf("save with %vx%v image: %w", native.Width, native.Height, viewport.ErrInvalidViewport)
	}

	doc := &Document{
		FilePath:    []string{filepath.Base(imagePath)},
		Annotations: []Record{},
	}

	var saveErr error
	set.Each(func(ref annotation.Ref, g *annotation.Group, shape annotation.Shape) bool {
		shape.Rescale(native)

		rec := Record{
			Name:     g.Name,
			Shape:    string(shape.Kind()),
			Color:    colorutil.Triple(g.Color),
			OrigSize: [2]float64{native.Width, native.Height},
		}

		switch s := shape.(type) {
		case *annotation.Ellipse:
			s.Normalize()
			if _, err := mask.Ensure(s); err != nil {
				saveErr = fmt.Errorf("%s #%d: %w", ref.Group, ref.Index, err)
				return false
			}
			rec.Center = &[2]float64{s.Center.X, s.Center.Y}
			rec.Axes = &[2]float64{s.Axes.X, s.Axes.Y}
			angle := s.Angle
			rec.Angle = &angle
		case *annotation.Polygon:
			encoded, err := mask.Generate(s, native)
			if err != nil {
				saveErr = fmt.Errorf("%s #%d: %w", ref.Group, ref.Index, err)
				return false
			}
			s.SetMask(encoded)
			rec.Points = make([][2]float64, len(s.Points))
			for i, p := range s.Points {
				rec.Points[i] = [2]float64{p.X, p.Y}
			}
		default:
			saveErr = fmt.Errorf("%s #%d: unsupported shape %T", ref.Group, ref.Index, shape)
			return false
		}

		rec.Mask = shape.Mask()
		doc.Annotations = append(doc.Annotations, rec)
		return true
	})
	if saveErr != nil {
		return nil, saveErr
	}

	return doc, nil
}

// Load rebuilds an annotation set from doc. Records without orig_size are
// taken to be in the fallback frame. Problems with individual records are
// returned as warnings: invalid records are skipped, and masks that fail to
// decode are dropped so that the next save regenerates them. Both ellipse
// encodings are kept as found.
func Load(doc *Document, fallback geometry.Size) (*annotation.Set, []error) {
	set := annotation.NewSet()
	var warnings []error

	for i, rec := range doc.Annotations {
		shape, err := decodeRecord(rec, fallback)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("record %d (%s): %w", i, rec.Name, err))
			continue
		}

		if rec.Mask != "" {
			if _, err := mask.Decode(rec.Mask); err != nil {
				warnings = append(warnings, fmt.Errorf("record %d (%s): %w", i, rec.Name, err))
			} else {
				shape.SetMask(rec.Mask)
			}
		}

		if _, err := set.AddWithColor(rec.Name, colorutil.RGB(rec.Color), shape); err != nil {
			warnings = append(warnings, fmt.Errorf("record %d: %w", i, err))
		}
	}

	for _, w := range warnings {
		log.Printf("load: %v", w)
	}
	return set, warnings
}

func decodeRecord(rec Record, fallback geometry.Size) (annotation.Shape, error) {
	frame := geometry.NewSize(rec.OrigSize[0], rec.OrigSize[1])
	if frame.IsZero() {
		frame = fallback
	}

	var shape annotation.Shape
	switch kind := annotation.Kind(rec.Shape); kind {
	case annotation.KindEllipse:
		switch {
		case rec.Canonical():
			if rec.Axes == nil {
				return nil, fmt.Errorf("ellipse without axes: %w", ErrInvalidRecord)
			}
			angle := 0.0
			if rec.Angle != nil {
				angle = *rec.Angle
			}
			shape = annotation.NewEllipse(viewport.Native(rec.Center[0], rec.Center[1]),
				rec.Axes[0], rec.Axes[1], angle, frame)
		case len(rec.Points) >= 2:
			shape = annotation.NewTwoPointEllipse(
				viewport.Native(rec.Points[0][0], rec.Points[0][1]),
				viewport.Native(rec.Points[1][0], rec.Points[1][1]), frame)
		default:
			return nil, fmt.Errorf("ellipse without center or corner points: %w", ErrInvalidRecord)
		}
	case annotation.KindPolygon, annotation.KindClosedCurve:
		pts := make([]viewport.NativePoint, len(rec.Points))
		for i, p := range rec.Points {
			pts[i] = viewport.Native(p[0], p[1])
		}
		shape = annotation.NewPolygon(kind, pts, frame)
	default:
		return nil, fmt.Errorf("unknown shape %q: %w", rec.Shape, ErrInvalidRecord)
	}

	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}
