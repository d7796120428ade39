// Package annotation provides the in-memory model for region annotations:
// ellipse and polygon shapes grouped under unique, colored names.
package annotation

import (
	"errors"
	"math"

	"ct-labeler/pkg/geometry"
)

var (
	// ErrDegenerateShape is returned for shapes with zero-area axes or too few vertices.
	ErrDegenerateShape = errors.New("annotation: degenerate shape")

	// ErrNameConflict is returned when a rename or create targets an existing name.
	ErrNameConflict = errors.New("annotation: name already exists")

	// ErrUnknownGroup is returned when a named group does not exist.
	ErrUnknownGroup = errors.New("annotation: unknown group")

	// ErrInvalidName is returned for empty group names.
	ErrInvalidName = errors.New("annotation: empty name")

	// ErrSharedShape is returned when a shape is added to a set that already owns it.
	ErrSharedShape = errors.New("annotation: shape already belongs to a group")
)

// Kind identifies the shape variant. Values match the persisted "shape" field.
type Kind string

const (
	KindEllipse     Kind = "ellipse"
	KindPolygon     Kind = "polygon"
	KindClosedCurve Kind = "closed_curve"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEllipse, KindPolygon, KindClosedCurve:
		return true
	}
	return false
}

// Shape is the common interface for ellipses and polygons.
// All coordinates are in the native frame reported by NativeSize.
type Shape interface {
	// Kind returns the shape variant.
	Kind() Kind

	// NativeSize returns the image resolution the coordinates are expressed in.
	NativeSize() geometry.Size

	// Mask returns the cached base64 PNG mask, or "" when absent.
	Mask() string

	// SetMask replaces the cached mask.
	SetMask(encoded string)

	// Rescale re-projects the geometry onto another native size and drops the mask.
	Rescale(to geometry.Size)

	// Validate returns ErrDegenerateShape when the shape encloses no area.
	Validate() error

	// Clone returns a deep copy.
	Clone() Shape
}

// Ref names one shape inside a Set.
type Ref struct {
	Group string
	Index int
}

// Equal reports whether two shapes have the same kind and geometry within tol.
// Masks are not compared. Ellipses are compared through their derived
// parameters, so a two-point ellipse equals its canonical upgrade.
func Equal(a, b Shape, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.NativeSize() != b.NativeSize() {
		return false
	}

	switch sa := a.(type) {
	case *Ellipse:
		sb, ok := b.(*Ellipse)
		if !ok {
			return false
		}
		pa, pb := sa.Params(), sb.Params()
		return near(pa.Center.X, pb.Center.X, tol) && near(pa.Center.Y, pb.Center.Y, tol) &&
			near(pa.Axes.X, pb.Axes.X, tol) && near(pa.Axes.Y, pb.Axes.Y, tol) &&
			near(pa.Angle, pb.Angle, tol)
	case *Polygon:
		sb, ok := b.(*Polygon)
		if !ok || len(sa.Points) != len(sb.Points) {
			return false
		}
		for i := range sa.Points {
			if !near(sa.Points[i].X, sb.Points[i].X, tol) || !near(sa.Points[i].Y, sb.Points[i].Y, tol) {
				return false
			}
		}
		return true
	}
	return false
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
