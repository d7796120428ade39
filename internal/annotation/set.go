package annotation

import (
	"fmt"
	"image/color"

	"ct-labeler/pkg/colorutil"
)

// Group is a named, colored collection of shapes. Later shapes draw on top.
type Group struct {
	Name   string
	Color  color.RGBA
	Shapes []Shape
}

// Set maps unique group names to groups, remembering insertion order.
// Selection scans depend on that order, so it is never re-sorted.
type Set struct {
	order  []string
	groups map[string]*Group
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{groups: make(map[string]*Group)}
}

// Len returns the number of groups.
func (s *Set) Len() int {
	return len(s.order)
}

// ShapeCount returns the number of shapes across all groups.
func (s *Set) ShapeCount() int {
	n := 0
	for _, g := range s.groups {
		n += len(g.Shapes)
	}
	return n
}

// Names returns group names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Groups returns groups in insertion order.
func (s *Set) Groups() []*Group {
	out := make([]*Group, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.groups[name])
	}
	return out
}

// Group returns the named group.
func (s *Set) Group(name string) (*Group, bool) {
	g, ok := s.groups[name]
	return g, ok
}

// ColorFor returns the color an annotation under name would get: the group's
// color when it exists, otherwise the next palette entry.
func (s *Set) ColorFor(name string) color.RGBA {
	if g, ok := s.groups[name]; ok {
		return g.Color
	}
	return colorutil.PaletteColor(len(s.order))
}

// Add appends shape to the named group, creating the group with the next
// palette color when needed.
func (s *Set) Add(name string, shape Shape) (*Group, error) {
	return s.AddWithColor(name, s.ColorFor(name), shape)
}

// AddWithColor appends shape to the named group. A new group takes col; an
// existing group keeps its color.
func (s *Set) AddWithColor(name string, col color.RGBA, shape Shape) (*Group, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if shape == nil {
		return nil, fmt.Errorf("nil shape: %w", ErrDegenerateShape)
	}
	if s.owns(shape) {
		return nil, ErrSharedShape
	}

	g, ok := s.groups[name]
	if !ok {
		g = &Group{Name: name, Color: col}
		s.groups[name] = g
		s.order = append(s.order, name)
	}
	g.Shapes = append(g.Shapes, shape)
	return g, nil
}

// owns reports whether the exact shape value is already held by a group.
func (s *Set) owns(shape Shape) bool {
	for _, g := range s.groups {
		for _, existing := range g.Shapes {
			if existing == shape {
				return true
			}
		}
	}
	return false
}

// Shape returns the shape a ref points at.
func (s *Set) Shape(ref Ref) (Shape, bool) {
	g, ok := s.groups[ref.Group]
	if !ok || ref.Index < 0 || ref.Index >= len(g.Shapes) {
		return nil, false
	}
	return g.Shapes[ref.Index], true
}

// Delete removes the referenced shape. When the group becomes empty it is
// removed too. It returns false when the ref points at nothing.
func (s *Set) Delete(ref Ref) (removed, groupRemoved bool) {
	g, ok := s.groups[ref.Group]
	if !ok || ref.Index < 0 || ref.Index >= len(g.Shapes) {
		return false, false
	}

	g.Shapes = append(g.Shapes[:ref.Index], g.Shapes[ref.Index+1:]...)
	if len(g.Shapes) > 0 {
		return true, false
	}

	delete(s.groups, ref.Group)
	for i, name := range s.order {
		if name == ref.Group {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, true
}

// Rename changes a group's name in place, keeping its position.
func (s *Set) Rename(oldName, newName string) error {
	if newName == "" {
		return ErrInvalidName
	}
	g, ok := s.groups[oldName]
	if !ok {
		return fmt.Errorf("rename %q: %w", oldName, ErrUnknownGroup)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := s.groups[newName]; exists {
		return fmt.Errorf("rename %q to %q: %w", oldName, newName, ErrNameConflict)
	}

	delete(s.groups, oldName)
	g.Name = newName
	s.groups[newName] = g
	for i, name := range s.order {
		if name == oldName {
			s.order[i] = newName
			break
		}
	}
	return nil
}

// Clear removes every group.
func (s *Set) Clear() {
	s.order = nil
	s.groups = make(map[string]*Group)
}

// Each calls fn for every shape in scan order: groups by insertion, then
// shapes by index. Returning false stops the walk.
func (s *Set) Each(fn func(ref Ref, g *Group, shape Shape) bool) {
	for _, name := range s.order {
		g := s.groups[name]
		for i, shape := range g.Shapes {
			if !fn(Ref{Group: name, Index: i}, g, shape) {
				return
			}
		}
	}
}

// EqualSets reports whether two sets hold the same groups, colors and shapes
// in the same order, comparing geometry within tol.
func EqualSets(a, b *Set, tol float64) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i, name := range a.order {
		if b.order[i] != name {
			return false
		}
		ga, gb := a.groups[name], b.groups[name]
		if ga.Color != gb.Color || len(ga.Shapes) != len(gb.Shapes) {
			return false
		}
		for j := range ga.Shapes {
			if !Equal(ga.Shapes[j], gb.Shapes[j], tol) {
				return false
			}
		}
	}
	return true
}
