// Package edit implements the move, resize and rotate gestures for ellipse
// annotations. Every drag recomputes the ellipse from the snapshot taken at
// press time plus the total pointer displacement, and applies it live.
package edit

import (
	"errors"
	"fmt"
	"math"

	"ct-labeler/internal/annotation"
	"ct-labeler/internal/hittest"
	"ct-labeler/internal/viewport"
	"ct-labeler/pkg/geometry"
)

// MinAxis is the smallest semi-axis a resize can produce, in native units.
const MinAxis = 5.0

var (
	// ErrSessionActive is returned by Press while another gesture is running.
	ErrSessionActive = errors.New("edit: session already active")

	// ErrNotEditable is returned when the target is missing or not an ellipse.
	ErrNotEditable = errors.New("edit: target is not an editable ellipse")
)

// State is the gesture currently in progress.
type State int

const (
	Idle State = iota
	Moving
	Resizing
	Rotating
)

func (s State) String() string {
	switch s {
	case Moving:
		return "moving"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	default:
		return "idle"
	}
}

func stateFor(a hittest.Action) State {
	switch a {
	case hittest.Move:
		return Moving
	case hittest.Resize:
		return Resizing
	case hittest.Rotate:
		return Rotating
	}
	return Idle
}

// Session is the snapshot taken when a gesture starts.
type Session struct {
	State        State
	Target       annotation.Ref
	Handle       hittest.Handle
	StartPointer viewport.DisplayPoint
	Start        annotation.EllipseParams

	shape *annotation.Ellipse
}

// Machine tracks at most one gesture.
type Machine struct {
	Tolerance float64 // handle radius in display pixels
	MinAxis   float64 // native units

	session *Session
}

// NewMachine creates an idle machine. Non-positive values take the defaults.
func NewMachine(tolerance, minAxis float64) *Machine {
	if tolerance <= 0 {
		tolerance = hittest.DefaultTolerance
	}
	if minAxis <= 0 {
		minAxis = MinAxis
	}
	return &Machine{Tolerance: tolerance, MinAxis: minAxis}
}

// State returns the current state.
func (m *Machine) State() State {
	if m.session == nil {
		return Idle
	}
	return m.session.State
}

// Session returns a copy of the active session.
func (m *Machine) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Press starts a gesture on target when p hits one of its regions. A miss
// leaves the machine Idle and returns no error. Two-point ellipses are
// upgraded to canonical form, and stale geometry is rescaled to the mapper's
// native size, only once a gesture actually starts.
func (m *Machine) Press(set *annotation.Set, target annotation.Ref, mp viewport.Mapper, p viewport.DisplayPoint) (State, error) {
	if m.session != nil {
		return m.session.State, ErrSessionActive
	}
	if !mp.Valid() {
		return Idle, viewport.ErrInvalidViewport
	}
	shape, ok := set.Shape(target)
	if !ok {
		return Idle, fmt.Errorf("%s #%d: %w", target.Group, target.Index, ErrNotEditable)
	}
	e, ok := shape.(*annotation.Ellipse)
	if !ok {
		return Idle, fmt.Errorf("%s #%d is a %s: %w", target.Group, target.Index, shape.Kind(), ErrNotEditable)
	}

	probe := e
	if e.NativeSize() != mp.Native() {
		probe = e.Clone().(*annotation.Ellipse)
		probe.Rescale(mp.Native())
	}
	center, axes, angle := hittest.DisplayEllipse(probe, mp)
	hit := hittest.Classify(p, center, axes, angle, m.Tolerance)
	if hit.Action == hittest.None {
		return Idle, nil
	}

	e.Rescale(mp.Native())
	e.Normalize()
	m.session = &Session{
		State:        stateFor(hit.Action),
		Target:       target,
		Handle:       hit.Handle,
		StartPointer: p,
		Start:        e.Params(),
		shape:        e,
	}
	return m.session.State, nil
}

// Drag applies the gesture for pointer position p. It returns false when no
// gesture is running or the target shape no longer exists.
func (m *Machine) Drag(set *annotation.Set, mp viewport.Mapper, p viewport.DisplayPoint) bool {
	s := m.session
	if s == nil || !mp.Valid() {
		return false
	}
	current, ok := set.Shape(s.Target)
	if !ok || current != annotation.Shape(s.shape) {
		return false
	}

	next := s.Start
	switch s.State {
	case Moving:
		delta := mp.LengthToNative(p.Point2D().Sub(s.StartPointer.Point2D()))
		next.Center = viewport.NativeFrom(s.Start.Center.Point2D().Add(delta))
	case Resizing:
		delta := mp.LengthToNative(p.Point2D().Sub(s.StartPointer.Point2D()))
		next.Axes = resize(s.Start.Axes, s.Handle, delta, m.MinAxis)
	case Rotating:
		center := s.Start.Center.Point2D()
		from := mp.ToNative(s.StartPointer).Point2D().AngleFrom(center)
		to := mp.ToNative(p).Point2D().AngleFrom(center)
		next.Angle = geometry.NormalizeDegrees(s.Start.Angle + to - from)
	default:
		return false
	}

	s.shape.SetParams(next)
	return true
}

// resize grows or shrinks the axis belonging to h. Right and bottom add the
// delta, left and top subtract it. The center stays put.
func resize(axes geometry.Point2D, h hittest.Handle, delta geometry.Point2D, floor float64) geometry.Point2D {
	switch h {
	case hittest.Right:
		axes.X = math.Max(floor, axes.X+delta.X)
	case hittest.Left:
		axes.X = math.Max(floor, axes.X-delta.X)
	case hittest.Bottom:
		axes.Y = math.Max(floor, axes.Y+delta.Y)
	case hittest.Top:
		axes.Y = math.Max(floor, axes.Y-delta.Y)
	}
	return axes
}

// Release ends the gesture. The shape keeps whatever the last drag applied.
func (m *Machine) Release() (Session, bool) {
	s, ok := m.Session()
	m.session = nil
	return s, ok
}

// Cancel discards the gesture without restoring the snapshot.
func (m *Machine) Cancel() {
	m.session = nil
}

// Forget ends the gesture if it targets a shape in the given group.
func (m *Machine) Forget(ref annotation.Ref) bool {
	if m.session == nil || m.session.Target.Group != ref.Group {
		return false
	}
	m.session = nil
	return true
}
