package engine

// EventType identifies session events.
type EventType int

const (
	// EventSelectionChanged carries the new annotation.Ref, or nil when cleared.
	EventSelectionChanged EventType = iota
	// EventShapesChanged fires after any change to the annotation set.
	EventShapesChanged
	// EventPendingShape carries the annotation.Kind of a finished drawing
	// that is waiting for CommitPending or DiscardPending.
	EventPendingShape
	// EventDocumentLoaded carries the []error warnings from the load.
	EventDocumentLoaded
	// EventDocumentSaved carries the *store.Document that was produced.
	EventDocumentSaved
	// EventImageOpened carries the native geometry.Size.
	EventImageOpened
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	for _, listener := range s.listeners[event] {
		listener(data)
	}
}
