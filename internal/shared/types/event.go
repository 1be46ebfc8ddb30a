package types

import "time"

// EventKind names a registry change.
type EventKind string

const (
	EventAdded      EventKind = "added"
	EventRemoved    EventKind = "removed"
	EventRenamed    EventKind = "renamed"
	EventFavorite   EventKind = "favorite"
	EventLaunched   EventKind = "launched"
	EventReconciled EventKind = "reconciled"
)

// Event is emitted after a registry mutation has been applied.
type Event struct {
	Kind    EventKind `json:"kind"`
	Name    string    `json:"name,omitempty"`
	OldName string    `json:"old_name,omitempty"`
	Time    time.Time `json:"time"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind EventKind, name string) Event {
	return Event{Kind: kind, Name: name, Time: time.Now()}
}
