package waypoint

import (
	"sync"

	"github.com/google/uuid"
)

// ChangeFunc receives a snapshot of the list after every mutation.
type ChangeFunc func(wps []Waypoint)

// List is the ordered set of waypoints for the trip being edited.
// All operations are total: none of them fail.
type List struct {
	mu        sync.RWMutex
	items     []Waypoint
	listeners []ChangeFunc
	newID     func() string
}

// NewList creates an empty list.
func NewList() *List {
	return &List{
		newID: func() string { return uuid.NewString() },
	}
}

// NewListFrom creates a list holding wps, renumbered.
func NewListFrom(wps []Waypoint) *List {
	l := NewList()
	l.items = Renumber(wps)
	return l
}

// OnChange registers fn to be called after each Add, Remove, Clear or Replace.
// Listeners run synchronously on the mutating goroutine, after the list lock is released.
func (l *List) OnChange(fn ChangeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Add appends a waypoint with Order = current length + 1.
func (l *List) Add(position Position, address string) Waypoint {
	l.mu.Lock()
	wp := Waypoint{
		ID:       l.newID(),
		Position: position,
		Address:  address,
		Order:    len(l.items) + 1,
	}
	l.items = append(l.items, wp)
	snapshot, listeners := l.snapshotLocked()
	l.mu.Unlock()

	notify(listeners, snapshot)
	return wp
}

// Remove deletes the waypoint with the given id and renumbers the rest.
// An unknown id is a silent no-op and does not notify listeners.
func (l *List) Remove(id string) {
	l.mu.Lock()
	foundIdx := -1
	for i, wp := range l.items {
		if wp.ID == id {
			foundIdx = i
			break
		}
	}
	if foundIdx == -1 {
		l.mu.Unlock()
		return
	}

	remaining := make([]Waypoint, 0, len(l.items)-1)
	remaining = append(remaining, l.items[:foundIdx]...)
	remaining = append(remaining, l.items[foundIdx+1:]...)
	l.items = Renumber(remaining)
	snapshot, listeners := l.snapshotLocked()
	l.mu.Unlock()

	notify(listeners, snapshot)
}

// Clear empties the list.
func (l *List) Clear() {
	l.mu.Lock()
	l.items = nil
	snapshot, listeners := l.snapshotLocked()
	l.mu.Unlock()

	notify(listeners, snapshot)
}

// Replace swaps the whole content, e.g. when a saved trip is loaded for editing.
func (l *List) Replace(wps []Waypoint) {
	l.mu.Lock()
	l.items = Renumber(wps)
	snapshot, listeners := l.snapshotLocked()
	l.mu.Unlock()

	notify(listeners, snapshot)
}

// Waypoints returns a copy of the current waypoints in order.
func (l *List) Waypoints() []Waypoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Clone(l.items)
}

// Len returns the number of waypoints.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List) snapshotLocked() ([]Waypoint, []ChangeFunc) {
	listeners := make([]ChangeFunc, len(l.listeners))
	copy(listeners, l.listeners)
	return Clone(l.items), listeners
}

func notify(listeners []ChangeFunc, snapshot []Waypoint) {
	for _, fn := range listeners {
		fn(snapshot)
	}
}
