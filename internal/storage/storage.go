// Package storage provides the thread-safe, in-memory event log of a bin.
//
// The log is ordered newest first and bounded: after every insertion the
// oldest entries are rotated out of the tail. Nothing is persisted; the log
// starts empty on every process start.
package storage

import (
	"sync"

	"github.com/rewired-gh/smartbin/internal/models"
)

// DefaultMaxEvents is the default capacity of an EventLog.
const DefaultMaxEvents = 50

// EventLog is a capacity-bounded, most-recent-first list of events.
type EventLog struct {
	events []models.Event
	mu     sync.RWMutex

	maxEvents int
}

// New creates an empty EventLog holding at most maxEvents entries.
// maxEvents < 1 uses DefaultMaxEvents.
func New(maxEvents int) *EventLog {
	if maxEvents < 1 {
		maxEvents = DefaultMaxEvents
	}
	return &EventLog{
		events:    make([]models.Event, 0, maxEvents),
		maxEvents: maxEvents,
	}
}

// MaxEvents returns the capacity of the log.
func (l *EventLog) MaxEvents() int {
	return l.maxEvents
}

// Prepend inserts events ahead of the existing ones and trims to capacity.
// events must already be ordered newest first.
func (l *EventLog) Prepend(events ...models.Event) {
	if len(events) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make([]models.Event, 0, len(events)+len(l.events))
	merged = append(merged, events...)
	merged = append(merged, l.events...)
	l.events = merged
	l.trimLocked(l.maxEvents)
}

// Trim drops entries from the tail until at most max remain.
func (l *EventLog) Trim(max int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trimLocked(max)
}

func (l *EventLog) trimLocked(max int) {
	if max < 0 {
		max = 0
	}
	if len(l.events) > max {
		l.events = l.events[:max]
	}
}

// RemoveAt deletes the entry at index i. An out-of-range index is a no-op and
// reports false.
func (l *EventLog) RemoveAt(i int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.events) {
		return false
	}
	l.events = append(l.events[:i:i], l.events[i+1:]...)
	return true
}

// Clear removes every entry.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = make([]models.Event, 0, l.maxEvents)
}

// Replace swaps the whole content, trimming to capacity.
func (l *EventLog) Replace(events []models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(make([]models.Event, 0, len(events)), events...)
	l.trimLocked(l.maxEvents)
}

// Events returns a copy of the log, newest first.
func (l *EventLog) Events() []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of entries.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
