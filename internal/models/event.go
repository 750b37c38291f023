// Package models defines the core domain entities for smartbin.
// These models represent raw detection log entries, the per-bin aggregate
// state and the human-readable events shown in the bin's event log.
//
// Terminology:
//   - Detection: a raw log entry reporting that the sensor saw an item.
//   - Target category: the category the bin is currently configured to collect.
//   - Contamination: a detected item whose category differs from the target.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// EventKind is the kind of an event log entry.
type EventKind string

const (
	EventDeposit       EventKind = "deposit"
	EventContamination EventKind = "contamination"
	EventEmpty         EventKind = "empty"
	EventAlert         EventKind = "alert"
)

// ClockLayout is the display format for timestamps of events the service
// synthesizes itself (alerts, empties).
const ClockLayout = "15:04:05"

// Event is one human-readable entry in a bin's event log.
// Category and Item are only set for deposit and contamination events.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  string    `json:"timestamp"`
	RecordedAt time.Time `json:"recorded_at"`
	Kind       EventKind `json:"type"`
	Category   Category  `json:"category,omitempty"`
	Item       string    `json:"item,omitempty"`
	Message    string    `json:"message"`
}

// NewDetectionEvent builds the deposit or contamination event for a classified entry.
func NewDetectionEvent(entry DetectionLogEntry, category, target Category, now time.Time) Event {
	e := Event{
		ID:         uuid.New().String(),
		Timestamp:  entry.Timestamp,
		RecordedAt: now,
		Category:   category,
		Item:       strings.TrimSpace(entry.Item),
	}
	return e.Relabel(target)
}

// NewEmptyEvent builds the synthetic event recorded when a bin is emptied.
func NewEmptyEvent(now time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  now.Format(ClockLayout),
		RecordedAt: now,
		Kind:       EventEmpty,
		Message:    "Trash can emptied",
	}
}

// NewAlertEvent builds a fill level alert referencing the new fill value.
func NewAlertEvent(fill float64, now time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  now.Format(ClockLayout),
		RecordedAt: now,
		Kind:       EventAlert,
		Message:    fmt.Sprintf("Fill level reached %s%%", FormatPercent(fill)),
	}
}

// IsDetection reports whether the event came from a classified log entry.
func (e Event) IsDetection() bool {
	return e.Kind == EventDeposit || e.Kind == EventContamination
}

// Relabel re-derives the kind and message of a detection event against target.
// Timestamp, category and item are never changed. Non-detection events are
// returned as they are.
func (e Event) Relabel(target Category) Event {
	if e.Category == "" {
		return e
	}
	if e.Kind != "" && !e.IsDetection() {
		return e
	}
	if e.Category == target {
		e.Kind = EventDeposit
		e.Message = fmt.Sprintf("%s detected (%s)", displayItem(e.Item), e.Category)
	} else {
		e.Kind = EventContamination
		e.Message = fmt.Sprintf("Contamination: %s (%s) in %s bin", e.Item, e.Category, target)
	}
	return e
}

// Validate checks that all event fields are valid
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Message == "" {
		return errors.New("event message must not be empty")
	}
	switch e.Kind {
	case EventDeposit, EventContamination:
		if !e.Category.Valid() {
			return fmt.Errorf("detection event has invalid category %q", e.Category)
		}
	case EventEmpty, EventAlert:
		if e.Category != "" {
			return errors.New("empty and alert events must not carry a category")
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// FormatPercent renders a percentage without trailing zeros ("82", "82.5").
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func displayItem(item string) string {
	r, size := utf8.DecodeRuneInString(item)
	if r == utf8.RuneError {
		return "Item"
	}
	return string(unicode.ToUpper(r)) + item[size:]
}
