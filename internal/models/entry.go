package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEntry marks a detection log entry that is missing a required field.
var ErrMalformedEntry = errors.New("malformed log entry")

// DetectionLogEntry is a single raw item detection reported by the sensor backend.
// Entries are append-only and may be returned again on later polls.
type DetectionLogEntry struct {
	Timestamp string `json:"timestamp"`
	Item      string `json:"item"`
	RawClass  string `json:"class"`
}

// Signature is the dedup key of the entry: the exact concatenation of
// timestamp, item text and raw class text.
func (e DetectionLogEntry) Signature() string {
	return e.Timestamp + e.Item + e.RawClass
}

// Validate reports entries missing a timestamp or item. An empty raw class is
// allowed; the classifier falls back to the item text.
func (e *DetectionLogEntry) Validate() error {
	if strings.TrimSpace(e.Timestamp) == "" {
		return fmt.Errorf("%w: timestamp must not be empty", ErrMalformedEntry)
	}
	if strings.TrimSpace(e.Item) == "" {
		return fmt.Errorf("%w: item must not be empty", ErrMalformedEntry)
	}
	return nil
}
