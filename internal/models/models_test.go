package models

import (
	"errors"
	"testing"
	"time"
)

func TestDetectionLogEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   DetectionLogEntry
		wantErr bool
	}{
		{
			name:    "valid entry",
			entry:   DetectionLogEntry{Timestamp: "14:23:45", Item: "bottle", RawClass: "recyclable"},
			wantErr: false,
		},
		{
			name:    "empty raw class is allowed",
			entry:   DetectionLogEntry{Timestamp: "14:23:45", Item: "banana"},
			wantErr: false,
		},
		{
			name:    "missing timestamp",
			entry:   DetectionLogEntry{Item: "bottle", RawClass: "recyclable"},
			wantErr: true,
		},
		{
			name:    "blank item",
			entry:   DetectionLogEntry{Timestamp: "14:23:45", Item: "   ", RawClass: "recyclable"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("DetectionLogEntry.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedEntry) {
				t.Errorf("Expected error to wrap ErrMalformedEntry, got %v", err)
			}
		})
	}
}

func TestDetectionLogEntrySignature(t *testing.T) {
	e := DetectionLogEntry{Timestamp: "14:23:45", Item: "bottle", RawClass: "recyclable"}
	if got := e.Signature(); got != "14:23:45bottlerecyclable" {
		t.Errorf("Expected exact concatenation, got %q", got)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"recyclable", CategoryRecyclable, false},
		{"  Organic ", CategoryOrganic, false},
		{"GENERAL", CategoryGeneral, false},
		{"plastic", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestCategoryCounts(t *testing.T) {
	var cc CategoryCounts
	cc = cc.Inc(CategoryOrganic).Inc(CategoryOrganic).Inc(CategoryGeneral)

	if cc.Get(CategoryOrganic) != 2 {
		t.Errorf("Expected 2 organic, got %d", cc.Get(CategoryOrganic))
	}
	if cc.Total() != 3 {
		t.Errorf("Expected total 3, got %d", cc.Total())
	}
	if err := (CategoryCounts{General: -1}).Validate(); err == nil {
		t.Error("Expected negative count to fail validation")
	}
}

func TestEventRelabel(t *testing.T) {
	now := time.Now()
	entry := DetectionLogEntry{Timestamp: "11:45:18", Item: "banana", RawClass: "compost"}

	ev := NewDetectionEvent(entry, CategoryOrganic, CategoryOrganic, now)
	if ev.Kind != EventDeposit {
		t.Fatalf("Expected deposit, got %s", ev.Kind)
	}
	if ev.Message != "Banana detected (organic)" {
		t.Errorf("Unexpected deposit message: %q", ev.Message)
	}

	flipped := ev.Relabel(CategoryRecyclable)
	if flipped.Kind != EventContamination {
		t.Errorf("Expected contamination after relabel, got %s", flipped.Kind)
	}
	if flipped.Message != "Contamination: banana (organic) in recyclable bin" {
		t.Errorf("Unexpected contamination message: %q", flipped.Message)
	}
	if flipped.Timestamp != ev.Timestamp || flipped.Category != ev.Category || flipped.ID != ev.ID {
		t.Error("Relabel must not touch timestamp, category or ID")
	}

	alert := NewAlertEvent(82, now)
	if got := alert.Relabel(CategoryGeneral); got != alert {
		t.Error("Relabel must leave alert events untouched")
	}
	if alert.Message != "Fill level reached 82%" {
		t.Errorf("Unexpected alert message: %q", alert.Message)
	}
}

func TestEventValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name:    "valid empty event",
			event:   NewEmptyEvent(now),
			wantErr: false,
		},
		{
			name:    "valid detection event",
			event:   NewDetectionEvent(DetectionLogEntry{Timestamp: "t", Item: "can"}, CategoryRecyclable, CategoryGeneral, now),
			wantErr: false,
		},
		{
			name:    "alert with category",
			event:   Event{ID: "x", Kind: EventAlert, Category: CategoryGeneral, Message: "m"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			event:   Event{ID: "x", Kind: "sideways", Message: "m"},
			wantErr: true,
		},
		{
			name:    "empty ID",
			event:   Event{Kind: EventEmpty, Message: "m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBinStateCloneIsDeep(t *testing.T) {
	b := BinState{ID: "TC001", TargetCategory: CategoryRecyclable, Events: []Event{NewEmptyEvent(time.Now())}}
	c := b.Clone()
	c.Events[0].Message = "changed"
	if b.Events[0].Message == "changed" {
		t.Error("Clone shares the events slice with the original")
	}
}

func TestBinStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		bin     BinState
		wantErr bool
	}{
		{"valid", BinState{ID: "TC001", TargetCategory: CategoryRecyclable, FillLevel: 45}, false},
		{"empty ID", BinState{TargetCategory: CategoryRecyclable}, true},
		{"bad target", BinState{ID: "TC001", TargetCategory: "plastic"}, true},
		{"fill above 100", BinState{ID: "TC001", TargetCategory: CategoryOrganic, FillLevel: 101}, true},
		{"negative weight", BinState{ID: "TC001", TargetCategory: CategoryOrganic, Weight: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bin.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("BinState.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
