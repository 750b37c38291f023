package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is one of the fixed waste categories. The set is closed.
type Category string

const (
	CategoryRecyclable Category = "recyclable"
	CategoryOrganic    Category = "organic"
	CategoryGeneral    Category = "general"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryRecyclable, CategoryOrganic, CategoryGeneral}

// ParseCategory parses a category name, ignoring case and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q (want recyclable, organic or general)", s)
	}
	return c, nil
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRecyclable, CategoryOrganic, CategoryGeneral:
		return true
	}
	return false
}

// Status is the fill tier of a bin.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// CategoryCounts holds the number of items detected per category since the
// bin was last emptied.
type CategoryCounts struct {
	Recyclable int `json:"recyclable"`
	Organic    int `json:"organic"`
	General    int `json:"general"`
}

// Get returns the count for c. Unknown categories count as zero.
func (cc CategoryCounts) Get(c Category) int {
	switch c {
	case CategoryRecyclable:
		return cc.Recyclable
	case CategoryOrganic:
		return cc.Organic
	case CategoryGeneral:
		return cc.General
	}
	return 0
}

// Inc returns a copy of cc with c incremented by one.
func (cc CategoryCounts) Inc(c Category) CategoryCounts {
	switch c {
	case CategoryRecyclable:
		cc.Recyclable++
	case CategoryOrganic:
		cc.Organic++
	case CategoryGeneral:
		cc.General++
	}
	return cc
}

// Total is the sum of all three counts.
func (cc CategoryCounts) Total() int {
	return cc.Recyclable + cc.Organic + cc.General
}

// Validate rejects negative counts
func (cc CategoryCounts) Validate() error {
	if cc.Recyclable < 0 || cc.Organic < 0 || cc.General < 0 {
		return errors.New("category counts must not be negative")
	}
	return nil
}

// BinState is the aggregate state of one monitored bin. Values handed out by
// the engine are snapshots: callers own their copy.
type BinState struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Location       string         `json:"location"`
	TargetCategory Category       `json:"target_category"`
	FillLevel      float64        `json:"fill_level"` // percent, 0–100
	Weight         float64        `json:"weight"`     // kg
	Status         Status         `json:"status"`
	LastEmptiedAt  time.Time      `json:"last_emptied_at"`
	Categories     CategoryCounts `json:"categories"`
	Events         []Event        `json:"events"` // newest first
}

// Clone returns a deep copy of the state.
func (b BinState) Clone() BinState {
	out := b
	out.Events = make([]Event, len(b.Events))
	copy(out.Events, b.Events)
	return out
}

// Validate checks that all bin fields are valid.
func (b *BinState) Validate() error {
	if b.ID == "" {
		return errors.New("bin ID must not be empty")
	}
	if !b.TargetCategory.Valid() {
		return fmt.Errorf("invalid target category %q", b.TargetCategory)
	}
	if b.FillLevel < 0 || b.FillLevel > 100 {
		return errors.New("fill level must be between 0 and 100")
	}
	if b.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	if err := b.Categories.Validate(); err != nil {
		return err
	}
	return nil
}
