package engine

import (
	"context"
	"fmt"

	"github.com/rewired-gh/smartbin/internal/aggregator"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
)

// FieldUpdate is a manual edit of bin fields. Nil fields are left unchanged.
type FieldUpdate struct {
	Name           *string                `json:"name,omitempty"`
	Location       *string                `json:"location,omitempty"`
	FillLevel      *float64               `json:"fill_level,omitempty"`
	Weight         *float64               `json:"weight,omitempty"`
	Categories     *models.CategoryCounts `json:"categories,omitempty"`
	TargetCategory *models.Category       `json:"target_category,omitempty"`
}

func (u FieldUpdate) validate() error {
	if u.FillLevel != nil && (*u.FillLevel < 0 || *u.FillLevel > 100) {
		return fmt.Errorf("%w: fill level %v outside 0–100", ErrInvalidCommand, *u.FillLevel)
	}
	if u.Weight != nil && *u.Weight < 0 {
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidCommand)
	}
	if u.Categories != nil {
		if err := u.Categories.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
	}
	if u.TargetCategory != nil && !u.TargetCategory.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidCommand, *u.TargetCategory)
	}
	return nil
}

// UpdateFields applies a manual edit atomically. Status is recomputed from
// the resulting fill level. An invalid update changes nothing.
func (e *Engine) UpdateFields(u FieldUpdate) (models.BinState, error) {
	if err := u.validate(); err != nil {
		return e.Snapshot(), err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if u.Name != nil {
		e.state.Name = *u.Name
	}
	if u.Location != nil {
		e.state.Location = *u.Location
	}
	if u.FillLevel != nil {
		e.state.FillLevel = aggregator.ClampFill(*u.FillLevel)
	}
	if u.Weight != nil {
		e.state.Weight = *u.Weight
	}
	if u.Categories != nil {
		e.state.Categories = *u.Categories
	}
	e.state.Status = aggregator.StatusFor(e.state.FillLevel)
	if u.TargetCategory != nil {
		e.retargetLocked(*u.TargetCategory)
	}

	logger.Info("Bin %s fields updated manually", e.state.ID)
	e.publishLocked(nil)
	return e.snapshot.Load().Clone(), nil
}

// EmptyBin zeroes counts, fill and weight, forgets every seen signature and
// restarts the event log with a single empty event. The backend's current
// log is cleared first when a DataClearer is configured; a failure there is
// logged and does not stop the local empty.
func (e *Engine) EmptyBin(ctx context.Context) models.BinState {
	if e.sources.Clearer != nil {
		if err := e.sources.Clearer.ClearData(ctx); err != nil {
			logger.Warn("Failed to clear backend detection log: %v", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.state.Categories = models.CategoryCounts{}
	e.state.FillLevel = 0
	e.state.Weight = 0
	e.state.Status = aggregator.StatusFor(0)
	e.state.LastEmptiedAt = now
	e.seen.Clear()

	empty := models.NewEmptyEvent(now)
	e.events.Clear()
	e.events.Prepend(empty)

	logger.Info("Bin %s emptied", e.state.ID)
	e.publishLocked([]models.Event{empty})
	return e.snapshot.Load().Clone()
}

// Reset restores the state the engine started with. Seen signatures are kept,
// so entries already counted are not counted again.
func (e *Engine) Reset() models.BinState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	logger.Info("Bin %s reset to defaults", e.state.ID)
	return e.snapshot.Load().Clone()
}

// RemoveEvent deletes the event at index i (0 is the newest). An out-of-range
// index leaves the state untouched and returns ErrInvalidCommand.
func (e *Engine) RemoveEvent(i int) (models.BinState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.events.RemoveAt(i) {
		return e.snapshot.Load().Clone(), fmt.Errorf("%w: event index %d out of range (have %d)", ErrInvalidCommand, i, e.events.Len())
	}
	e.publishLocked(nil)
	return e.snapshot.Load().Clone(), nil
}

// ClearEvents empties the event log. Counts and fill are not touched.
func (e *Engine) ClearEvents() models.BinState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events.Clear()
	e.publishLocked(nil)
	return e.snapshot.Load().Clone()
}

// SetTargetCategory changes the category the bin collects and relabels every
// recorded deposit or contamination event against it. Raw items are not
// reclassified; timestamps and categories of events stay as they were.
func (e *Engine) SetTargetCategory(c models.Category) (models.BinState, error) {
	if !c.Valid() {
		return e.Snapshot(), fmt.Errorf("%w: unknown category %q", ErrInvalidCommand, c)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.retargetLocked(c)
	e.publishLocked(nil)
	return e.snapshot.Load().Clone(), nil
}

func (e *Engine) retargetLocked(c models.Category) {
	if e.state.TargetCategory == c {
		return
	}
	events := e.events.Events()
	for i := range events {
		events[i] = events[i].Relabel(c)
	}
	e.events.Replace(events)

	logger.Info("Bin %s target category changed from %s to %s", e.state.ID, e.state.TargetCategory, c)
	e.state.TargetCategory = c
}
