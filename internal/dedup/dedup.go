// Package dedup tracks which detection log entries have already been
// incorporated into a bin's state, so that a source re-returning old entries
// never causes double counting.
package dedup

import (
	"github.com/rewired-gh/smartbin/internal/models"
)

// Deduplicator is a set of seen entry signatures. It is not safe for
// concurrent use; the engine serializes access.
//
// With a zero limit the set grows until Clear. With a positive limit the
// oldest signatures are evicted first once the limit is exceeded, skipping
// any that the latest batch still contained.
type Deduplicator struct {
	seen  map[string]struct{}
	order []string
	limit int
}

// New creates a Deduplicator. limit <= 0 means unbounded.
func New(limit int) *Deduplicator {
	if limit < 0 {
		limit = 0
	}
	return &Deduplicator{
		seen:  make(map[string]struct{}),
		limit: limit,
	}
}

// Seen reports whether sig was already marked.
func (d *Deduplicator) Seen(sig string) bool {
	_, ok := d.seen[sig]
	return ok
}

// Mark records sig as seen, evicting the oldest signatures beyond the limit.
func (d *Deduplicator) Mark(sig string) {
	d.add(sig)
	d.evict(nil)
}

func (d *Deduplicator) add(sig string) bool {
	if _, ok := d.seen[sig]; ok {
		return false
	}
	d.seen[sig] = struct{}{}
	if d.limit > 0 {
		d.order = append(d.order, sig)
	}
	return true
}

// evict drops the oldest signatures until the limit holds. Signatures in keep
// are never evicted, so the set may stay above the limit while the source
// still returns them.
func (d *Deduplicator) evict(keep map[string]struct{}) {
	if d.limit == 0 || len(d.seen) <= d.limit {
		return
	}
	excess := len(d.seen) - d.limit
	order := make([]string, 0, len(d.order))
	for _, sig := range d.order {
		if excess > 0 {
			if _, ok := keep[sig]; !ok {
				delete(d.seen, sig)
				excess--
				continue
			}
		}
		order = append(order, sig)
	}
	d.order = order
}

// Clear forgets every signature. Only emptying the bin should call this.
func (d *Deduplicator) Clear() {
	d.seen = make(map[string]struct{})
	d.order = nil
}

// Len returns the number of tracked signatures.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// Filter returns the entries not seen before, in input order, and marks them.
// Duplicates within the same batch are dropped too. The second return value
// is the number of entries dropped.
//
// With a limit set, only signatures absent from entries are evicted: the
// source re-returns its whole log, and forgetting an entry it still returns
// would count that entry again on the next poll.
func (d *Deduplicator) Filter(entries []models.DetectionLogEntry) ([]models.DetectionLogEntry, int) {
	var kept []models.DetectionLogEntry
	dropped := 0
	batch := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		sig := e.Signature()
		batch[sig] = struct{}{}
		if !d.add(sig) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	d.evict(batch)

	return kept, dropped
}
