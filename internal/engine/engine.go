// Package engine owns one bin's canonical state and drives its poll cycle.
//
// Each cycle fetches raw detections and a fill reading concurrently, joins
// both results, and commits them as a single state transition: dedup,
// classify, aggregate, check the alert threshold, prepend events, trim.
// Manual commands go through the same lock as commits, so a command never
// interleaves with a half-applied cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/smartbin/internal/aggregator"
	"github.com/rewired-gh/smartbin/internal/classifier"
	"github.com/rewired-gh/smartbin/internal/dedup"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
	"github.com/rewired-gh/smartbin/internal/monitor"
	"github.com/rewired-gh/smartbin/internal/storage"
)

var (
	// ErrSourceUnavailable wraps failures of the log, fill or health source.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedEntry marks a log entry missing required fields.
	ErrMalformedEntry = models.ErrMalformedEntry
	// ErrInvalidCommand marks a manual command that cannot be applied.
	ErrInvalidCommand = errors.New("invalid command")
)

// LogSource returns the raw detection log. It may return entries it has
// returned before.
type LogSource interface {
	FetchLogs(ctx context.Context) ([]models.DetectionLogEntry, error)
}

// FillSource returns the current fill percentage (0–100).
type FillSource interface {
	FetchFill(ctx context.Context) (float64, error)
}

// Health is the liveness reported by the backend.
type Health string

const (
	HealthOK       Health = "ok"
	HealthDegraded Health = "degraded"
)

// HealthSource reports backend liveness.
type HealthSource interface {
	FetchHealth(ctx context.Context) (Health, error)
}

// DataClearer wipes the backend's current detection log. Optional.
type DataClearer interface {
	ClearData(ctx context.Context) error
}

// Publisher receives every committed snapshot together with the events the
// commit added. Publish is called with the engine lock held and must not block.
type Publisher interface {
	Publish(snapshot models.BinState, fresh []models.Event)
}

// HealthListener is implemented by publishers that want pause/resume notices.
// Like Publish, the callbacks must not block.
type HealthListener interface {
	PollingPaused(cause error)
	PollingResumed(failures int)
}

// Sources bundles the collaborators an engine polls.
type Sources struct {
	Logs    LogSource
	Fill    FillSource   // required in gauge mode
	Health  HealthSource // nil means always healthy
	Clearer DataClearer  // nil skips the backend clear on empty
}

// FillMode selects where fill readings come from.
type FillMode string

const (
	FillGauge   FillMode = "gauge"
	FillDerived FillMode = "derived"
)

// Options tunes an engine. Zero values fall back to defaults.
type Options struct {
	PollInterval           time.Duration
	MaxEvents              int
	AlertThreshold         float64
	HealthFailureThreshold int
	FillMode               FillMode
	Capacity               int
	DedupLimit             int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.MaxEvents < 1 {
		o.MaxEvents = storage.DefaultMaxEvents
	}
	if o.AlertThreshold <= 0 {
		o.AlertThreshold = monitor.DefaultThreshold
	}
	if o.HealthFailureThreshold < 1 {
		o.HealthFailureThreshold = 1
	}
	if o.FillMode == "" {
		o.FillMode = FillGauge
	}
	if o.Capacity < 1 {
		o.Capacity = aggregator.DefaultCapacity
	}
	return o
}

// Batch is the joined result of one cycle's fetches.
type Batch struct {
	Entries []models.DetectionLogEntry
	Fill    float64
	HasFill bool // false in derived mode
}

// Engine owns the state of a single bin.
type Engine struct {
	// mu is the single serialization point for poll commits and commands.
	mu       sync.Mutex
	state    models.BinState // Events unused; the log lives in events
	defaults models.BinState
	events   *storage.EventLog
	seen     *dedup.Deduplicator
	detector *monitor.ThresholdDetector

	opts       Options
	sources    Sources
	publishers []Publisher

	snapshot atomic.Pointer[models.BinState]
	phase    atomic.Value // Phase
	paused   atomic.Bool

	// Touched only by the Run goroutine.
	healthFailures int

	now func() time.Time
}

// New creates an engine starting from initial, which is also the state Reset
// returns to.
func New(initial models.BinState, sources Sources, opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	if sources.Logs == nil {
		return nil, errors.New("engine: log source is required")
	}
	if opts.FillMode == FillGauge && sources.Fill == nil {
		return nil, errors.New("engine: fill source is required in gauge mode")
	}
	if opts.FillMode != FillGauge && opts.FillMode != FillDerived {
		return nil, fmt.Errorf("engine: unknown fill mode %q", opts.FillMode)
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid initial state: %w", err)
	}

	e := &Engine{
		events:   storage.New(opts.MaxEvents),
		seen:     dedup.New(opts.DedupLimit),
		detector: monitor.New(opts.AlertThreshold),
		opts:     opts,
		sources:  sources,
		now:      time.Now,
	}
	if initial.LastEmptiedAt.IsZero() {
		initial.LastEmptiedAt = e.now()
	}
	initial.Status = aggregator.StatusFor(initial.FillLevel)
	e.defaults = initial.Clone()

	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	e.phase.Store(PhaseIdle)

	return e, nil
}

// AddPublisher registers p for every subsequent commit.
func (e *Engine) AddPublisher(p Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishers = append(e.publishers, p)
}

// Snapshot returns a copy of the last committed state.
func (e *Engine) Snapshot() models.BinState {
	return e.snapshot.Load().Clone()
}

// SeenCount returns the number of tracked dedup signatures.
func (e *Engine) SeenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen.Len()
}

// LoadEvents folds one batch into the state and returns the new snapshot.
// Already-seen and malformed entries are skipped. Loading the same batch
// twice leaves the state as it was after the first load.
func (e *Engine) LoadEvents(b Batch) models.BinState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyLocked(b)
	return e.snapshot.Load().Clone()
}

// commit is LoadEvents for the poll loop: a cancelled cycle is discarded.
func (e *Engine) commit(ctx context.Context, b Batch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	e.applyLocked(b)
	return true
}

func (e *Engine) applyLocked(b Batch) {
	now := e.now()

	valid := make([]models.DetectionLogEntry, 0, len(b.Entries))
	for _, entry := range b.Entries {
		if err := entry.Validate(); err != nil {
			logger.Warn("Skipping log entry %q: %v", entry.Signature(), err)
			continue
		}
		valid = append(valid, entry)
	}
	fresh, dropped := e.seen.Filter(valid)

	// Entries arrive oldest first; the log is newest first.
	categories := make([]models.Category, len(fresh))
	added := make([]models.Event, 0, len(fresh)+1)
	for i := len(fresh) - 1; i >= 0; i-- {
		c := classifier.Classify(fresh[i].RawClass, fresh[i].Item)
		categories[i] = c
		added = append(added, models.NewDetectionEvent(fresh[i], c, e.state.TargetCategory, now))
	}
	e.state.Categories, e.state.Weight = aggregator.Apply(e.state.Categories, e.state.Weight, categories)

	prevFill := e.state.FillLevel
	switch {
	case b.HasFill:
		e.state.FillLevel = aggregator.ClampFill(b.Fill)
	case e.opts.FillMode == FillDerived:
		e.state.FillLevel = aggregator.DerivedFill(e.state.Categories.Total(), e.opts.Capacity)
	}
	e.state.Status = aggregator.StatusFor(e.state.FillLevel)

	if alert, ok := e.detector.Check(prevFill, e.state.FillLevel); ok {
		logger.Warn("Bin %s crossed %s: %s", e.state.ID, e.detector, alert.Message)
		added = append([]models.Event{alert}, added...)
	}

	logger.Debug("Cycle applied: %d entries, %d new, %d duplicate, fill %.2f%% (%s)",
		len(b.Entries), len(fresh), dropped, e.state.FillLevel, e.state.Status)

	e.events.Prepend(added...)
	e.publishLocked(added)
}

// publishLocked stores a new immutable snapshot and hands it to publishers.
func (e *Engine) publishLocked(fresh []models.Event) {
	snap := e.state.Clone()
	snap.Events = e.events.Events()
	e.snapshot.Store(&snap)

	for _, p := range e.publishers {
		p.Publish(snap.Clone(), fresh)
	}
}

func (e *Engine) resetLocked() {
	e.state = e.defaults.Clone()
	e.state.Events = nil
	e.events.Replace(e.defaults.Events)
	e.publishLocked(nil)
}

// fetch issues the log and fill requests concurrently and joins them. Either
// failure fails the whole batch so counts and fill are never applied apart.
func (e *Engine) fetch(ctx context.Context) (Batch, error) {
	var b Batch
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entries, err := e.sources.Logs.FetchLogs(gctx)
		if err != nil {
			return fmt.Errorf("%w: fetch logs: %w", ErrSourceUnavailable, err)
		}
		b.Entries = entries
		return nil
	})

	if e.opts.FillMode == FillGauge {
		g.Go(func() error {
			fill, err := e.sources.Fill.FetchFill(gctx)
			if err != nil {
				return fmt.Errorf("%w: fetch fill: %w", ErrSourceUnavailable, err)
			}
			b.Fill = fill
			b.HasFill = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// PollOnce runs one fetch-and-commit cycle synchronously, without the health
// gate.
func (e *Engine) PollOnce(ctx context.Context) error {
	b, err := e.fetch(ctx)
	if err != nil {
		return err
	}
	if !e.commit(ctx, b) {
		return ctx.Err()
	}
	return nil
}
