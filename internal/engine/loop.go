package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rewired-gh/smartbin/internal/logger"
)

// Phase is the engine's position in its poll cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePolling    Phase = "polling"
	PhaseCommitting Phase = "committing"
	PhasePaused     Phase = "paused"
)

// Phase reports the current phase. Paused wins over the cycle phase.
func (e *Engine) Phase() Phase {
	if e.paused.Load() {
		return PhasePaused
	}
	return e.phase.Load().(Phase)
}

// Run polls on every tick until ctx is cancelled. The first cycle starts
// immediately. Fetches of consecutive ticks may overlap; their commits are
// applied strictly in tick order. On shutdown the ticker is stopped, pending
// results are discarded and Run waits for in-flight cycles before returning.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	// prev is closed once the previous cycle has committed or given up.
	prev := make(chan struct{})
	close(prev)

	launch := func(tick time.Time) {
		if !e.checkHealth(ctx) {
			return
		}
		wait, done := prev, make(chan struct{})
		prev = done

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done)
			e.runCycle(ctx, tick, wait)
		}()
	}

	logger.Info("Starting poll loop for bin %s (interval: %v, fill: %s, alert: %s)",
		e.Snapshot().ID, e.opts.PollInterval, e.opts.FillMode, e.detector)
	launch(time.Now())

	for {
		select {
		case <-ctx.Done():
			logger.Info("Poll loop stopped")
			return nil
		case tick := <-ticker.C:
			launch(tick)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, tick time.Time, wait <-chan struct{}) {
	start := time.Now()
	e.phase.Store(PhasePolling)
	logger.Debug("Starting poll cycle (tick %s)", tick.Format(time.RFC3339))

	b, err := e.fetch(ctx)

	select {
	case <-wait:
	case <-ctx.Done():
		return
	}

	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Poll cycle skipped, keeping previous state: %v", err)
		}
		e.phase.Store(PhaseIdle)
		return
	}

	e.phase.Store(PhaseCommitting)
	if !e.commit(ctx, b) {
		logger.Debug("Discarding poll result after shutdown")
		return
	}
	e.phase.Store(PhaseIdle)
	logger.Debug("Poll cycle completed in %v", time.Since(start))
}

// checkHealth gates a cycle on backend health. Polling pauses after
// HealthFailureThreshold consecutive failed or degraded checks and resumes on
// the first healthy one.
func (e *Engine) checkHealth(ctx context.Context) bool {
	if e.sources.Health == nil {
		return true
	}

	h, err := e.sources.Health.FetchHealth(ctx)
	if err == nil && h != HealthOK {
		err = fmt.Errorf("backend reports %q", h)
	}
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		e.healthFailures++
		logger.Warn("Health check failed (%d consecutive): %v", e.healthFailures, err)
		if e.healthFailures >= e.opts.HealthFailureThreshold && !e.paused.Load() {
			e.paused.Store(true)
			logger.Warn("Polling paused until the backend reports healthy")
			e.notifyHealth(func(l HealthListener) { l.PollingPaused(fmt.Errorf("%w: %w", ErrSourceUnavailable, err)) })
		}
		return !e.paused.Load()
	}

	failures := e.healthFailures
	e.healthFailures = 0
	if e.paused.Load() {
		e.paused.Store(false)
		logger.Info("Backend healthy again after %d failed checks, resuming polling", failures)
		e.notifyHealth(func(l HealthListener) { l.PollingResumed(failures) })
	}
	return true
}

func (e *Engine) notifyHealth(fn func(HealthListener)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.publishers {
		if l, ok := p.(HealthListener); ok {
			fn(l)
		}
	}
}
