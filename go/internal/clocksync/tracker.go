package clocksync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// OffsetEstimator is satisfied by Estimator
type OffsetEstimator interface {
	Estimate(ctx context.Context) (Offset, error)
}

// Status is a snapshot of the tracker
type Status struct {
	Offset      Offset
	Established bool
	LastErr     error
}

// OffsetTracker keeps the last good offset for one viewer. A failed refresh
// leaves the previous value in place; until the first success the offset is zero.
type OffsetTracker struct {
	estimator OffsetEstimator
	clock     clockwork.Clock

	millis      atomic.Int64
	established atomic.Bool

	mu      sync.Mutex
	last    Offset
	lastErr error
}

// NewOffsetTracker creates a tracker driven by estimator
func NewOffsetTracker(estimator OffsetEstimator, clock clockwork.Clock) *OffsetTracker {
	return &OffsetTracker{
		estimator: estimator,
		clock:     clock,
	}
}

// Millis returns the current offset. Safe to call from the tick path.
func (t *OffsetTracker) Millis() int64 {
	return t.millis.Load()
}

// Status returns the last offset and the error of the most recent refresh, if any
func (t *OffsetTracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Offset:      t.last,
		Established: t.established.Load(),
		LastErr:     t.lastErr,
	}
}

// Refresh runs one estimate and stores it on success
func (t *OffsetTracker) Refresh(ctx context.Context) error {
	off, err := t.estimator.Estimate(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lastErr = err
		log.Warn().Err(err).Int64("offset_ms", t.millis.Load()).Msg("clock offset refresh failed, keeping last value")
		return err
	}

	t.last = off
	t.lastErr = nil
	t.millis.Store(off.Millis)
	t.established.Store(true)
	log.Debug().
		Int64("offset_ms", off.Millis).
		Dur("rtt", off.RTT).
		Msg("clock offset updated")
	return nil
}

// Run refreshes once and then every interval until ctx is done. A zero
// interval measures once and returns.
func (t *OffsetTracker) Run(ctx context.Context, interval time.Duration) {
	_ = t.Refresh(ctx)
	if interval <= 0 {
		return
	}

	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_ = t.Refresh(ctx)
		}
	}
}
