package clocksync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrOffsetMeasurement is returned when a probe of the reference clock fails
// or times out. No offset is produced in that case.
var ErrOffsetMeasurement = errors.New("offset measurement failed")

// DefaultProbeTimeout bounds one probe when the caller does not choose one
const DefaultProbeTimeout = 2 * time.Second

// Prober performs one round trip to the reference clock and returns its
// reading in Unix milliseconds.
type Prober interface {
	Probe(ctx context.Context) (int64, error)
}

// ProberFunc adapts a function to Prober
type ProberFunc func(ctx context.Context) (int64, error)

func (f ProberFunc) Probe(ctx context.Context) (int64, error) { return f(ctx) }

// Offset is one estimate of reference minus local time
type Offset struct {
	Millis     int64
	RTT        time.Duration
	MeasuredAt time.Time
}

// ComputeOffset assumes the reference clock was read at the midpoint of the
// round trip. t0 and t1 are local readings before and after the probe.
func ComputeOffset(t0, t1, serverMs int64) int64 {
	midpoint := int64(math.Round(float64(t0+t1) / 2))
	return serverMs - midpoint
}

// Estimator measures the offset between the local clock and the reference
// clock with a single probe. It holds no state between calls.
type Estimator struct {
	prober  Prober
	clock   clockwork.Clock
	timeout time.Duration
}

// NewEstimator creates an estimator. A non-positive timeout uses DefaultProbeTimeout.
func NewEstimator(prober Prober, clock clockwork.Clock, timeout time.Duration) *Estimator {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Estimator{
		prober:  prober,
		clock:   clock,
		timeout: timeout,
	}
}

// Estimate runs one probe and returns the resulting offset
func (e *Estimator) Estimate(ctx context.Context) (Offset, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.clock.Now()
	serverMs, err := e.prober.Probe(ctx)
	end := e.clock.Now()
	if err != nil {
		return Offset{}, fmt.Errorf("%w: %w", ErrOffsetMeasurement, err)
	}

	return Offset{
		Millis:     ComputeOffset(start.UnixMilli(), end.UnixMilli(), serverMs),
		RTT:        end.Sub(start),
		MeasuredAt: end,
	}, nil
}
