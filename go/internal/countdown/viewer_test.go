package countdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu  sync.Mutex
	rec *models.TimerRecord
	err error
}

func (f *stubFetcher) set(rec *models.TimerRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rec, f.err = rec, err
}

func (f *stubFetcher) GetTimer(ctx context.Context) (*models.TimerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	clone := f.rec.Clone()
	return &clone, nil
}

type chanSubscriber struct {
	ch chan models.TimerRecord
}

func (s *chanSubscriber) Subscribe(ctx context.Context) (<-chan models.TimerRecord, error) {
	out := make(chan models.TimerRecord)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case rec := <-s.ch:
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type fixedOffset struct {
	ms  int64
	err error
}

func (f fixedOffset) Millis() int64 { return f.ms }

func (f fixedOffset) Status() clocksync.Status {
	return clocksync.Status{Offset: clocksync.Offset{Millis: f.ms}, Established: f.err == nil, LastErr: f.err}
}

func (f fixedOffset) Run(ctx context.Context, _ time.Duration) { <-ctx.Done() }

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *recordingSink) Emit(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

func startViewer(t *testing.T, v *Viewer) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, v.Run(ctx))
	}()
	return func() {
		cancelCtx()
		<-done
	}
}

func TestNewViewer_TickRange(t *testing.T) {
	fetcher := &stubFetcher{}
	sink := &recordingSink{}

	for _, tick := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, time.Second} {
		_, err := NewViewer(fetcher, nil, fixedOffset{}, sink, Options{Tick: tick})
		assert.NoError(t, err, tick)
	}
	for _, tick := range []time.Duration{50 * time.Millisecond, 1500 * time.Millisecond, -time.Second} {
		_, err := NewViewer(fetcher, nil, fixedOffset{}, sink, Options{Tick: tick})
		assert.ErrorIs(t, err, ErrInvalidTick, tick)
	}
}

func TestViewer_ProjectsFetchedRecord(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	fetcher := &stubFetcher{}
	fetcher.set(running(120, 1_000_000), nil)

	v, err := NewViewer(fetcher, nil, fixedOffset{}, &recordingSink{}, Options{Clock: clock})
	require.NoError(t, err)

	stop := startViewer(t, v)
	defer stop()

	require.Eventually(t, func() bool { return v.Record() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(120), v.Frame().Remaining)

	clock.Advance(65 * time.Second)
	assert.Equal(t, int64(55), v.Frame().Remaining)

	clock.Advance(65 * time.Second)
	frame := v.Frame()
	assert.Equal(t, int64(0), frame.Remaining)
	assert.Equal(t, models.TimerStatusRunning, frame.Status)
	assert.False(t, frame.Stale)
}

func TestViewer_PushReplacesRecord(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	fetcher := &stubFetcher{}
	fetcher.set(running(120, 1_000_000), nil)
	sub := &chanSubscriber{ch: make(chan models.TimerRecord)}

	v, err := NewViewer(fetcher, sub, fixedOffset{}, &recordingSink{}, Options{Clock: clock})
	require.NoError(t, err)

	stop := startViewer(t, v)
	defer stop()

	require.Eventually(t, func() bool { return v.Record() != nil }, time.Second, 5*time.Millisecond)

	sub.ch <- models.TimerRecord{ID: models.TimerID, DurationSec: 90, Status: models.TimerStatusPaused}

	require.Eventually(t, func() bool {
		return v.Record().Status == models.TimerStatusPaused
	}, time.Second, 5*time.Millisecond)

	clock.Advance(time.Hour)
	assert.Equal(t, int64(90), v.Frame().Remaining)
}

func TestViewer_StaleWhileFeedFails(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	fetcher := &stubFetcher{}
	fetcher.set(nil, errors.New("connection refused"))

	v, err := NewViewer(fetcher, nil, fixedOffset{}, &recordingSink{}, Options{Clock: clock, RetryBackoff: time.Second})
	require.NoError(t, err)

	stop := startViewer(t, v)
	defer stop()

	// tick ticker plus the retry timer
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 2))

	frame := v.Frame()
	assert.True(t, frame.Stale)
	require.Error(t, frame.Err)
	assert.Contains(t, frame.Err.Error(), "connection refused")
	assert.Equal(t, "--:--", frame.Clock())

	fetcher.set(running(120, 1_000_000), nil)
	clock.Advance(time.Second)

	require.Eventually(t, func() bool { return !v.Frame().Stale }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(119), v.Frame().Remaining)
}

func TestViewer_KeepsLastRecordWhenResyncFails(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	fetcher := &stubFetcher{}
	fetcher.set(running(120, 1_000_000), nil)

	v, err := NewViewer(fetcher, nil, fixedOffset{}, &recordingSink{}, Options{Clock: clock, Resync: 5 * time.Second})
	require.NoError(t, err)

	stop := startViewer(t, v)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// tick ticker plus the resync ticker
	require.NoError(t, clock.BlockUntilContext(ctx, 2))

	fetcher.set(nil, errors.New("store down"))
	clock.Advance(5 * time.Second)

	require.Eventually(t, func() bool { return v.Frame().Stale }, time.Second, 5*time.Millisecond)
	frame := v.Frame()
	assert.Equal(t, int64(115), frame.Remaining)
	assert.Equal(t, models.TimerStatusRunning, frame.Status)
}

func TestViewer_NoSinkCallsAfterRun(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	fetcher := &stubFetcher{}
	fetcher.set(running(120, 1_000_000), nil)
	sink := &recordingSink{}

	v, err := NewViewer(fetcher, nil, fixedOffset{ms: 250}, sink, Options{Clock: clock})
	require.NoError(t, err)

	stop := startViewer(t, v)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	require.Eventually(t, func() bool { return v.Record() != nil }, time.Second, 5*time.Millisecond)

	clock.Advance(DefaultTick)
	require.Eventually(t, func() bool {
		return sink.count() >= 2 && sink.last().Status == models.TimerStatusRunning
	}, time.Second, 5*time.Millisecond)

	stop()
	n := sink.count()
	clock.Advance(10 * DefaultTick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, sink.count())
}

func TestViewer_Close(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set(running(120, 1_000_000), nil)

	v, err := NewViewer(fetcher, nil, fixedOffset{}, &recordingSink{}, Options{Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = v.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return v.Record() != nil }, time.Second, 5*time.Millisecond)
	v.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("viewer did not stop after Close")
	}
}
