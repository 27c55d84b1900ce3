package countdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTick          = 200 * time.Millisecond
	MinTick              = 100 * time.Millisecond
	MaxTick              = time.Second
	DefaultResync        = 5 * time.Second
	DefaultOffsetRefresh = 30 * time.Second
	DefaultRetryBackoff  = time.Second
)

var (
	// ErrInvalidTick is returned for a tick cadence outside [MinTick, MaxTick]
	ErrInvalidTick = errors.New("tick interval out of range")

	errFeedClosed = errors.New("record feed closed")
	errNoRecord   = errors.New("no timer record yet")
)

// Fetcher reads the shared record on demand
type Fetcher interface {
	GetTimer(ctx context.Context) (*models.TimerRecord, error)
}

// Subscriber streams record snapshots until ctx is done, then closes the channel
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan models.TimerRecord, error)
}

// OffsetSource supplies the viewer's clock offset. *clocksync.OffsetTracker implements it.
type OffsetSource interface {
	Millis() int64
	Status() clocksync.Status
	Run(ctx context.Context, interval time.Duration)
}

// Options tune a Viewer. Zero values take the defaults above.
type Options struct {
	Tick          time.Duration
	Resync        time.Duration
	OffsetRefresh time.Duration
	RetryBackoff  time.Duration
	Clock         clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.Tick == 0 {
		o.Tick = DefaultTick
	}
	if o.Resync <= 0 {
		o.Resync = DefaultResync
	}
	if o.OffsetRefresh == 0 {
		o.OffsetRefresh = DefaultOffsetRefresh
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

type feedState struct {
	stale bool
	err   error
}

// Viewer keeps one display in step with the shared timer. Run drives three
// loops that share only atomic cells: the tick loop projecting frames, the
// feed loop replacing the cached record, and the offset tracker.
type Viewer struct {
	fetcher Fetcher
	sub     Subscriber
	offset  OffsetSource
	sink    Sink
	opts    Options

	record atomic.Pointer[models.TimerRecord]
	feed   atomic.Pointer[feedState]

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewViewer creates a viewer. sub may be nil, in which case the record is
// only refreshed by fetching every Resync interval.
func NewViewer(fetcher Fetcher, sub Subscriber, offset OffsetSource, sink Sink, opts Options) (*Viewer, error) {
	if fetcher == nil || offset == nil || sink == nil {
		return nil, errors.New("viewer needs a fetcher, an offset source and a sink")
	}
	opts = opts.withDefaults()
	if opts.Tick < MinTick || opts.Tick > MaxTick {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidTick, opts.Tick, MinTick, MaxTick)
	}

	v := &Viewer{
		fetcher: fetcher,
		sub:     sub,
		offset:  offset,
		sink:    sink,
		opts:    opts,
	}
	v.feed.Store(&feedState{stale: true, err: errNoRecord})
	return v, nil
}

// Run blocks until ctx is cancelled or Close is called. The sink is never
// called after Run returns.
func (v *Viewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		v.offset.Run(ctx, v.opts.OffsetRefresh)
	}()
	go func() {
		defer wg.Done()
		v.consume(ctx)
	}()
	go func() {
		defer wg.Done()
		v.tick(ctx)
	}()
	wg.Wait()

	log.Info().Msg("viewer stopped")
	return nil
}

// Close stops a running viewer
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
}

// Apply replaces the cached record with rec
func (v *Viewer) Apply(rec models.TimerRecord) {
	clone := rec.Clone()
	v.record.Store(&clone)
	v.feed.Store(&feedState{})
}

// Record returns the cached record, or nil before the first fetch
func (v *Viewer) Record() *models.TimerRecord {
	return v.record.Load()
}

// Frame projects the cached record at the current local time
func (v *Viewer) Frame() Frame {
	rec := v.record.Load()
	feed := v.feed.Load()

	frame := Frame{Stale: feed.stale, Err: feed.err}
	if rec == nil {
		return frame
	}

	frame.Status = rec.Status
	frame.Remaining = Remaining(rec, v.offset.Millis(), v.localNowMs)
	if frame.Err == nil {
		frame.Err = v.offset.Status().LastErr
	}
	return frame
}

func (v *Viewer) localNowMs() int64 {
	return v.opts.Clock.Now().UnixMilli()
}

func (v *Viewer) markStale(err error) {
	v.feed.Store(&feedState{stale: true, err: err})
}

func (v *Viewer) tick(ctx context.Context) {
	ticker := v.opts.Clock.NewTicker(v.opts.Tick)
	defer ticker.Stop()

	v.sink.Emit(v.Frame())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			v.sink.Emit(v.Frame())
		}
	}
}

// consume follows the record feed, reconnecting after RetryBackoff on failure
func (v *Viewer) consume(ctx context.Context) {
	for {
		err := v.follow(ctx)
		if ctx.Err() != nil {
			return
		}
		v.markStale(err)
		log.Warn().Err(err).Dur("retry_in", v.opts.RetryBackoff).Msg("timer feed lost")

		select {
		case <-ctx.Done():
			return
		case <-v.opts.Clock.After(v.opts.RetryBackoff):
		}
	}
}

func (v *Viewer) follow(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := v.fetch(ctx); err != nil {
		return err
	}

	var updates <-chan models.TimerRecord
	if v.sub != nil {
		ch, err := v.sub.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
		updates = ch
	}

	resync := v.opts.Clock.NewTicker(v.opts.Resync)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-updates:
			if !ok {
				return errFeedClosed
			}
			v.Apply(rec)
		case <-resync.Chan():
			if err := v.fetch(ctx); err != nil && ctx.Err() == nil {
				v.markStale(err)
				log.Warn().Err(err).Msg("timer resync failed")
			}
		}
	}
}

func (v *Viewer) fetch(ctx context.Context) error {
	rec, err := v.fetcher.GetTimer(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch timer: %w", err)
	}
	v.Apply(*rec)
	return nil
}
