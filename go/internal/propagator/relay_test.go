package propagator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	records  []models.TimerRecord
	failures int
}

func (p *recordingPublisher) Publish(ctx context.Context, rec models.TimerRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("nats unavailable")
	}
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) published() []models.TimerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TimerRecord(nil), p.records...)
}

type sliceSubscriber struct {
	records []models.TimerRecord
}

func (s *sliceSubscriber) Subscribe(ctx context.Context) (<-chan models.TimerRecord, error) {
	ch := make(chan models.TimerRecord, len(s.records))
	for _, rec := range s.records {
		ch <- rec
	}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func TestRelay_FansOutToEveryPublisher(t *testing.T) {
	source := &sliceSubscriber{records: []models.TimerRecord{
		{ID: 1, DurationSec: 300, Status: models.TimerStatusStopped},
		{ID: 1, DurationSec: 120, Status: models.TimerStatusStopped},
	}}
	a, b := &recordingPublisher{}, &recordingPublisher{}
	relay := NewRelay(source, DefaultRelayConfig(), clockwork.NewRealClock(), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, relay.Run(ctx))
	}()

	for _, pub := range []*recordingPublisher{a, b} {
		require.Eventually(t, func() bool { return len(pub.published()) == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, int64(120), pub.published()[1].DurationSec)
	}

	cancel()
	<-done
}

func TestRelay_RetriesFailedPublish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pub := &recordingPublisher{failures: 2}
	relay := NewRelay(nil, RelayConfig{MaxRetries: 3, RetryDelay: 100 * time.Millisecond}, clock)

	errCh := make(chan error, 1)
	go func() {
		errCh <- relay.publishWithRetry(context.Background(), pub, models.TimerRecord{ID: 1})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(200 * time.Millisecond)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish did not finish")
	}
	assert.Len(t, pub.published(), 1)
}

func TestRelay_GivesUpAfterMaxRetries(t *testing.T) {
	pub := &recordingPublisher{failures: 10}
	relay := NewRelay(nil, RelayConfig{MaxRetries: 2, RetryDelay: time.Millisecond}, clockwork.NewRealClock())

	err := relay.publishWithRetry(context.Background(), pub, models.TimerRecord{ID: 1})
	assert.ErrorContains(t, err, "publish failed after 3 attempts")
	assert.Empty(t, pub.published())
}
