package propagator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

type RelayConfig struct {
	MaxRetries       int
	RetryDelay       time.Duration
	ResubscribeDelay time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxRetries:       3,
		RetryDelay:       200 * time.Millisecond,
		ResubscribeDelay: 2 * time.Second,
	}
}

// Relay forwards every snapshot from a source feed to each publisher. A
// publisher that keeps failing is skipped for that snapshot; the next change
// or fallback refetch carries the full record again.
type Relay struct {
	source     Subscriber
	publishers []Publisher
	cfg        RelayConfig
	clock      clockwork.Clock
}

func NewRelay(source Subscriber, cfg RelayConfig, clock clockwork.Clock, publishers ...Publisher) *Relay {
	return &Relay{
		source:     source,
		publishers: publishers,
		cfg:        cfg,
		clock:      clock,
	}
}

// Run relays until ctx is cancelled, resubscribing to the source when it drops
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Int("publishers", len(r.publishers)).Msg("timer relay started")

	for {
		err := r.relay(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("timer relay shutting down")
			return nil
		}
		log.Error().Err(err).Dur("retry_in", r.cfg.ResubscribeDelay).Msg("timer feed lost, resubscribing")

		select {
		case <-ctx.Done():
			return nil
		case <-r.clock.After(r.cfg.ResubscribeDelay):
		}
	}
}

func (r *Relay) relay(ctx context.Context) error {
	updates, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for rec := range updates {
		for _, pub := range r.publishers {
			if err := r.publishWithRetry(ctx, pub, rec); err != nil {
				log.Error().Err(err).Str("status", string(rec.Status)).Msg("failed to relay timer snapshot")
			}
		}
	}
	return errors.New("source closed")
}

// publishWithRetry attempts to publish a snapshot with a linear backoff
func (r *Relay) publishWithRetry(ctx context.Context, pub Publisher, rec models.TimerRecord) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(delay):
			}
		}

		if err := pub.Publish(ctx, rec); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
