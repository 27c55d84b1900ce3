package propagator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL          string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel        string        // Channel the timers trigger notifies on
	FallbackInterval     time.Duration // How often to refetch in case a notification was missed
	PingInterval         time.Duration
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:          "",
		NotifyChannel:        "timer_changes",
		FallbackInterval:     10 * time.Second,
		PingInterval:         90 * time.Second,
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
	}
}

// PGListener turns Postgres notifications on the timers table into record
// snapshots. Notifications only carry the row id; the record itself is
// always refetched so a subscriber never sees a partial update.
type PGListener struct {
	fetcher Fetcher
	cfg     ListenerConfig
}

func NewPGListener(fetcher Fetcher, cfg ListenerConfig) *PGListener {
	return &PGListener{
		fetcher: fetcher,
		cfg:     cfg,
	}
}

// Subscribe opens a dedicated LISTEN connection for the lifetime of ctx
func (l *PGListener) Subscribe(ctx context.Context) (<-chan models.TimerRecord, error) {
	listener := pq.NewListener(
		l.cfg.DatabaseURL,
		l.cfg.MinReconnectInterval,
		l.cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := listener.Listen(l.cfg.NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Msg("listening for timer notifications")

	ch := make(chan models.TimerRecord, 1)
	go l.run(ctx, listener, ch)
	return ch, nil
}

func (l *PGListener) run(ctx context.Context, listener *pq.Listener, ch chan models.TimerRecord) {
	defer close(ch)
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close listener")
		}
	}()

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	// Anything written before LISTEN took effect is picked up here
	l.refresh(ctx, ch, "initial")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer listener shutting down")
			return
		case note := <-listener.Notify:
			if note == nil {
				// connection was re-established, notifications may have been lost
				l.refresh(ctx, ch, "reconnect")
				continue
			}
			if id, err := strconv.ParseInt(note.Extra, 10, 64); err != nil || id != models.TimerID {
				log.Warn().Str("payload", note.Extra).Msg("ignoring notification for unknown timer")
				continue
			}
			l.refresh(ctx, ch, "notify")
		case <-fallbackTicker.C:
			l.refresh(ctx, ch, "fallback")
		case <-pingTicker.C:
			if err := listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *PGListener) refresh(ctx context.Context, ch chan models.TimerRecord, reason string) {
	rec, err := l.fetcher.GetTimer(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("reason", reason).Msg("failed to fetch timer after notification")
		}
		return
	}
	sendLatest(ch, *rec)
}
