package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/config"
	"github.com/mcdev12/stagetimer/go/internal/dbconfig"
	"github.com/mcdev12/stagetimer/go/internal/propagator"
	"github.com/mcdev12/stagetimer/go/internal/timer"
	timerdb "github.com/mcdev12/stagetimer/go/internal/timer/db"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Clock *clocksync.ReferenceClock
	Timer *timer.Service
	Hub   *propagator.Hub
	Relay *propagator.Relay

	closers []func() error
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close service dependency")
		}
	}
}

func setupServices(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	s := &Services{
		Clock: clocksync.NewReferenceClock(clock),
		Hub:   propagator.NewHub(propagator.DefaultHubConfig()),
	}

	repo, source, err := setupStore(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}

	timerApp := timer.NewApp(repo, s.Clock.Clock())
	s.Timer = timer.NewService(timerApp)

	publishers := []propagator.Publisher{s.Hub}
	if cfg.NATS.Enabled {
		natsPublisher, err := propagator.NewNATSPublisher(jetStreamConfig(cfg))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set up NATS publisher: %w", err)
		}
		s.closers = append(s.closers, natsPublisher.Close)
		publishers = append(publishers, natsPublisher)
	}

	if source == nil {
		source = propagator.NewPGListener(timerApp, listenerConfig(cfg, dbconfig.NewConfigFromEnv().DSN()))
	}
	s.Relay = propagator.NewRelay(source, propagator.DefaultRelayConfig(), clock, publishers...)

	return s, nil
}

// setupStore returns the repository and, for the in-memory store, its own
// change feed. A nil feed means changes arrive through Postgres notifications.
func setupStore(ctx context.Context, cfg *config.Config, s *Services) (timer.TimerRepository, propagator.Subscriber, error) {
	if cfg.Server.Store == config.StoreMemory {
		log.Warn().Msg("using in-memory timer store, state is lost on restart")
		mem := timer.NewMemoryRepository()
		return mem, mem, nil
	}

	database, err := setupDatabase(ctx, dbconfig.NewConfigFromEnv())
	if err != nil {
		return nil, nil, err
	}
	s.closers = append(s.closers, database.Close)

	return newPostgresRepository(database), nil, nil
}

func newPostgresRepository(database *sql.DB) *timer.Repository {
	queries := timerdb.New(database)
	return timer.NewRepository(queries, database)
}
