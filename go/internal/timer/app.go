package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultActionLimit = 20
	maxActionLimit     = 200
)

// TimerRepository defines what the app layer needs from the shared store
type TimerRepository interface {
	GetTimer(ctx context.Context) (*models.TimerRecord, error)
	EnsureTimer(ctx context.Context, def models.TimerRecord) (*models.TimerRecord, error)
	Mutate(ctx context.Context, fn MutateFunc) (*models.TimerRecord, error)
	ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error)
}

// App is the timer controller: it validates control actions against the
// current state and applies each one as a single atomic store update.
//
// The clock is the reference clock; every start_time it writes comes from it.
type App struct {
	repo  TimerRepository
	clock clockwork.Clock
}

// NewApp creates a new timer App
func NewApp(repo TimerRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// GetTimer returns the shared record, creating the default one on first access
func (a *App) GetTimer(ctx context.Context) (*models.TimerRecord, error) {
	rec, err := a.repo.GetTimer(ctx)
	if errors.Is(err, ErrRecordNotFound) {
		return a.ensureDefault(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timer: %w", err)
	}
	return rec, nil
}

// Start begins counting down from the stored duration. Starting a timer that
// is already running is a no-op: rebasing start_time would silently shorten
// the countdown every viewer is showing.
func (a *App) Start(ctx context.Context) (*models.TimerRecord, error) {
	return a.mutate(ctx, ActionStart, func(cur models.TimerRecord) (*Mutation, error) {
		if cur.IsRunning() {
			return nil, nil
		}
		if cur.DurationSec <= 0 {
			return nil, ErrZeroDuration
		}

		now := a.now()
		cur.Status = models.TimerStatusRunning
		cur.StartTime = &now
		cur.UpdatedAt = now
		return &Mutation{Record: cur, Action: ActionStart}, nil
	})
}

// Pause bakes the elapsed time into the duration so the paused record holds
// exactly what is left.
func (a *App) Pause(ctx context.Context) (*models.TimerRecord, error) {
	return a.mutate(ctx, ActionPause, func(cur models.TimerRecord) (*Mutation, error) {
		if !cur.IsRunning() {
			return nil, fmt.Errorf("%w: status is %s", ErrNotRunning, cur.Status)
		}

		now := a.now()
		elapsed := models.ElapsedSeconds(cur.StartTime.UnixMilli(), now.UnixMilli())
		cur.DurationSec = models.RemainingAfter(cur.DurationSec, elapsed)
		cur.StartTime = nil
		cur.Status = models.TimerStatusPaused
		cur.UpdatedAt = now
		return &Mutation{Record: cur, Action: ActionPause}, nil
	})
}

// Reset stops the timer from any state. The configured duration is kept;
// only SetDuration changes it.
func (a *App) Reset(ctx context.Context) (*models.TimerRecord, error) {
	return a.mutate(ctx, ActionReset, func(cur models.TimerRecord) (*Mutation, error) {
		now := a.now()
		cur.Status = models.TimerStatusStopped
		cur.StartTime = nil
		cur.UpdatedAt = now
		return &Mutation{Record: cur, Action: ActionReset}, nil
	})
}

// SetDuration sets the duration to minutes*60 without touching status or
// start_time. On a running timer this retargets the countdown in flight.
func (a *App) SetDuration(ctx context.Context, minutes string) (*models.TimerRecord, error) {
	mins, err := ParseMinutes(minutes)
	if err != nil {
		return nil, err
	}
	details, err := json.Marshal(map[string]int64{"minutes": mins})
	if err != nil {
		return nil, fmt.Errorf("failed to encode action details: %w", err)
	}

	return a.mutate(ctx, ActionSetDuration, func(cur models.TimerRecord) (*Mutation, error) {
		cur.DurationSec = mins * 60
		cur.UpdatedAt = a.now()
		return &Mutation{Record: cur, Action: ActionSetDuration, Details: details}, nil
	})
}

// ListActions returns recent control actions, newest first
func (a *App) ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error) {
	if limit <= 0 {
		limit = defaultActionLimit
	}
	if limit > maxActionLimit {
		limit = maxActionLimit
	}

	actions, err := a.repo.ListActions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return actions, nil
}

// ParseMinutes validates operator input for SetDuration
func ParseMinutes(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: minutes is required", ErrInvalidInput)
	}

	mins, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes must be a whole number, got %q", ErrInvalidInput, input)
	}
	if mins < 0 {
		return 0, fmt.Errorf("%w: minutes must not be negative, got %d", ErrInvalidInput, mins)
	}
	if mins > math.MaxInt64/60 {
		return 0, fmt.Errorf("%w: minutes out of range, got %d", ErrInvalidInput, mins)
	}
	return mins, nil
}

// mutate applies fn, creating the default record once if the store is empty
func (a *App) mutate(ctx context.Context, action string, fn MutateFunc) (*models.TimerRecord, error) {
	rec, err := a.repo.Mutate(ctx, fn)
	if errors.Is(err, ErrRecordNotFound) {
		if _, err := a.ensureDefault(ctx); err != nil {
			return nil, err
		}
		rec, err = a.repo.Mutate(ctx, fn)
	}
	if err != nil {
		log.Warn().Err(err).Str("action", action).Msg("timer action rejected")
		return nil, fmt.Errorf("failed to %s timer: %w", strings.ReplaceAll(action, "_", " "), err)
	}

	log.Info().
		Str("action", action).
		Str("status", string(rec.Status)).
		Int64("duration_sec", rec.DurationSec).
		Msg("timer action applied")
	return rec, nil
}

func (a *App) ensureDefault(ctx context.Context) (*models.TimerRecord, error) {
	rec, err := a.repo.EnsureTimer(ctx, models.NewDefaultTimer(a.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create default timer: %w", err)
	}
	log.Info().Int64("duration_sec", rec.DurationSec).Msg("timer record ensured")
	return rec, nil
}

// now reads the reference clock at the millisecond precision viewers use
func (a *App) now() time.Time {
	return a.clock.Now().UTC().Truncate(time.Millisecond)
}
