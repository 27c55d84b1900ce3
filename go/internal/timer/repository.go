package timer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/mcdev12/stagetimer/go/internal/sqlutil"
	"github.com/mcdev12/stagetimer/go/internal/timer/db"
)

// Repository stores the shared timer row in Postgres
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

// NewRepository creates a new timer repository
func NewRepository(queries *db.Queries, database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: queries,
	}
}

// GetTimer fetches the shared timer row
func (r *Repository) GetTimer(ctx context.Context) (*models.TimerRecord, error) {
	row, err := r.queries.GetTimer(ctx, models.TimerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, storeError("get timer", err)
	}
	return dbTimerToModel(row), nil
}

// EnsureTimer inserts def unless a row already exists, then returns the stored row
func (r *Repository) EnsureTimer(ctx context.Context, def models.TimerRecord) (*models.TimerRecord, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	err := r.queries.InsertTimerIfAbsent(ctx, db.InsertTimerIfAbsentParams{
		ID:          def.ID,
		DurationSec: def.DurationSec,
		StartTime:   sqlutil.ToSqlTime(def.StartTime),
		Status:      string(def.Status),
		UpdatedAt:   def.UpdatedAt,
	})
	if err != nil {
		return nil, storeError("insert default timer", err)
	}
	return r.GetTimer(ctx)
}

// Mutate locks the row, lets fn compute the next state and writes it back
// together with an action log entry, all in one transaction.
func (r *Repository) Mutate(ctx context.Context, fn MutateFunc) (*models.TimerRecord, error) {
	var result *models.TimerRecord

	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		row, err := q.LockTimer(ctx, models.TimerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRecordNotFound
			}
			return storeError("lock timer", err)
		}

		current := dbTimerToModel(row)
		m, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if m == nil {
			result = current
			return nil
		}
		if err := m.Record.Validate(); err != nil {
			return err
		}

		updated, err := q.UpdateTimer(ctx, db.UpdateTimerParams{
			ID:          models.TimerID,
			DurationSec: m.Record.DurationSec,
			StartTime:   sqlutil.ToSqlTime(m.Record.StartTime),
			Status:      string(m.Record.Status),
			UpdatedAt:   m.Record.UpdatedAt,
		})
		if err != nil {
			return storeError("update timer", err)
		}

		err = q.InsertTimerAction(ctx, db.InsertTimerActionParams{
			ID:          uuid.New(),
			TimerID:     models.TimerID,
			Action:      m.Action,
			Details:     sqlutil.ToNullRawMessage(m.Details),
			DurationSec: updated.DurationSec,
			Status:      updated.Status,
			CreatedAt:   m.Record.UpdatedAt,
		})
		if err != nil {
			return storeError("insert timer action", err)
		}

		result = dbTimerToModel(updated)
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, storeError("mutate timer", err)
	}
	return result, nil
}

// ListActions returns the most recent control actions, newest first
func (r *Repository) ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error) {
	rows, err := r.queries.ListTimerActions(ctx, db.ListTimerActionsParams{
		TimerID: models.TimerID,
		Limit:   limit,
	})
	if err != nil {
		return nil, storeError("list timer actions", err)
	}

	actions := make([]models.TimerAction, len(rows))
	for i, row := range rows {
		actions[i] = models.TimerAction{
			ID:          row.ID,
			Action:      row.Action,
			Details:     sqlutil.FromNullRawMessage(row.Details),
			DurationSec: row.DurationSec,
			Status:      models.TimerStatus(row.Status),
			CreatedAt:   row.CreatedAt,
		}
	}
	return actions, nil
}

// dbTimerToModel converts a database timer row to the domain model
func dbTimerToModel(row db.Timer) *models.TimerRecord {
	return &models.TimerRecord{
		ID:          row.ID,
		DurationSec: row.DurationSec,
		StartTime:   sqlutil.FromSqlTime(row.StartTime),
		Status:      models.TimerStatus(row.Status),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrRecordNotFound,
		ErrInvalidInput,
		ErrNotRunning,
		ErrZeroDuration,
		ErrStoreUnavailable,
		models.ErrInvalidRecord,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
