package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Run executes fn inside a *sql.Tx bound to a fresh set of sqlc queries.
// If fn returns an error (or panics) the tx rolls back, else it commits.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	newQueries func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	tx, err := db.BeginTx(ctx, nil) // BEGIN
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() // ROLLBACK
			panic(p)
		}
	}()

	if err := fn(newQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil { // COMMIT
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
