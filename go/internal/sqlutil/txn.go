package sqlutil

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool needed to open transactions.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Run executes fn inside a pgx transaction.
// If fn returns an error the tx rolls back, else it commits.
func Run(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx) // BEGIN
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx) // ROLLBACK
		return err
	}
	return tx.Commit(ctx) // COMMIT
}
