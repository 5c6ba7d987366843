package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/brequin/catalog/db"
)

// PostgresStore runs reconciliation transactions against the courses table.
type PostgresStore struct {
	DB *db.Database
}

func (s PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, db.NewCourseTx(tx))
	})
}
