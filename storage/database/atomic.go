package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type atomizer struct {
	db *sqlx.DB
}

var _ core.Atomizer = (*atomizer)(nil)

// NewAtomizer wraps db as the unit of work for cross-entity writes.
func NewAtomizer(db *sqlx.DB) *atomizer {
	return &atomizer{db: db}
}

// Atomic runs fn inside a transaction. The transaction is rolled back on
// any error or panic and committed otherwise; fn's error (or the commit
// error) is returned with the original cause preserved.
func (a *atomizer) Atomic(ctx context.Context, fn func(tx core.DBExecutor) error) (err error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}
