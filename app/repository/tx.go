package repository

import (
	"context"
	"database/sql"
)

// WithinTx runs fn inside one transaction, committing only when fn returns
// nil. A rollback after an error is best-effort; the driver discards the
// transaction either way.
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// TxRunner exposes WithinTx behind the DBTX interface so callers stay
// independent of database/sql.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx DBTX) error) error {
	return WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(tx)
	})
}
