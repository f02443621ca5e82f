package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ReadCommitted is used by ledger writes that lock a parent row and then read
// its children: every statement after the lock sees rows committed by the
// previous lock holder.
var ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
// The transaction is rolled back when fn returns an error.
func WithTx(ctx context.Context, pool Beginner, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

// WithTxOptions is WithTx with explicit transaction options. Serialization
// failures are returned as a retryable conflict.
func WithTxOptions(ctx context.Context, pool Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return asConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return asConflict(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}
