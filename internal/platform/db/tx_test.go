package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	opts pgx.TxOptions
	tx   *fakeTx
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	return b.tx, nil
}

func TestWithTxIsolationLevels(t *testing.T) {
	ctx := context.Background()
	noop := func(pgx.Tx) error { return nil }

	b := &fakeBeginner{tx: &fakeTx{}}
	require.NoError(t, WithTx(ctx, b, noop))
	require.Equal(t, pgx.RepeatableRead, b.opts.IsoLevel)
	require.True(t, b.tx.committed)

	b = &fakeBeginner{tx: &fakeTx{}}
	require.NoError(t, WithTxOptions(ctx, b, ReadCommitted, noop))
	require.Equal(t, pgx.ReadCommitted, b.opts.IsoLevel)
}

func TestWithTxMapsSerializationFailures(t *testing.T) {
	ctx := context.Background()
	serialization := &pgconn.PgError{Code: "40001"}

	b := &fakeBeginner{tx: &fakeTx{}}
	err := WithTx(ctx, b, func(pgx.Tx) error { return serialization })
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, 409, conflict.StatusCode())
	require.ErrorIs(t, err, serialization)
	require.False(t, b.tx.committed)
	require.True(t, b.tx.rolledBack)

	b = &fakeBeginner{tx: &fakeTx{commitErr: &pgconn.PgError{Code: "40P01"}}}
	err = WithTx(ctx, b, func(pgx.Tx) error { return nil })
	require.ErrorAs(t, err, &conflict)

	boom := errors.New("boom")
	b = &fakeBeginner{tx: &fakeTx{}}
	err = WithTx(ctx, b, func(pgx.Tx) error { return boom })
	require.Same(t, boom, err)
}
