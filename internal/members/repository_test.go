package members

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

var errNoDatabase = errors.New("no database")

type recordingPool struct {
	opts pgx.TxOptions
}

func (p *recordingPool) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	p.opts = opts
	return nil, errNoDatabase
}

func (p *recordingPool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errNoDatabase
}

func (p *recordingPool) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestLedgerWritesLockAtReadCommitted(t *testing.T) {
	pool := &recordingPool{}
	repo := &Repository{pool: pool}

	err := repo.WithTx(context.Background(), func(context.Context, TxRepository) error { return nil })
	require.ErrorIs(t, err, errNoDatabase)
	require.Equal(t, pgx.ReadCommitted, pool.opts.IsoLevel)
}
