package shared

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestAuditRecordRequiresIdentity(t *testing.T) {
	logger := NewAuditLogger(&fakeExecer{})
	err := logger.Record(context.Background(), AuditLog{Action: "payment:apply"})
	require.Error(t, err)
}

func TestAuditRecordEncodesMeta(t *testing.T) {
	exec := &fakeExecer{}
	logger := NewAuditLogger(exec)
	err := logger.Record(context.Background(), AuditLog{
		Action:   "payment:apply",
		Entity:   "deposit_overdue",
		EntityID: "7",
		Meta:     map[string]any{"amount": "300.00"},
	})
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(exec.calls[0].args[4].([]byte), &meta))
	require.Equal(t, "300.00", meta["amount"])
	require.Nil(t, exec.calls[0].args[0].(*int64))
}

func TestIdempotencyConflict(t *testing.T) {
	exec := &fakeExecer{err: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(exec)
	err := store.CheckAndInsert(context.Background(), "abc", "payments")
	require.ErrorIs(t, err, ErrIdempotencyConflict)

	exec.err = errors.New("connection reset")
	err = store.CheckAndInsert(context.Background(), "abc", "payments")
	require.EqualError(t, err, "connection reset")

	require.Error(t, store.CheckAndInsert(context.Background(), "", "payments"))
}

func TestIdempotencyCleanupUsesClock(t *testing.T) {
	exec := &fakeExecer{}
	store := NewIdempotencyStore(exec)
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return fixed }

	require.NoError(t, store.Cleanup(context.Background(), 24*time.Hour))
	require.Equal(t, fixed.Add(-24*time.Hour), exec.calls[0].args[0])
}
