package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mwanzo/sacco/internal/platform/db"
)

var (
	// ErrPeriodNotFound indicates the label is not registered.
	ErrPeriodNotFound = errors.New("periods: period not found")
	// ErrPeriodExists is returned when an insert loses a race on the unique label.
	ErrPeriodExists = errors.New("periods: period already exists")
)

// Repository persists periods.
type Repository interface {
	FindByLabel(ctx context.Context, label string) (Period, error)
	Insert(ctx context.Context, p Period) (Period, error)
	List(ctx context.Context) ([]Period, error)
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgRepository struct {
	q Querier
}

// NewRepository returns a PostgreSQL backed repository, usually over a
// *pgxpool.Pool.
func NewRepository(q Querier) Repository {
	return &pgRepository{q: q}
}

// NewTxRepository binds the repository to an open transaction.
func NewTxRepository(tx pgx.Tx) Repository {
	return &pgRepository{q: tx}
}

const periodColumns = `id, label, month, year, created_at`

func (r *pgRepository) FindByLabel(ctx context.Context, label string) (Period, error) {
	row := r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE label = $1`, label)
	p, err := scanPeriod(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("periods: find %q: %w", label, err)
	}
	return p, nil
}

func (r *pgRepository) Insert(ctx context.Context, p Period) (Period, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO periods (label, month, year, starts_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING RETURNING id, created_at`,
		p.Label, int(p.Month), p.Year, p.Start,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) || db.IsUniqueViolation(err) {
			return Period{}, ErrPeriodExists
		}
		return Period{}, fmt.Errorf("periods: insert %q: %w", p.Label, err)
	}
	return p, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.q.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("periods: list: %w", err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPeriod(row pgx.Row) (Period, error) {
	var (
		id        int64
		label     string
		month     int
		year      int
		createdAt time.Time
	)
	if err := row.Scan(&id, &label, &month, &year, &createdAt); err != nil {
		return Period{}, err
	}
	p := ForMonth(year, time.Month(month))
	p.ID = id
	p.Label = label
	p.CreatedAt = createdAt
	return p, nil
}
