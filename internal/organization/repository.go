package organization

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwanzo/sacco/internal/platform/db"
)

// Repository persists branches and events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const (
	branchColumns = `id, town, location_address, phone, email, created_at, last_updated`
	eventColumns  = `id, description, created_at, last_updated`
)

func (r *Repository) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO branches (town, location_address, phone, email, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		b.Town, b.LocationAddress, b.Phone, b.Email, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return Branch{}, fmt.Errorf("organization: insert branch: %w", err)
	}
	b.LastUpdated = b.CreatedAt
	return b, nil
}

func (r *Repository) UpdateBranch(ctx context.Context, b Branch) (Branch, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE branches SET town = $2, location_address = $3, phone = $4, email = $5, last_updated = $6
		 WHERE id = $1 RETURNING `+branchColumns,
		b.ID, b.Town, b.LocationAddress, b.Phone, b.Email, b.LastUpdated)
	return scanBranch(row)
}

func (r *Repository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	return scanBranch(r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id))
}

func (r *Repository) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY town`)
	if err != nil {
		return nil, fmt.Errorf("organization: list branches: %w", err)
	}
	defer rows.Close()
	var out []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteBranch(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("organization: delete branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBranchNotFound
	}
	return nil
}

func (r *Repository) CreateEvent(ctx context.Context, e Event) (Event, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO events (description, created_at, last_updated) VALUES ($1, $2, $2) RETURNING id`,
		e.Description, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Event{}, ErrDuplicateEvent
		}
		return Event{}, fmt.Errorf("organization: insert event: %w", err)
	}
	e.LastUpdated = e.CreatedAt
	return e, nil
}

func (r *Repository) UpdateEvent(ctx context.Context, e Event) (Event, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE events SET description = $2, last_updated = $3 WHERE id = $1 RETURNING `+eventColumns,
		e.ID, e.Description, e.LastUpdated)
	out, err := scanEvent(row)
	if err != nil && db.IsUniqueViolation(err) {
		return Event{}, ErrDuplicateEvent
	}
	return out, err
}

func (r *Repository) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("organization: list events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("organization: delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanBranch(row pgx.Row) (Branch, error) {
	var b Branch
	if err := row.Scan(&b.ID, &b.Town, &b.LocationAddress, &b.Phone, &b.Email, &b.CreatedAt, &b.LastUpdated); err != nil {
		if db.IsNoRows(err) {
			return Branch{}, ErrBranchNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.Description, &e.CreatedAt, &e.LastUpdated); err != nil {
		if db.IsNoRows(err) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	return e, nil
}
