package overdue

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/platform/db"
)

// ErrChargeExists is returned when an insert hits the one-charge-per-period
// unique constraint.
var ErrChargeExists = errors.New("overdue: charge already exists")

// TxRepository exposes the reads and writes of one detection run.
type TxRepository interface {
	Members(ctx context.Context) ([]Member, error)
	ChargedMembers(ctx context.Context, periodID int64) (map[int64]bool, error)
	DepositTotals(ctx context.Context, periodID int64) (map[int64]decimal.Decimal, error)
	InsertDepositCharge(ctx context.Context, c DepositCharge) (DepositCharge, error)
	PendingLoans(ctx context.Context) ([]PendingLoan, error)
	ChargedLoans(ctx context.Context, label string) (map[int64]bool, error)
	InsertLoanCharge(ctx context.Context, c LoanCharge) (LoanCharge, error)
	Periods() periods.Repository
}

// Repository persists overdue charges in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// Periods returns the period calendar outside any transaction.
func (r *Repository) Periods() periods.Repository {
	return periods.NewRepository(r.pool)
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *Repository) ListDepositCharges(ctx context.Context, filter ChargeFilter) ([]DepositCharge, error) {
	query := `SELECT c.id, c.member_id, c.period_id, p.label, c.amount, c.status, c.created_at, c.last_updated
		FROM deposit_overdue_charges c JOIN periods p ON p.id = c.period_id WHERE 1=1`
	query, args := applyFilter(query, "c.member_id", filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("overdue: list deposit charges: %w", err)
	}
	defer rows.Close()
	var out []DepositCharge
	for rows.Next() {
		var (
			c      DepositCharge
			status string
		)
		if err := rows.Scan(&c.ID, &c.MemberID, &c.PeriodID, &c.PeriodLabel, &c.Amount, &status, &c.CreatedAt, &c.LastUpdated); err != nil {
			return nil, err
		}
		if c.Status, err = ledger.ParseStatus(status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) ListLoanCharges(ctx context.Context, filter ChargeFilter) ([]LoanCharge, error) {
	query := `SELECT c.id, c.loan_id, c.period_label, c.amount, c.status, c.created_at, c.last_updated
		FROM loan_overdue_charges c WHERE 1=1`
	query, args := applyFilter(query, "c.loan_id", filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("overdue: list loan charges: %w", err)
	}
	defer rows.Close()
	var out []LoanCharge
	for rows.Next() {
		var (
			c      LoanCharge
			status string
		)
		if err := rows.Scan(&c.ID, &c.LoanID, &c.PeriodLabel, &c.Amount, &status, &c.CreatedAt, &c.LastUpdated); err != nil {
			return nil, err
		}
		if c.Status, err = ledger.ParseStatus(status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func applyFilter(query, ownerColumn string, filter ChargeFilter) (string, []any) {
	args := []any{}
	if filter.OwnerID > 0 {
		args = append(args, filter.OwnerID)
		query += ` AND ` + ownerColumn + ` = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND lower(c.status) = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY c.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	return query, args
}

func (t *txRepo) Members(ctx context.Context) ([]Member, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, created_at FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("overdue: list members: %w", err)
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *txRepo) ChargedMembers(ctx context.Context, periodID int64) (map[int64]bool, error) {
	rows, err := t.tx.Query(ctx, `SELECT member_id FROM deposit_overdue_charges WHERE period_id = $1`, periodID)
	if err != nil {
		return nil, fmt.Errorf("overdue: charged members: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (t *txRepo) DepositTotals(ctx context.Context, periodID int64) (map[int64]decimal.Decimal, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT member_id, COALESCE(SUM(amount), 0) FROM deposits WHERE period_id = $1 GROUP BY member_id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("overdue: deposit totals: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			id    int64
			total decimal.Decimal
		)
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}

func (t *txRepo) InsertDepositCharge(ctx context.Context, c DepositCharge) (DepositCharge, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO deposit_overdue_charges (member_id, period_id, amount, status, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		c.MemberID, c.PeriodID, c.Amount, string(c.Status), c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return DepositCharge{}, ErrChargeExists
		}
		return DepositCharge{}, fmt.Errorf("overdue: insert deposit charge: %w", err)
	}
	c.LastUpdated = c.CreatedAt
	return c, nil
}

func (t *txRepo) PendingLoans(ctx context.Context) ([]PendingLoan, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT l.id, l.member_id, l.principal, l.created_at, t.id, t.rate, t.max_period, t.multiplier, t.overdue_penalty
		 FROM loans l JOIN loan_types t ON t.id = l.loan_type_id
		 WHERE lower(l.status) = $1 ORDER BY l.id`, string(ledger.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("overdue: pending loans: %w", err)
	}
	defer rows.Close()
	var out []PendingLoan
	for rows.Next() {
		var p PendingLoan
		if err := rows.Scan(&p.Loan.ID, &p.Loan.MemberID, &p.Loan.Principal, &p.Loan.CreatedAt,
			&p.Type.ID, &p.Type.Rate, &p.Type.MaxPeriod, &p.Type.Multiplier, &p.Type.OverduePenalty); err != nil {
			return nil, err
		}
		p.Loan.LoanTypeID = p.Type.ID
		p.Loan.Status = ledger.StatusPending
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *txRepo) ChargedLoans(ctx context.Context, label string) (map[int64]bool, error) {
	rows, err := t.tx.Query(ctx, `SELECT loan_id FROM loan_overdue_charges WHERE period_label = $1`, label)
	if err != nil {
		return nil, fmt.Errorf("overdue: charged loans: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (t *txRepo) InsertLoanCharge(ctx context.Context, c LoanCharge) (LoanCharge, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO loan_overdue_charges (loan_id, period_label, amount, status, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		c.LoanID, c.PeriodLabel, c.Amount, string(c.Status), c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return LoanCharge{}, ErrChargeExists
		}
		return LoanCharge{}, fmt.Errorf("overdue: insert loan charge: %w", err)
	}
	c.LastUpdated = c.CreatedAt
	return c, nil
}

func (t *txRepo) Periods() periods.Repository {
	return periods.NewTxRepository(t.tx)
}
