package loans

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/platform/db"
)

// Repository persists loan types and loans in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the reads and writes performed while issuing a loan.
type TxRepository interface {
	LockBorrower(ctx context.Context, memberID int64) (Borrower, error)
	GetLoanType(ctx context.Context, id int64) (LoanType, error)
	InsertLoan(ctx context.Context, loan Loan) (Loan, error)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const loanTypeColumns = `id, description, rate, max_period, multiplier, overdue_penalty, created_at`
const loanColumns = `id, member_id, loan_type_id, principal, status, created_at, last_updated`

func (r *Repository) CreateLoanType(ctx context.Context, lt LoanType) (LoanType, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO loan_types (description, rate, max_period, multiplier, overdue_penalty)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		lt.Description, lt.Rate, lt.MaxPeriod, lt.Multiplier, lt.OverduePenalty,
	).Scan(&lt.ID, &lt.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return LoanType{}, ErrDuplicateLoanType
		}
		return LoanType{}, fmt.Errorf("loans: insert loan type: %w", err)
	}
	return lt, nil
}

func (r *Repository) UpdateLoanType(ctx context.Context, lt LoanType) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE loan_types SET description = $1, rate = $2, max_period = $3, multiplier = $4, overdue_penalty = $5 WHERE id = $6`,
		lt.Description, lt.Rate, lt.MaxPeriod, lt.Multiplier, lt.OverduePenalty, lt.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateLoanType
		}
		return fmt.Errorf("loans: update loan type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanTypeNotFound
	}
	return nil
}

func (r *Repository) GetLoanType(ctx context.Context, id int64) (LoanType, error) {
	return getLoanType(ctx, r.pool, id)
}

func (r *Repository) ListLoanTypes(ctx context.Context) ([]LoanType, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+loanTypeColumns+` FROM loan_types ORDER BY description`)
	if err != nil {
		return nil, fmt.Errorf("loans: list loan types: %w", err)
	}
	defer rows.Close()
	var out []LoanType
	for rows.Next() {
		lt, err := scanLoanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (r *Repository) GetLoan(ctx context.Context, id int64) (Loan, error) {
	loan, err := scanLoan(r.pool.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Loan{}, ErrLoanNotFound
		}
		return Loan{}, fmt.Errorf("loans: get loan %d: %w", id, err)
	}
	return loan, nil
}

func (r *Repository) ListLoans(ctx context.Context, filter ListFilter) ([]Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE 1=1`
	args := []any{}
	if filter.MemberID > 0 {
		args = append(args, filter.MemberID)
		query += ` AND member_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loans: list loans: %w", err)
	}
	defer rows.Close()
	var out []Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func (r *Repository) SumInstallments(ctx context.Context, loanID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM installments WHERE loan_id = $1`, loanID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loans: sum installments: %w", err)
	}
	return total, nil
}

func (t *txRepo) LockBorrower(ctx context.Context, memberID int64) (Borrower, error) {
	var status string
	err := t.tx.QueryRow(ctx, `SELECT status FROM members WHERE id = $1 FOR UPDATE`, memberID).Scan(&status)
	if err != nil {
		if db.IsNoRows(err) {
			return Borrower{}, ledger.ErrNotFound
		}
		return Borrower{}, fmt.Errorf("loans: lock member %d: %w", memberID, err)
	}
	b := Borrower{ID: memberID, Activated: status == "activated"}
	err = t.tx.QueryRow(ctx,
		`SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE member_id = $1),
			(SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status = 'pending')`,
		memberID,
	).Scan(&b.Deposits, &b.Pending)
	if err != nil {
		return Borrower{}, fmt.Errorf("loans: borrower position %d: %w", memberID, err)
	}
	return b, nil
}

func (t *txRepo) GetLoanType(ctx context.Context, id int64) (LoanType, error) {
	return getLoanType(ctx, t.tx, id)
}

func (t *txRepo) InsertLoan(ctx context.Context, loan Loan) (Loan, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO loans (member_id, loan_type_id, principal, status, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		loan.MemberID, loan.LoanTypeID, loan.Principal, string(loan.Status), loan.CreatedAt,
	).Scan(&loan.ID)
	if err != nil {
		return Loan{}, fmt.Errorf("loans: insert loan: %w", err)
	}
	loan.LastUpdated = loan.CreatedAt
	return loan, nil
}

func getLoanType(ctx context.Context, q queryer, id int64) (LoanType, error) {
	lt, err := scanLoanType(q.QueryRow(ctx, `SELECT `+loanTypeColumns+` FROM loan_types WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return LoanType{}, ErrLoanTypeNotFound
		}
		return LoanType{}, fmt.Errorf("loans: get loan type %d: %w", id, err)
	}
	return lt, nil
}

func scanLoanType(row pgx.Row) (LoanType, error) {
	var lt LoanType
	err := row.Scan(&lt.ID, &lt.Description, &lt.Rate, &lt.MaxPeriod, &lt.Multiplier, &lt.OverduePenalty, &lt.CreatedAt)
	return lt, err
}

func scanLoan(row pgx.Row) (Loan, error) {
	var (
		loan   Loan
		status string
	)
	if err := row.Scan(&loan.ID, &loan.MemberID, &loan.LoanTypeID, &loan.Principal, &status, &loan.CreatedAt, &loan.LastUpdated); err != nil {
		return Loan{}, err
	}
	parsed, err := ledger.ParseStatus(status)
	if err != nil {
		return Loan{}, err
	}
	loan.Status = parsed
	return loan, nil
}
