package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/loans"
	"github.com/mwanzo/sacco/internal/platform/db"
)

// TxRepository exposes the locked reads and writes of one payment.
type TxRepository interface {
	LockCharge(ctx context.Context, kind ledger.ChargeKind, id int64) (Charge, error)
	SumPayments(ctx context.Context, kind ledger.ChargeKind, id int64) (decimal.Decimal, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	MarkPaid(ctx context.Context, kind ledger.ChargeKind, id int64, at time.Time) error
}

type tables struct {
	charges  string
	payments string
	owner    string
}

var kindTables = map[ledger.ChargeKind]tables{
	ledger.KindDepositOverdue: {charges: "deposit_overdue_charges", payments: "deposit_overdue_payments", owner: "charge_id"},
	ledger.KindLoanOverdue:    {charges: "loan_overdue_charges", payments: "loan_overdue_payments", owner: "charge_id"},
	ledger.KindInstallment:    {charges: "loans", payments: "installments", owner: "loan_id"},
}

func tablesFor(kind ledger.ChargeKind) (tables, error) {
	t, ok := kindTables[kind]
	if !ok {
		return tables{}, fmt.Errorf("payments: unknown charge kind %q", kind)
	}
	return t, nil
}

type txPool interface {
	db.Beginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository persists payments in PostgreSQL.
type Repository struct {
	pool txPool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction. The
// charge row lock serialises payments, and each statement after it sees the
// payments committed by the previous holder.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListPayments returns the payments made against a charge or loan, oldest first.
func (r *Repository) ListPayments(ctx context.Context, kind ledger.ChargeKind, id int64) ([]Payment, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, `+t.owner+`, reference, amount, created_at FROM `+t.payments+` WHERE `+t.owner+` = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("payments: list %s: %w", kind, err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p := Payment{Kind: kind}
		if err := rows.Scan(&p.ID, &p.ChargeID, &p.Reference, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *txRepo) LockCharge(ctx context.Context, kind ledger.ChargeKind, id int64) (Charge, error) {
	c := Charge{Kind: kind, ID: id}
	var (
		status string
		err    error
	)
	if kind == ledger.KindInstallment {
		var lt loans.LoanType
		err = t.tx.QueryRow(ctx,
			`SELECT l.principal, l.status, lt.id, lt.rate, lt.max_period, lt.multiplier, lt.overdue_penalty
			 FROM loans l JOIN loan_types lt ON lt.id = l.loan_type_id
			 WHERE l.id = $1 FOR UPDATE OF l`, id,
		).Scan(&c.Amount, &status, &lt.ID, &lt.Rate, &lt.MaxPeriod, &lt.Multiplier, &lt.OverduePenalty)
		c.Terms = &lt
	} else {
		var tbl tables
		if tbl, err = tablesFor(kind); err != nil {
			return Charge{}, err
		}
		err = t.tx.QueryRow(ctx, `SELECT amount, status FROM `+tbl.charges+` WHERE id = $1 FOR UPDATE`, id).Scan(&c.Amount, &status)
	}
	if err != nil {
		if db.IsNoRows(err) {
			return Charge{}, fmt.Errorf("%w: %s %d", ledger.ErrNotFound, kind, id)
		}
		return Charge{}, fmt.Errorf("payments: lock %s %d: %w", kind, id, err)
	}
	if c.Status, err = ledger.ParseStatus(status); err != nil {
		return Charge{}, err
	}
	return c, nil
}

func (t *txRepo) SumPayments(ctx context.Context, kind ledger.ChargeKind, id int64) (decimal.Decimal, error) {
	tbl, err := tablesFor(kind)
	if err != nil {
		return decimal.Zero, err
	}
	var total decimal.Decimal
	err = t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM `+tbl.payments+` WHERE `+tbl.owner+` = $1`, id).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payments: sum %s %d: %w", kind, id, err)
	}
	return total, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	tbl, err := tablesFor(p.Kind)
	if err != nil {
		return Payment{}, err
	}
	err = t.tx.QueryRow(ctx,
		`INSERT INTO `+tbl.payments+` (`+tbl.owner+`, reference, amount, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.ChargeID, p.Reference, p.Amount, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return Payment{}, fmt.Errorf("payments: insert %s payment: %w", p.Kind, err)
	}
	return p, nil
}

func (t *txRepo) MarkPaid(ctx context.Context, kind ledger.ChargeKind, id int64, at time.Time) error {
	tbl, err := tablesFor(kind)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `UPDATE `+tbl.charges+` SET status = $2, last_updated = $3 WHERE id = $1`, id, string(ledger.StatusPaid), at)
	if err != nil {
		return fmt.Errorf("payments: settle %s %d: %w", kind, id, err)
	}
	return nil
}
