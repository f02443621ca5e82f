package summary

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/periods"
)

// Repository reads ledger aggregates.
type Repository interface {
	Sum(ctx context.Context, m Metric, w Window) (Aggregate, error)
	CountMembers(ctx context.Context, w Window) (MemberCounts, error)
	Periods(ctx context.Context) ([]periods.Period, error)
}

type metricQuery struct {
	sql string
	// cumulative queries only bound the upper edge of the window.
	cumulative bool
}

var (
	paid    = string(ledger.StatusPaid)
	pending = string(ledger.StatusPending)
)

var metricQueries = map[Metric]metricQuery{
	MetricDeposits:               {sql: windowSum("deposits", "amount", "created_at")},
	MetricInstallments:           {sql: windowSum("installments", "amount", "created_at")},
	MetricLoansSupplied:          {sql: windowSum("loans", "principal", "created_at")},
	MetricRegistrationFees:       {sql: windowSum("registration_fees", "amount", "created_at")},
	MetricDepositOverdueCharges:  {sql: windowSum("deposit_overdue_charges", "amount", "created_at")},
	MetricDepositOverduePayments: {sql: windowSum("deposit_overdue_payments", "amount", "created_at")},
	MetricLoanOverdueCharges:     {sql: windowSum("loan_overdue_charges", "amount", "created_at")},
	MetricLoanOverduePayments:    {sql: windowSum("loan_overdue_payments", "amount", "created_at")},
	// Interest is rounded per loan to cents, as loans.Interest does.
	MetricPaidLoanInterest: {sql: `SELECT COUNT(*), COALESCE(SUM(ROUND(l.principal * t.max_period * 12 * t.rate / 100, 2)), 0)
		FROM loans l JOIN loan_types t ON t.id = l.loan_type_id
		WHERE lower(l.status) = '` + paid + `' AND l.last_updated >= $1 AND l.last_updated < $2`},
	MetricPaidLoans: {sql: `SELECT COUNT(*), COALESCE(SUM(principal), 0) FROM loans
		WHERE lower(status) = '` + paid + `' AND last_updated >= $1 AND last_updated < $2`},
	MetricPendingLoans: {cumulative: true, sql: `SELECT COUNT(*), COALESCE(SUM(principal), 0) FROM loans
		WHERE lower(status) = '` + pending + `' AND created_at < $1`},
	MetricOverdueLoans: {cumulative: true, sql: `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM loan_overdue_charges
		WHERE lower(status) = '` + pending + `' AND created_at < $1`},
}

func windowSum(table, column, stamp string) string {
	return fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(%s), 0) FROM %s WHERE %s >= $1 AND %s < $2`, column, table, stamp, stamp)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	periods periods.Repository
}

// NewRepository returns a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, periods: periods.NewRepository(pool)}
}

func (r *pgRepository) Sum(ctx context.Context, m Metric, w Window) (Aggregate, error) {
	q, ok := metricQueries[m]
	if !ok {
		return Aggregate{}, fmt.Errorf("summary: unknown metric %q", m)
	}
	args := []any{w.From, w.To}
	if q.cumulative {
		args = []any{w.To}
	}
	var agg Aggregate
	if err := r.pool.QueryRow(ctx, q.sql, args...).Scan(&agg.Count, &agg.Total); err != nil {
		return Aggregate{}, fmt.Errorf("summary: sum %s: %w", m, err)
	}
	return agg, nil
}

func (r *pgRepository) CountMembers(ctx context.Context, w Window) (MemberCounts, error) {
	var c MemberCounts
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE created_at < $2), COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2) FROM members`,
		w.From, w.To,
	).Scan(&c.Total, &c.New)
	if err != nil {
		return MemberCounts{}, fmt.Errorf("summary: count members: %w", err)
	}
	return c, nil
}

func (r *pgRepository) Periods(ctx context.Context) ([]periods.Period, error) {
	return r.periods.List(ctx)
}
