package loans

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
)

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
	two           = decimal.NewFromInt(2)
)

const daysPerYear = 365

// Interest is flat interest over the full term, rounded to cents:
// principal × (max_period × 12) × (rate / 100).
func Interest(principal decimal.Decimal, t LoanType) decimal.Decimal {
	months := decimal.NewFromInt(int64(t.MaxPeriod)).Mul(monthsPerYear)
	return ledger.Cents(principal.Mul(months).Mul(t.Rate).Div(hundred))
}

// Owed is principal plus flat interest.
func Owed(principal decimal.Decimal, t LoanType) decimal.Decimal {
	return principal.Add(Interest(principal, t))
}

// Term is the repayment window of a loan type.
func Term(t LoanType) time.Duration {
	return time.Duration(t.MaxPeriod*daysPerYear) * 24 * time.Hour
}

// DueAt is when a loan created at createdAt falls overdue.
func DueAt(createdAt time.Time, t LoanType) time.Time {
	return createdAt.Add(Term(t))
}

// Ceiling is the largest principal a member may borrow: half the member's
// deposits times the loan type multiplier.
func Ceiling(deposits decimal.Decimal, t LoanType) decimal.Decimal {
	return deposits.Div(two).Mul(t.Multiplier)
}
