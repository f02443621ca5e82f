// Package ledger holds the money types shared by the overdue detector, the
// payment matcher and the summary aggregator.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the settlement state of a charge or a loan.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// ParseStatus normalises persisted status strings. Legacy rows stored "Paid"
// and "paid" interchangeably.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusPaid):
		return StatusPaid, nil
	default:
		return "", fmt.Errorf("ledger: unknown status %q", raw)
	}
}

// ChargeKind names the balance a payment is matched against.
type ChargeKind string

const (
	KindDepositOverdue ChargeKind = "deposit_overdue"
	KindLoanOverdue    ChargeKind = "loan_overdue"
	KindInstallment    ChargeKind = "installment"
)

// ChargeID identifies a deposit-overdue or loan-overdue charge.
type ChargeID int64

// Settlement is the outcome of applying one payment.
type Settlement struct {
	Kind      ChargeKind      `json:"kind"`
	ID        int64           `json:"id"`
	Reference uuid.UUID       `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    Status          `json:"status"`
}

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Amounts are stored as NUMERIC(14,2).
const centPlaces = 2

var maxAmount = decimal.New(1, 12)

// ValidAmount rejects amounts that are not positive, carry fractions of a
// cent, or overflow the ledger columns.
func ValidAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(centPlaces)) || !amount.LessThan(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Cents rounds a computed amount to the precision the ledger stores.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(centPlaces)
}

// Apply checks a payment against the outstanding balance of owed minus paid.
// It returns the balance left after the payment and the resulting status.
func Apply(owed, paid, amount decimal.Decimal) (decimal.Decimal, Status, error) {
	if err := ValidAmount(amount); err != nil {
		return decimal.Zero, "", err
	}
	remaining := owed.Sub(paid)
	if amount.GreaterThan(remaining) {
		return remaining, "", &OverpaymentError{Owed: owed, Paid: paid, Attempted: amount}
	}
	left := remaining.Sub(amount)
	if left.IsZero() {
		return left, StatusPaid, nil
	}
	return left, StatusPending, nil
}

// Outstanding returns owed minus paid, never below zero.
func Outstanding(owed, paid decimal.Decimal) decimal.Decimal {
	remaining := owed.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
