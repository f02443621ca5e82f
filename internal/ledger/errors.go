package ledger

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the referenced charge, loan or member does not exist.
	ErrNotFound error = &kindError{msg: "ledger: record not found", status: http.StatusNotFound}
	// ErrInvalidAmount rejects zero, negative and sub-cent amounts.
	ErrInvalidAmount error = &kindError{msg: "ledger: amount must be positive with at most two decimal places", status: http.StatusBadRequest}
)

type kindError struct {
	msg    string
	status int
}

func (e *kindError) Error() string   { return e.msg }
func (e *kindError) StatusCode() int { return e.status }

// DuplicateChargeError reports an attempt to create a second charge for an
// already covered member/period or loan/period pair.
type DuplicateChargeError struct {
	Kind    ChargeKind
	OwnerID int64
	Period  string
	Err     error
}

func (e *DuplicateChargeError) Error() string {
	return fmt.Sprintf("ledger: %s charge already exists for %d in %s", e.Kind, e.OwnerID, e.Period)
}

func (e *DuplicateChargeError) Unwrap() error {
	return e.Err
}

func (e *DuplicateChargeError) StatusCode() int { return http.StatusConflict }

// OverpaymentError reports a payment larger than the remaining balance.
type OverpaymentError struct {
	Owed      decimal.Decimal
	Paid      decimal.Decimal
	Attempted decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("ledger: payment of %s exceeds remaining balance %s", money(e.Attempted), money(e.Remaining()))
}

// money prints whole cents with two places and keeps any finer digits.
func money(v decimal.Decimal) string {
	if v.Equal(v.Truncate(2)) {
		return v.StringFixed(2)
	}
	return v.String()
}

func (e *OverpaymentError) StatusCode() int { return http.StatusUnprocessableEntity }

// Remaining is the balance the payment was checked against.
func (e *OverpaymentError) Remaining() decimal.Decimal {
	return Outstanding(e.Owed, e.Paid)
}

// IsDuplicateCharge reports whether err wraps a DuplicateChargeError.
func IsDuplicateCharge(err error) bool {
	var dup *DuplicateChargeError
	return errors.As(err, &dup)
}

// IsOverpayment reports whether err wraps an OverpaymentError.
func IsOverpayment(err error) bool {
	var over *OverpaymentError
	return errors.As(err, &over)
}
