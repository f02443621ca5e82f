package loans

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrLoanTypeNotFound indicates the loan type does not exist.
	ErrLoanTypeNotFound = errors.New("loans: loan type not found")
	// ErrLoanNotFound indicates the loan does not exist.
	ErrLoanNotFound = errors.New("loans: loan not found")
	// ErrDuplicateLoanType indicates the description is already taken.
	ErrDuplicateLoanType = errors.New("loans: loan type description already exists")
	// ErrPendingLoan blocks a second loan while one is still being repaid.
	ErrPendingLoan = errors.New("loans: member has a pending loan")
	// ErrMemberInactive blocks loans to deactivated members.
	ErrMemberInactive = errors.New("loans: member is deactivated")
	// ErrInvalidTerms rejects non-positive rates or multipliers.
	ErrInvalidTerms = errors.New("loans: rate and multiplier must be positive")
)

// LimitError reports a principal above the member's ceiling.
type LimitError struct {
	Requested decimal.Decimal
	Ceiling   decimal.Decimal
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("loans: principal %s exceeds limit %s", e.Requested.StringFixed(2), e.Ceiling.StringFixed(2))
}

func (e *LimitError) StatusCode() int { return http.StatusUnprocessableEntity }
