package loans

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
)

// LoanType carries the pricing terms shared by loans of one product.
type LoanType struct {
	ID             int64           `json:"id"`
	Description    string          `json:"description"`
	Rate           decimal.Decimal `json:"rate"`
	MaxPeriod      int             `json:"max_period"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	OverduePenalty decimal.Decimal `json:"overdue_penalty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Loan is a principal advanced to a member.
type Loan struct {
	ID          int64           `json:"id"`
	MemberID    int64           `json:"member_id"`
	LoanTypeID  int64           `json:"loan_type_id"`
	Principal   decimal.Decimal `json:"principal"`
	Status      ledger.Status   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Profile summarises a loan's repayment position.
type Profile struct {
	Loan      Loan            `json:"loan"`
	Type      LoanType        `json:"type"`
	Interest  decimal.Decimal `json:"interest"`
	Owed      decimal.Decimal `json:"owed"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	DueAt     time.Time       `json:"due_at"`
}

// LoanTypeInput is used to create or update a loan type.
type LoanTypeInput struct {
	Description    string          `json:"description" validate:"required,max=120"`
	Rate           decimal.Decimal `json:"rate"`
	MaxPeriod      int             `json:"max_period" validate:"gte=1,lte=30"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	OverduePenalty decimal.Decimal `json:"overdue_penalty"`
}

// IssueInput requests a new loan.
type IssueInput struct {
	MemberID   int64           `json:"member_id" validate:"required,gt=0"`
	LoanTypeID int64           `json:"loan_type_id" validate:"required,gt=0"`
	Principal  decimal.Decimal `json:"principal"`
}

// ListFilter narrows loan listings.
type ListFilter struct {
	MemberID int64
	Status   ledger.Status
	Limit    int
	Offset   int
}

// Borrower is the member view the loan service needs.
type Borrower struct {
	ID        int64
	Activated bool
	Deposits  decimal.Decimal
	Pending   int
}
