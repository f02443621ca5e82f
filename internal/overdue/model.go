package overdue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/loans"
)

// DepositCharge is a shortfall against the monthly deposit threshold.
type DepositCharge struct {
	ID          int64           `json:"id"`
	MemberID    int64           `json:"member_id"`
	PeriodID    int64           `json:"period_id"`
	PeriodLabel string          `json:"period"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ledger.Status   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	LastUpdated time.Time       `json:"last_updated"`
}

// LoanCharge is a penalty on a loan that outlived its repayment term.
type LoanCharge struct {
	ID          int64           `json:"id"`
	LoanID      int64           `json:"loan_id"`
	PeriodLabel string          `json:"period"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ledger.Status   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Member is the slice of a member the deposit scan needs.
type Member struct {
	ID        int64
	CreatedAt time.Time
}

// PendingLoan pairs an unpaid loan with its pricing terms.
type PendingLoan struct {
	Loan loans.Loan
	Type loans.LoanType
}

// DetectInput triggers a scan. A nil AsOf means now.
type DetectInput struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

// Result lists the charges created by one run.
type Result struct {
	Kind    ledger.ChargeKind `json:"kind"`
	AsOf    time.Time         `json:"as_of"`
	Created []ledger.ChargeID `json:"created"`
}

// ChargeFilter narrows charge listings.
type ChargeFilter struct {
	OwnerID int64
	Status  ledger.Status
	Limit   int
	Offset  int
}
