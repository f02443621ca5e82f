package members

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the membership state shared by members and groups.
type Status string

const (
	StatusActivated   Status = "activated"
	StatusDeactivated Status = "deactivated"
)

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusActivated {
		return StatusDeactivated
	}
	return StatusActivated
}

// Group is a collection of members who register together.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is an individual account holder.
type Member struct {
	ID          int64     `json:"id"`
	GroupID     *int64    `json:"group_id,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	NationalID  string    `json:"national_id"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Deposit is a monthly savings contribution.
type Deposit struct {
	ID          int64           `json:"id"`
	MemberID    int64           `json:"member_id"`
	PeriodID    int64           `json:"period_id"`
	PeriodLabel string          `json:"period"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RegistrationFee is a one-off membership fee instalment.
type RegistrationFee struct {
	ID        int64           `json:"id"`
	MemberID  int64           `json:"member_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Employer is an organisation members work for.
type Employer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Occupation is a job title.
type Occupation struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Employment links a member to an employer and occupation.
type Employment struct {
	ID           int64     `json:"id"`
	MemberID     int64     `json:"member_id"`
	EmployerID   int64     `json:"employer_id"`
	OccupationID int64     `json:"occupation_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Totals aggregates a member's ledger position.
type Totals struct {
	Deposits         decimal.Decimal `json:"deposits"`
	RegistrationFees decimal.Decimal `json:"registration_fees"`
	OverdueCharged   decimal.Decimal `json:"overdue_charged"`
	OverduePaid      decimal.Decimal `json:"overdue_paid"`
	PendingLoans     int             `json:"pending_loans"`
}

// Statement is the member profile summary.
type Statement struct {
	Member       Member          `json:"member"`
	Totals       Totals          `json:"totals"`
	FeeAllowance decimal.Decimal `json:"fee_allowance"`
	OverdueOwed  decimal.Decimal `json:"overdue_owed"`
}

// GroupInput registers a group.
type GroupInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"max=120"`
}

// MemberInput registers a member.
type MemberInput struct {
	GroupID    *int64 `json:"group_id" validate:"omitempty,gt=0"`
	FirstName  string `json:"first_name" validate:"required,max=60"`
	LastName   string `json:"last_name" validate:"required,max=60"`
	NationalID string `json:"national_id" validate:"required,max=20"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,e164"`
}

// AmountInput carries a money amount for deposits and fees.
type AmountInput struct {
	Amount decimal.Decimal `json:"amount"`
	Period string          `json:"period,omitempty"`
}

// EmployerInput registers an employer.
type EmployerInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address" validate:"max=200"`
}

// OccupationInput registers an occupation.
type OccupationInput struct {
	Description string `json:"description" validate:"required,max=120"`
}

// EmploymentInput records employment for a member.
type EmploymentInput struct {
	EmployerID   int64 `json:"employer_id" validate:"required,gt=0"`
	OccupationID int64 `json:"occupation_id" validate:"required,gt=0"`
}

// ListFilter narrows member listings.
type ListFilter struct {
	GroupID int64
	Status  Status
	Search  string
	Limit   int
	Offset  int
}
