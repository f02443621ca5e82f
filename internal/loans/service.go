package loans

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateLoanType(ctx context.Context, lt LoanType) (LoanType, error)
	UpdateLoanType(ctx context.Context, lt LoanType) error
	GetLoanType(ctx context.Context, id int64) (LoanType, error)
	ListLoanTypes(ctx context.Context) ([]LoanType, error)
	GetLoan(ctx context.Context, id int64) (Loan, error)
	ListLoans(ctx context.Context, filter ListFilter) ([]Loan, error)
	SumInstallments(ctx context.Context, loanID int64) (decimal.Decimal, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates loan products and loan issuance.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	clock ledger.Clock
}

// NewService builds Service. A nil clock uses the system clock.
func NewService(repo RepositoryPort, audit AuditPort, clock ledger.Clock) *Service {
	if clock == nil {
		clock = ledger.SystemClock
	}
	return &Service{repo: repo, audit: audit, clock: clock}
}

// CreateLoanType registers a loan product.
func (s *Service) CreateLoanType(ctx context.Context, input LoanTypeInput) (LoanType, error) {
	lt, err := loanTypeFromInput(input)
	if err != nil {
		return LoanType{}, err
	}
	return s.repo.CreateLoanType(ctx, lt)
}

// UpdateLoanType replaces the terms of an existing loan product. Terms of
// already issued loans follow the product.
func (s *Service) UpdateLoanType(ctx context.Context, id int64, input LoanTypeInput) (LoanType, error) {
	lt, err := loanTypeFromInput(input)
	if err != nil {
		return LoanType{}, err
	}
	lt.ID = id
	if err := s.repo.UpdateLoanType(ctx, lt); err != nil {
		return LoanType{}, err
	}
	return s.repo.GetLoanType(ctx, id)
}

// ListLoanTypes returns every loan product.
func (s *Service) ListLoanTypes(ctx context.Context) ([]LoanType, error) {
	return s.repo.ListLoanTypes(ctx)
}

// Issue advances a loan to a member. A member may hold one pending loan and
// may borrow up to half of their deposits times the product multiplier.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Loan, error) {
	if err := ledger.ValidAmount(input.Principal); err != nil {
		return Loan{}, err
	}
	var issued Loan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		borrower, err := tx.LockBorrower(ctx, input.MemberID)
		if err != nil {
			return err
		}
		if !borrower.Activated {
			return ErrMemberInactive
		}
		if borrower.Pending > 0 {
			return ErrPendingLoan
		}
		lt, err := tx.GetLoanType(ctx, input.LoanTypeID)
		if err != nil {
			return err
		}
		ceiling := Ceiling(borrower.Deposits, lt)
		if input.Principal.GreaterThan(ceiling) {
			return &LimitError{Requested: input.Principal, Ceiling: ceiling}
		}
		issued, err = tx.InsertLoan(ctx, Loan{
			MemberID:   input.MemberID,
			LoanTypeID: lt.ID,
			Principal:  input.Principal,
			Status:     ledger.StatusPending,
			CreatedAt:  s.clock(),
		})
		return err
	})
	if err != nil {
		return Loan{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "loan:issue",
			Entity:   "loan",
			EntityID: strconv.FormatInt(issued.ID, 10),
			Meta: map[string]any{
				"member_id": issued.MemberID,
				"principal": issued.Principal.String(),
			},
			At: issued.CreatedAt,
		})
	}
	return issued, nil
}

// Profile reports interest, amount owed and repayment progress for a loan.
func (s *Service) Profile(ctx context.Context, loanID int64) (Profile, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return Profile{}, err
	}
	lt, err := s.repo.GetLoanType(ctx, loan.LoanTypeID)
	if err != nil {
		return Profile{}, err
	}
	paid, err := s.repo.SumInstallments(ctx, loanID)
	if err != nil {
		return Profile{}, err
	}
	owed := Owed(loan.Principal, lt)
	return Profile{
		Loan:      loan,
		Type:      lt,
		Interest:  Interest(loan.Principal, lt),
		Owed:      owed,
		Paid:      paid,
		Remaining: ledger.Outstanding(owed, paid),
		DueAt:     DueAt(loan.CreatedAt, lt),
	}, nil
}

// List returns loans matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Loan, error) {
	return s.repo.ListLoans(ctx, filter)
}

func loanTypeFromInput(input LoanTypeInput) (LoanType, error) {
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		return LoanType{}, errors.New("loans: description required")
	}
	if !input.Rate.IsPositive() || !input.Multiplier.IsPositive() || input.MaxPeriod <= 0 {
		return LoanType{}, ErrInvalidTerms
	}
	if input.OverduePenalty.IsNegative() {
		return LoanType{}, ErrInvalidTerms
	}
	return LoanType{
		Description:    desc,
		Rate:           input.Rate,
		MaxPeriod:      input.MaxPeriod,
		Multiplier:     input.Multiplier,
		OverduePenalty: input.OverduePenalty,
	}, nil
}
