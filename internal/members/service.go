package members

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Periods() periods.Repository
	CreateGroup(ctx context.Context, g Group) (Group, error)
	GetGroup(ctx context.Context, id int64) (Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	CreateMember(ctx context.Context, m Member) (Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	ListMembers(ctx context.Context, filter ListFilter) ([]Member, int, error)
	ListDeposits(ctx context.Context, memberID int64) ([]Deposit, error)
	ListRegistrationFees(ctx context.Context, memberID int64) ([]RegistrationFee, error)
	MemberTotals(ctx context.Context, memberID int64) (Totals, error)
	CreateEmployer(ctx context.Context, e Employer) (Employer, error)
	ListEmployers(ctx context.Context) ([]Employer, error)
	CreateOccupation(ctx context.Context, o Occupation) (Occupation, error)
	ListOccupations(ctx context.Context) ([]Occupation, error)
	CreateEmployment(ctx context.Context, e Employment) (Employment, error)
	ListEmployments(ctx context.Context, memberID int64) ([]Employment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached reports after ledger writes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// ServiceConfig groups ledger limits.
type ServiceConfig struct {
	RegistrationFeeCap decimal.Decimal
	Clock              ledger.Clock
}

// Service coordinates membership and contributions.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  Invalidator
	feeCap decimal.Decimal
	clock  ledger.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache Invalidator, cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = ledger.SystemClock
	}
	return &Service{repo: repo, audit: audit, cache: cache, feeCap: cfg.RegistrationFeeCap, clock: clock}
}

// RegisterGroup creates an activated group.
func (s *Service) RegisterGroup(ctx context.Context, input GroupInput) (Group, error) {
	return s.repo.CreateGroup(ctx, Group{
		Name:      strings.TrimSpace(input.Name),
		Location:  strings.TrimSpace(input.Location),
		Status:    StatusActivated,
		CreatedAt: s.clock(),
	})
}

// ToggleGroupStatus flips a group's status and applies the new status to all
// of its members. It returns the group and the number of members updated.
func (s *Service) ToggleGroupStatus(ctx context.Context, groupID int64) (Group, int64, error) {
	var (
		group   Group
		updated int64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		g.Status = g.Status.Toggle()
		updated, err = tx.SetGroupStatus(ctx, groupID, g.Status, s.clock())
		group = g
		return err
	})
	if err != nil {
		return Group{}, 0, err
	}
	s.record(ctx, "group:status", "group", groupID, map[string]any{"status": group.Status, "members": updated})
	return group, updated, nil
}

// GetGroup returns a group.
func (s *Service) GetGroup(ctx context.Context, id int64) (Group, error) {
	return s.repo.GetGroup(ctx, id)
}

// ListGroups returns all groups.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

// RegisterMember creates an activated member. Members joining a deactivated
// group start deactivated.
func (s *Service) RegisterMember(ctx context.Context, input MemberInput) (Member, error) {
	status := StatusActivated
	if input.GroupID != nil {
		g, err := s.repo.GetGroup(ctx, *input.GroupID)
		if err != nil {
			return Member{}, err
		}
		status = g.Status
	}
	m, err := s.repo.CreateMember(ctx, Member{
		GroupID:    input.GroupID,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		NationalID: strings.TrimSpace(input.NationalID),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      strings.TrimSpace(input.Phone),
		Status:     status,
		CreatedAt:  s.clock(),
	})
	if err != nil {
		return Member{}, err
	}
	s.bump(ctx)
	return m, nil
}

// ToggleMemberStatus flips a member between activated and deactivated.
func (s *Service) ToggleMemberStatus(ctx context.Context, memberID int64) (Member, error) {
	var member Member
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return err
		}
		m.Status = m.Status.Toggle()
		m.LastUpdated = s.clock()
		member = m
		return tx.SetMemberStatus(ctx, memberID, m.Status, m.LastUpdated)
	})
	if err != nil {
		return Member{}, err
	}
	s.record(ctx, "member:status", "member", memberID, map[string]any{"status": member.Status})
	return member, nil
}

// GetMember returns a member.
func (s *Service) GetMember(ctx context.Context, id int64) (Member, error) {
	return s.repo.GetMember(ctx, id)
}

// ListMembers returns a page of members and the total match count.
func (s *Service) ListMembers(ctx context.Context, filter ListFilter) ([]Member, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 24
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListMembers(ctx, filter)
}

// RecordDeposit books a monthly deposit against the period label, creating
// the period when needed. An empty label books against the current month.
func (s *Service) RecordDeposit(ctx context.Context, memberID int64, input AmountInput) (Deposit, error) {
	if err := ledger.ValidAmount(input.Amount); err != nil {
		return Deposit{}, err
	}
	now := s.clock()
	label := input.Period
	if strings.TrimSpace(label) == "" {
		label = periods.Label(now)
	}
	period, err := periods.Ensure(ctx, s.repo.Periods(), label)
	if err != nil {
		return Deposit{}, err
	}
	var dep Deposit
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return err
		}
		if m.Status != StatusActivated {
			return ErrMemberInactive
		}
		dep, err = tx.InsertDeposit(ctx, Deposit{
			MemberID:    memberID,
			PeriodID:    period.ID,
			PeriodLabel: period.Label,
			Amount:      input.Amount,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return Deposit{}, err
	}
	s.record(ctx, "deposit:create", "member", memberID, map[string]any{"amount": dep.Amount.String(), "period": dep.PeriodLabel})
	s.bump(ctx)
	return dep, nil
}

// RecordRegistrationFee books a registration fee, keeping the member's total
// within the configured maximum.
func (s *Service) RecordRegistrationFee(ctx context.Context, memberID int64, input AmountInput) (RegistrationFee, error) {
	if err := ledger.ValidAmount(input.Amount); err != nil {
		return RegistrationFee{}, err
	}
	var fee RegistrationFee
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockMember(ctx, memberID); err != nil {
			return err
		}
		paid, err := tx.FeesTotal(ctx, memberID)
		if err != nil {
			return err
		}
		if s.feeCap.IsPositive() && paid.Add(input.Amount).GreaterThan(s.feeCap) {
			return &FeeLimitError{Paid: paid, Attempted: input.Amount, Cap: s.feeCap}
		}
		fee, err = tx.InsertRegistrationFee(ctx, RegistrationFee{MemberID: memberID, Amount: input.Amount, CreatedAt: s.clock()})
		return err
	})
	if err != nil {
		return RegistrationFee{}, err
	}
	s.record(ctx, "registration_fee:create", "member", memberID, map[string]any{"amount": fee.Amount.String()})
	s.bump(ctx)
	return fee, nil
}

// Deposits lists a member's deposits, newest first.
func (s *Service) Deposits(ctx context.Context, memberID int64) ([]Deposit, error) {
	return s.repo.ListDeposits(ctx, memberID)
}

// RegistrationFees lists a member's registration fees.
func (s *Service) RegistrationFees(ctx context.Context, memberID int64) ([]RegistrationFee, error) {
	return s.repo.ListRegistrationFees(ctx, memberID)
}

// Statement summarises a member's position.
func (s *Service) Statement(ctx context.Context, memberID int64) (Statement, error) {
	m, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return Statement{}, err
	}
	totals, err := s.repo.MemberTotals(ctx, memberID)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		Member:       m,
		Totals:       totals,
		FeeAllowance: ledger.Outstanding(s.feeCap, totals.RegistrationFees),
		OverdueOwed:  ledger.Outstanding(totals.OverdueCharged, totals.OverduePaid),
	}, nil
}

// RegisterEmployer creates an employer.
func (s *Service) RegisterEmployer(ctx context.Context, input EmployerInput) (Employer, error) {
	return s.repo.CreateEmployer(ctx, Employer{Name: strings.TrimSpace(input.Name), Address: strings.TrimSpace(input.Address), CreatedAt: s.clock()})
}

// Employers lists employers.
func (s *Service) Employers(ctx context.Context) ([]Employer, error) {
	return s.repo.ListEmployers(ctx)
}

// RegisterOccupation creates an occupation.
func (s *Service) RegisterOccupation(ctx context.Context, input OccupationInput) (Occupation, error) {
	return s.repo.CreateOccupation(ctx, Occupation{Description: strings.TrimSpace(input.Description), CreatedAt: s.clock()})
}

// Occupations lists occupations.
func (s *Service) Occupations(ctx context.Context) ([]Occupation, error) {
	return s.repo.ListOccupations(ctx)
}

// RecordEmployment makes the given employment the member's active one.
func (s *Service) RecordEmployment(ctx context.Context, memberID int64, input EmploymentInput) (Employment, error) {
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		return Employment{}, err
	}
	return s.repo.CreateEmployment(ctx, Employment{
		MemberID:     memberID,
		EmployerID:   input.EmployerID,
		OccupationID: input.OccupationID,
		CreatedAt:    s.clock(),
	})
}

// Employments lists a member's employment history.
func (s *Service) Employments(ctx context.Context, memberID int64) ([]Employment, error) {
	return s.repo.ListEmployments(ctx, memberID)
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.clock().Truncate(time.Second),
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}
