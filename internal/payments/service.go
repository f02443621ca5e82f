// Package payments matches payments against overdue charges and loans.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/platform/db"
	"github.com/mwanzo/sacco/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPayments(ctx context.Context, kind ledger.ChargeKind, id int64) ([]Payment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed payment requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Invalidator drops cached reports after ledger writes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder counts applied payments.
type Recorder interface {
	AddPayment(kind, status string)
}

// Dependencies groups the optional collaborators of Service.
type Dependencies struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Cache       Invalidator
	Recorder    Recorder
	Logger      *slog.Logger
	Clock       ledger.Clock
}

// Service applies payments.
type Service struct {
	repo RepositoryPort
	deps Dependencies
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = ledger.SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{repo: repo, deps: deps}
}

// ApplyDepositOverduePayment pays down a deposit overdue charge.
func (s *Service) ApplyDepositOverduePayment(ctx context.Context, chargeID ledger.ChargeID, amount decimal.Decimal) (ledger.Settlement, error) {
	return s.Apply(ctx, Request{Kind: ledger.KindDepositOverdue, ID: int64(chargeID), Amount: amount})
}

// ApplyLoanOverduePayment pays down a loan overdue charge.
func (s *Service) ApplyLoanOverduePayment(ctx context.Context, chargeID ledger.ChargeID, amount decimal.Decimal) (ledger.Settlement, error) {
	return s.Apply(ctx, Request{Kind: ledger.KindLoanOverdue, ID: int64(chargeID), Amount: amount})
}

// ApplyInstallment repays a loan's principal plus flat interest.
func (s *Service) ApplyInstallment(ctx context.Context, loanID int64, amount decimal.Decimal) (ledger.Settlement, error) {
	return s.Apply(ctx, Request{Kind: ledger.KindInstallment, ID: loanID, Amount: amount})
}

// Apply records a payment if it fits within the outstanding balance, and
// settles the charge when the balance reaches zero. The balance check and the
// writes share one transaction holding a row lock on the charge; payments are
// summed only after the lock is held.
func (s *Service) Apply(ctx context.Context, req Request) (ledger.Settlement, error) {
	if err := ledger.ValidAmount(req.Amount); err != nil {
		return ledger.Settlement{}, err
	}
	module := "payments:" + string(req.Kind)
	guarded := false
	if req.Key != "" && s.deps.Idempotency != nil {
		if err := s.deps.Idempotency.CheckAndInsert(ctx, req.Key, module); err != nil {
			return ledger.Settlement{}, err
		}
		guarded = true
	}

	now := s.deps.Clock()
	var settlement ledger.Settlement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		charge, err := tx.LockCharge(ctx, req.Kind, req.ID)
		if err != nil {
			return err
		}
		paid, err := tx.SumPayments(ctx, req.Kind, req.ID)
		if err != nil {
			return err
		}
		remaining, status, err := ledger.Apply(charge.Owed(), paid, req.Amount)
		if err != nil {
			return err
		}
		payment, err := tx.InsertPayment(ctx, Payment{
			Kind:      req.Kind,
			ChargeID:  req.ID,
			Reference: uuid.New(),
			Amount:    req.Amount,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if status == ledger.StatusPaid {
			if err := tx.MarkPaid(ctx, req.Kind, req.ID, now); err != nil {
				return err
			}
		}
		settlement = ledger.Settlement{
			Kind:      req.Kind,
			ID:        req.ID,
			Reference: payment.Reference,
			Amount:    req.Amount,
			Remaining: remaining,
			Status:    status,
		}
		return nil
	})
	if err != nil {
		if guarded {
			_ = s.deps.Idempotency.Delete(ctx, req.Key, module)
		}
		var conflict *db.ConflictError
		if !errors.Is(err, ledger.ErrNotFound) && !ledger.IsOverpayment(err) && !errors.As(err, &conflict) {
			s.deps.Logger.Error("apply payment", slog.String("kind", string(req.Kind)), slog.Int64("id", req.ID), slog.Any("error", err))
		}
		return ledger.Settlement{}, err
	}

	if s.deps.Audit != nil {
		_ = s.deps.Audit.Record(ctx, shared.AuditLog{
			Action:   fmt.Sprintf("payment:%s", req.Kind),
			Entity:   string(req.Kind),
			EntityID: strconv.FormatInt(req.ID, 10),
			Meta: map[string]any{
				"amount":    settlement.Amount.String(),
				"remaining": settlement.Remaining.String(),
				"status":    settlement.Status,
				"reference": settlement.Reference.String(),
			},
			At: now,
		})
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Bump(ctx); err != nil {
			s.deps.Logger.Warn("summary cache bump failed", slog.Any("error", err))
		}
	}
	if s.deps.Recorder != nil {
		s.deps.Recorder.AddPayment(string(req.Kind), string(settlement.Status))
	}
	return settlement, nil
}

// History lists payments made against a charge or loan.
func (s *Service) History(ctx context.Context, kind ledger.ChargeKind, id int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, kind, id)
}
