// Package overdue lays down deposit and loan overdue charges.
package overdue

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/loans"
	"github.com/mwanzo/sacco/internal/periods"
)

// RepositoryPort abstracts repository usage for the detector.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListDepositCharges(ctx context.Context, filter ChargeFilter) ([]DepositCharge, error)
	ListLoanCharges(ctx context.Context, filter ChargeFilter) ([]LoanCharge, error)
	Periods() periods.Repository
}

// Recorder counts charges created per kind.
type Recorder interface {
	AddCharges(kind string, count int)
}

// Invalidator drops cached reports after ledger writes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Config carries the detection policy.
type Config struct {
	Threshold       decimal.Decimal
	LoanOverdueRate decimal.Decimal
	Clock           ledger.Clock
}

// Detector finds members and loans that fell behind and charges them.
type Detector struct {
	repo      RepositoryPort
	cache     Invalidator
	recorder  Recorder
	logger    *slog.Logger
	threshold decimal.Decimal
	loanRate  decimal.Decimal
	clock     ledger.Clock
}

// NewDetector builds Detector.
func NewDetector(repo RepositoryPort, cache Invalidator, recorder Recorder, logger *slog.Logger, cfg Config) *Detector {
	clock := cfg.Clock
	if clock == nil {
		clock = ledger.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		repo:      repo,
		cache:     cache,
		recorder:  recorder,
		logger:    logger.With(slog.String("component", "overdue")),
		threshold: cfg.Threshold,
		loanRate:  cfg.LoanOverdueRate,
		clock:     clock,
	}
}

// DetectDepositOverdues charges every member whose deposits for a closed
// period fall short of the threshold. Members are only charged for periods
// that started after they joined, and never twice for the same period.
func (d *Detector) DetectDepositOverdues(ctx context.Context, asOf time.Time) ([]ledger.ChargeID, error) {
	if !d.threshold.IsPositive() {
		return nil, errors.New("overdue: deposit threshold not configured")
	}
	now := d.clock()
	var created []ledger.ChargeID
	err := d.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created = created[:0]
		calendar, err := tx.Periods().List(ctx)
		if err != nil {
			return err
		}
		members, err := tx.Members(ctx)
		if err != nil {
			return err
		}
		sort.Slice(calendar, func(i, j int) bool { return calendar[i].Start.Before(calendar[j].Start) })
		for _, period := range calendar {
			if period.End.After(asOf) {
				continue
			}
			charged, err := tx.ChargedMembers(ctx, period.ID)
			if err != nil {
				return err
			}
			totals, err := tx.DepositTotals(ctx, period.ID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if !period.Start.After(m.CreatedAt) || charged[m.ID] {
					continue
				}
				shortfall, due := Shortfall(d.threshold, totals[m.ID])
				if !due {
					continue
				}
				charge, err := tx.InsertDepositCharge(ctx, DepositCharge{
					MemberID:    m.ID,
					PeriodID:    period.ID,
					PeriodLabel: period.Label,
					Amount:      shortfall,
					Status:      ledger.StatusPending,
					CreatedAt:   now,
				})
				if err != nil {
					return duplicate(err, ledger.KindDepositOverdue, m.ID, period.Label)
				}
				created = append(created, ledger.ChargeID(charge.ID))
			}
		}
		return nil
	})
	if err != nil {
		d.logger.Error("deposit overdue scan failed", slog.Time("as_of", asOf), slog.Any("error", err))
		return nil, err
	}
	d.after(ctx, ledger.KindDepositOverdue, asOf, created)
	return created, nil
}

// DetectLoanOverdues charges every pending loan that has run past its
// repayment term, at most once per period.
func (d *Detector) DetectLoanOverdues(ctx context.Context, asOf time.Time) ([]ledger.ChargeID, error) {
	if !d.loanRate.IsPositive() {
		return nil, errors.New("overdue: loan overdue rate not configured")
	}
	now := d.clock()
	// Registered before the scan transaction opens.
	period, err := periods.Ensure(ctx, d.repo.Periods(), periods.Label(asOf))
	if err != nil {
		return nil, err
	}
	var created []ledger.ChargeID
	err = d.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created = created[:0]
		pending, err := tx.PendingLoans(ctx)
		if err != nil {
			return err
		}
		charged, err := tx.ChargedLoans(ctx, period.Label)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if charged[p.Loan.ID] || !asOf.After(loans.DueAt(p.Loan.CreatedAt, p.Type)) {
				continue
			}
			charge, err := tx.InsertLoanCharge(ctx, LoanCharge{
				LoanID:      p.Loan.ID,
				PeriodLabel: period.Label,
				Amount:      Penalty(p.Loan.Principal, d.loanRate),
				Status:      ledger.StatusPending,
				CreatedAt:   now,
			})
			if err != nil {
				return duplicate(err, ledger.KindLoanOverdue, p.Loan.ID, period.Label)
			}
			created = append(created, ledger.ChargeID(charge.ID))
		}
		return nil
	})
	if err != nil {
		d.logger.Error("loan overdue scan failed", slog.Time("as_of", asOf), slog.Any("error", err))
		return nil, err
	}
	d.after(ctx, ledger.KindLoanOverdue, asOf, created)
	return created, nil
}

// DepositCharges lists deposit overdue charges.
func (d *Detector) DepositCharges(ctx context.Context, filter ChargeFilter) ([]DepositCharge, error) {
	return d.repo.ListDepositCharges(ctx, normalise(filter))
}

// LoanCharges lists loan overdue charges.
func (d *Detector) LoanCharges(ctx context.Context, filter ChargeFilter) ([]LoanCharge, error) {
	return d.repo.ListLoanCharges(ctx, normalise(filter))
}

// Now exposes the detector clock so callers can default as-of dates.
func (d *Detector) Now() time.Time {
	return d.clock()
}

// Shortfall returns threshold minus deposited and whether a charge is due.
func Shortfall(threshold, deposited decimal.Decimal) (decimal.Decimal, bool) {
	if deposited.IsNegative() {
		deposited = decimal.Zero
	}
	if !deposited.LessThan(threshold) {
		return decimal.Zero, false
	}
	return threshold.Sub(deposited), true
}

// Penalty is the loan overdue charge for a principal, rounded to cents.
func Penalty(principal, rate decimal.Decimal) decimal.Decimal {
	return ledger.Cents(principal.Mul(rate))
}

func (d *Detector) after(ctx context.Context, kind ledger.ChargeKind, asOf time.Time, created []ledger.ChargeID) {
	d.logger.Info("overdue scan completed",
		slog.String("kind", string(kind)),
		slog.Time("as_of", asOf),
		slog.Int("created", len(created)),
	)
	if len(created) == 0 {
		return
	}
	if d.recorder != nil {
		d.recorder.AddCharges(string(kind), len(created))
	}
	if d.cache != nil {
		if err := d.cache.Bump(ctx); err != nil {
			d.logger.Warn("summary cache bump failed", slog.Any("error", err))
		}
	}
}

func duplicate(err error, kind ledger.ChargeKind, ownerID int64, label string) error {
	if errors.Is(err, ErrChargeExists) {
		return &ledger.DuplicateChargeError{Kind: kind, OwnerID: ownerID, Period: label, Err: err}
	}
	return err
}

func normalise(filter ChargeFilter) ChargeFilter {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}
