package overdue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/loans"
	"github.com/mwanzo/sacco/internal/periods"
)

type memoryRepo struct {
	members       []Member
	deposits      map[int64]map[int64]decimal.Decimal
	loans         []PendingLoan
	depositCharge []DepositCharge
	loanCharge    []LoanCharge
	calendar      *memoryPeriods
	nextID        int64
	// staleReads hides existing charges from the existence check.
	staleReads bool
}

type memoryTx struct {
	repo *memoryRepo
}

type memoryPeriods struct {
	byLabel map[string]periods.Period
	nextID  int64
	// inTx is set while a scan transaction is open.
	inTx        bool
	insertsInTx int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		deposits: make(map[int64]map[int64]decimal.Decimal),
		calendar: &memoryPeriods{byLabel: make(map[string]periods.Period)},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	deposits := append([]DepositCharge(nil), r.depositCharge...)
	loanCharges := append([]LoanCharge(nil), r.loanCharge...)
	r.calendar.inTx = true
	defer func() { r.calendar.inTx = false }()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.depositCharge = deposits
		r.loanCharge = loanCharges
		return err
	}
	return nil
}

func (r *memoryRepo) ListDepositCharges(ctx context.Context, filter ChargeFilter) ([]DepositCharge, error) {
	return r.depositCharge, nil
}

func (r *memoryRepo) ListLoanCharges(ctx context.Context, filter ChargeFilter) ([]LoanCharge, error) {
	return r.loanCharge, nil
}

func (r *memoryRepo) Periods() periods.Repository { return r.calendar }

func (r *memoryRepo) addPeriod(year int, month time.Month) periods.Period {
	p, err := r.calendar.Insert(context.Background(), periods.ForMonth(year, month))
	if err != nil {
		panic(err)
	}
	return p
}

func (r *memoryRepo) deposit(memberID, periodID int64, amount int64) {
	if r.deposits[periodID] == nil {
		r.deposits[periodID] = make(map[int64]decimal.Decimal)
	}
	r.deposits[periodID][memberID] = r.deposits[periodID][memberID].Add(decimal.NewFromInt(amount))
}

func (tx *memoryTx) Members(ctx context.Context) ([]Member, error) {
	return tx.repo.members, nil
}

func (tx *memoryTx) ChargedMembers(ctx context.Context, periodID int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if tx.repo.staleReads {
		return out, nil
	}
	for _, c := range tx.repo.depositCharge {
		if c.PeriodID == periodID {
			out[c.MemberID] = true
		}
	}
	return out, nil
}

func (tx *memoryTx) DepositTotals(ctx context.Context, periodID int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal)
	for member, total := range tx.repo.deposits[periodID] {
		out[member] = total
	}
	return out, nil
}

func (tx *memoryTx) InsertDepositCharge(ctx context.Context, c DepositCharge) (DepositCharge, error) {
	for _, existing := range tx.repo.depositCharge {
		if existing.MemberID == c.MemberID && existing.PeriodID == c.PeriodID {
			return DepositCharge{}, ErrChargeExists
		}
	}
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	tx.repo.depositCharge = append(tx.repo.depositCharge, c)
	return c, nil
}

func (tx *memoryTx) PendingLoans(ctx context.Context) ([]PendingLoan, error) {
	return tx.repo.loans, nil
}

func (tx *memoryTx) ChargedLoans(ctx context.Context, label string) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, c := range tx.repo.loanCharge {
		if c.PeriodLabel == label {
			out[c.LoanID] = true
		}
	}
	return out, nil
}

func (tx *memoryTx) InsertLoanCharge(ctx context.Context, c LoanCharge) (LoanCharge, error) {
	for _, existing := range tx.repo.loanCharge {
		if existing.LoanID == c.LoanID && existing.PeriodLabel == c.PeriodLabel {
			return LoanCharge{}, ErrChargeExists
		}
	}
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	tx.repo.loanCharge = append(tx.repo.loanCharge, c)
	return c, nil
}

func (tx *memoryTx) Periods() periods.Repository { return tx.repo.calendar }

func (p *memoryPeriods) FindByLabel(ctx context.Context, label string) (periods.Period, error) {
	period, ok := p.byLabel[label]
	if !ok {
		return periods.Period{}, periods.ErrPeriodNotFound
	}
	return period, nil
}

func (p *memoryPeriods) Insert(ctx context.Context, period periods.Period) (periods.Period, error) {
	if _, ok := p.byLabel[period.Label]; ok {
		return periods.Period{}, periods.ErrPeriodExists
	}
	if p.inTx {
		p.insertsInTx++
	}
	p.nextID++
	period.ID = p.nextID
	p.byLabel[period.Label] = period
	return period, nil
}

func (p *memoryPeriods) List(ctx context.Context) ([]periods.Period, error) {
	out := make([]periods.Period, 0, len(p.byLabel))
	for _, period := range p.byLabel {
		out = append(out, period)
	}
	return out, nil
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) AddCharges(kind string, count int) {
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[kind] += count
}

var asOf = time.Date(2021, 3, 15, 9, 0, 0, 0, time.UTC)

func newDetector(repo *memoryRepo, recorder Recorder) *Detector {
	return NewDetector(repo, nil, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Threshold:       decimal.NewFromInt(1000),
		LoanOverdueRate: decimal.RequireFromString("0.10"),
		Clock:           func() time.Time { return asOf },
	})
}

func seedDeposits(repo *memoryRepo) (jan, feb periods.Period) {
	repo.members = []Member{
		{ID: 1, CreatedAt: time.Date(2020, 12, 20, 0, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)},
	}
	repo.addPeriod(2020, time.December)
	jan = repo.addPeriod(2021, time.January)
	feb = repo.addPeriod(2021, time.February)
	repo.addPeriod(2021, time.March)
	repo.deposit(1, jan.ID, 600)
	repo.deposit(1, feb.ID, 700)
	repo.deposit(1, feb.ID, 300)
	return jan, feb
}

func TestDetectDepositOverduesChargesShortfall(t *testing.T) {
	repo := newMemoryRepo()
	jan, feb := seedDeposits(repo)
	recorder := &countingRecorder{}
	d := newDetector(repo, recorder)

	ids, err := d.DetectDepositOverdues(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	byPair := map[string]decimal.Decimal{}
	for _, c := range repo.depositCharge {
		require.Equal(t, ledger.StatusPending, c.Status)
		byPair[fmt.Sprintf("%d/%d", c.MemberID, c.PeriodID)] = c.Amount
	}
	require.True(t, byPair[fmt.Sprintf("1/%d", jan.ID)].Equal(decimal.NewFromInt(400)))
	require.True(t, byPair[fmt.Sprintf("2/%d", feb.ID)].Equal(decimal.NewFromInt(1000)))
	require.Equal(t, 2, recorder.counts[string(ledger.KindDepositOverdue)])
}

func TestDetectDepositOverduesIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	seedDeposits(repo)
	d := newDetector(repo, nil)
	ctx := context.Background()

	_, err := d.DetectDepositOverdues(ctx, asOf)
	require.NoError(t, err)
	again, err := d.DetectDepositOverdues(ctx, asOf)
	require.NoError(t, err)
	require.Empty(t, again)
	require.Len(t, repo.depositCharge, 2)
}

func TestDetectDepositOverduesSkipsOpenPeriodAndEarlierMonths(t *testing.T) {
	repo := newMemoryRepo()
	repo.members = []Member{{ID: 7, CreatedAt: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)}}
	repo.addPeriod(2021, time.February)
	repo.addPeriod(2021, time.March)
	d := newDetector(repo, nil)

	ids, err := d.DetectDepositOverdues(context.Background(), asOf)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestDetectDepositOverduesSurfacesDuplicateAndRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	seedDeposits(repo)
	d := newDetector(repo, nil)
	ctx := context.Background()
	_, err := d.DetectDepositOverdues(ctx, asOf)
	require.NoError(t, err)

	repo.members = append(repo.members, Member{ID: 3, CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
	repo.staleReads = true
	_, err = d.DetectDepositOverdues(ctx, asOf)
	require.Error(t, err)
	require.True(t, ledger.IsDuplicateCharge(err))
	require.ErrorIs(t, err, ErrChargeExists)
	require.Len(t, repo.depositCharge, 2)
}

func TestDetectLoanOverdues(t *testing.T) {
	repo := newMemoryRepo()
	term := loans.LoanType{ID: 1, Rate: decimal.RequireFromString("1.2"), MaxPeriod: 1}
	repo.loans = []PendingLoan{
		{Loan: loans.Loan{ID: 10, Principal: decimal.NewFromInt(10000), CreatedAt: asOf.AddDate(-2, 0, 0)}, Type: term},
		{Loan: loans.Loan{ID: 11, Principal: decimal.NewFromInt(5000), CreatedAt: asOf.AddDate(0, -6, 0)}, Type: term},
	}
	recorder := &countingRecorder{}
	d := newDetector(repo, recorder)
	ctx := context.Background()

	ids, err := d.DetectLoanOverdues(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Len(t, repo.loanCharge, 1)
	charge := repo.loanCharge[0]
	require.EqualValues(t, 10, charge.LoanID)
	require.Equal(t, "March 2021", charge.PeriodLabel)
	require.True(t, charge.Amount.Equal(decimal.NewFromInt(1000)))

	_, err = repo.calendar.FindByLabel(ctx, "March 2021")
	require.NoError(t, err)
	require.Zero(t, repo.calendar.insertsInTx)

	again, err := d.DetectLoanOverdues(ctx, asOf)
	require.NoError(t, err)
	require.Empty(t, again)

	next, err := d.DetectLoanOverdues(ctx, asOf.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, 2, recorder.counts[string(ledger.KindLoanOverdue)])
}

func TestShortfallAndPenalty(t *testing.T) {
	amount, due := Shortfall(decimal.NewFromInt(1000), decimal.Zero)
	require.True(t, due)
	require.True(t, amount.Equal(decimal.NewFromInt(1000)))

	_, due = Shortfall(decimal.NewFromInt(1000), decimal.NewFromInt(1000))
	require.False(t, due)

	require.Equal(t, "33.33", Penalty(decimal.RequireFromString("333.33"), decimal.RequireFromString("0.10")).StringFixed(2))
}

func TestHandlerDetectDefaultsToNow(t *testing.T) {
	repo := newMemoryRepo()
	seedDeposits(repo)
	d := newDetector(repo, nil)
	h := NewHandler(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/overdues", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/overdues/deposits/detect", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"kind":"deposit_overdue"`)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"as_of":"2021-03-15T09:00:00Z"}`)
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/overdues/deposits/detect", body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"created":[]`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/overdues/loans/detect", strings.NewReader(`{"as_of":"yesterday"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
