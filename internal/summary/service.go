package summary

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mwanzo/sacco/internal/ledger"
)

const sumConcurrency = 4

// Config carries the reporting policy.
type Config struct {
	Anchor        time.Duration
	DividendRatio decimal.Decimal
	FirstYear     int
	Clock         ledger.Clock
}

// Service builds and caches reports.
type Service struct {
	repo   Repository
	cache  *Cache
	cfg    Config
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service. A nil cache disables caching.
func NewService(repo Repository, cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = ledger.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// SummarizeYear reports on a whole year.
func (s *Service) SummarizeYear(ctx context.Context, year int) (Report, error) {
	return s.SummarizePeriod(ctx, year, nil)
}

// SummarizePeriod reports on one month of a year, or the whole year when
// month is nil.
func (s *Service) SummarizePeriod(ctx context.Context, year int, month *int) (Report, error) {
	var (
		w   Window
		err error
	)
	scope := "all"
	if month == nil {
		w, err = YearWindow(year, s.cfg.Anchor)
	} else {
		w, err = MonthWindow(year, *month, s.cfg.Anchor)
		scope = strconv.Itoa(*month)
	}
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cached(ctx, &report, func(ctx context.Context) (any, error) {
		return s.build(ctx, year, month, w)
	}, "report", strconv.Itoa(year), scope)
	return report, err
}

// MonthlyRecords sums each ledger table per registered period of a year.
func (s *Service) MonthlyRecords(ctx context.Context, year int) ([]MonthRecord, error) {
	if _, err := YearWindow(year, s.cfg.Anchor); err != nil {
		return nil, err
	}
	var records []MonthRecord
	err := s.cached(ctx, &records, func(ctx context.Context) (any, error) {
		calendar, err := s.repo.Periods(ctx)
		if err != nil {
			return nil, err
		}
		out := []MonthRecord{}
		for _, p := range calendar {
			if p.Year != year {
				continue
			}
			w, err := MonthWindow(p.Year, int(p.Month), s.cfg.Anchor)
			if err != nil {
				return nil, err
			}
			totals, err := s.sumAll(ctx, monthMetrics, w)
			if err != nil {
				return nil, err
			}
			out = append(out, MonthRecord{Period: p.Label, From: w.From, To: w.To, Totals: totals})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
		return out, nil
	}, "months", strconv.Itoa(year))
	return records, err
}

// Compare sums the income series of every closed year from the first
// reporting year.
func (s *Service) Compare(ctx context.Context) ([]YearComparison, error) {
	now := s.cfg.Clock()
	first := s.cfg.FirstYear
	if first <= 0 {
		first = now.Year() - 5
	}
	var rows []YearComparison
	err := s.cached(ctx, &rows, func(ctx context.Context) (any, error) {
		out := []YearComparison{}
		for year := first; year < now.Year(); year++ {
			w, err := YearWindow(year, s.cfg.Anchor)
			if err != nil {
				return nil, err
			}
			totals, err := s.sumAll(ctx, comparisonMetrics, w)
			if err != nil {
				return nil, err
			}
			row := YearComparison{Year: year, Totals: make(map[Metric]decimal.Decimal, len(totals))}
			for m, agg := range totals {
				row.Totals[m] = agg.Total
			}
			out = append(out, row)
		}
		return out, nil
	}, "comparison", strconv.Itoa(first), strconv.Itoa(now.Year()))
	return rows, err
}

// Warm precomputes the reports most likely to be requested for a year.
func (s *Service) Warm(ctx context.Context, year int) error {
	if _, err := s.SummarizeYear(ctx, year); err != nil {
		return err
	}
	_, err := s.MonthlyRecords(ctx, year)
	return err
}

// Now exposes the service clock.
func (s *Service) Now() time.Time {
	return s.cfg.Clock()
}

func (s *Service) build(ctx context.Context, year int, month *int, w Window) (Report, error) {
	totals, err := s.sumAll(ctx, reportMetrics, w)
	if err != nil {
		return Report{}, err
	}
	members, err := s.repo.CountMembers(ctx, w)
	if err != nil {
		return Report{}, err
	}
	report := Report{Year: year, Month: month, From: w.From, To: w.To, Totals: totals, Members: members}
	report.Profits = Distribute(report, s.cfg.DividendRatio)
	return report, nil
}

// Distribute splits the gross profit of a report between dividends and the
// organisation.
func Distribute(r Report, dividendRatio decimal.Decimal) Profits {
	gross := r.Total(MetricDepositOverduePayments).Total.
		Add(r.Total(MetricLoanOverduePayments).Total).
		Add(r.Total(MetricRegistrationFees).Total).
		Add(r.Total(MetricPaidLoanInterest).Total)
	dividends := gross.Mul(dividendRatio)
	return Profits{
		Gross:             gross,
		Dividends:         dividends,
		OrganizationShare: gross.Sub(dividends),
		Credit:            r.Total(MetricLoansSupplied).Total,
		Debit:             gross.Add(r.Total(MetricDeposits).Total),
	}
}

func (s *Service) sumAll(ctx context.Context, metrics []Metric, w Window) (map[Metric]Aggregate, error) {
	var mu sync.Mutex
	totals := make(map[Metric]Aggregate, len(metrics))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sumConcurrency)
	for _, m := range metrics {
		m := m
		g.Go(func() error {
			agg, err := s.repo.Sum(ctx, m, w)
			if err != nil {
				return err
			}
			mu.Lock()
			totals[m] = agg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

// cached serves dest from Redis, collapsing concurrent misses for the same
// key into one load. Cache failures fall back to the loader.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("summary cache unavailable", slog.Any("error", err))
		key = strings.Join(parts, ":")
	}
	ch := s.group.DoChan(key, func() (any, error) {
		if err == nil {
			var (
				raw     json.RawMessage
				loadErr error
			)
			ferr := s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (any, error) {
				value, lerr := loader(ctx)
				loadErr = lerr
				return value, lerr
			})
			if ferr == nil {
				return []byte(raw), nil
			}
			if loadErr != nil {
				return nil, loadErr
			}
			s.logger.Warn("summary cache fetch failed", slog.String("key", key), slog.Any("error", ferr))
		}
		value, lerr := loader(ctx)
		if lerr != nil {
			return nil, lerr
		}
		return json.Marshal(value)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}
