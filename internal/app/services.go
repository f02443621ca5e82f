package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/loans"
	"github.com/mwanzo/sacco/internal/members"
	"github.com/mwanzo/sacco/internal/observability"
	"github.com/mwanzo/sacco/internal/organization"
	"github.com/mwanzo/sacco/internal/overdue"
	"github.com/mwanzo/sacco/internal/payments"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/shared"
	"github.com/mwanzo/sacco/internal/summary"
)

// Services holds the domain services shared by the server, worker and CLI.
type Services struct {
	Periods      *periods.Service
	Members      *members.Service
	Loans        *loans.Service
	Detector     *overdue.Detector
	Payments     *payments.Service
	Summary      *summary.Service
	SummaryCache *summary.Cache
	Organization *organization.Service
}

// BuildServices wires repositories, caches and services against the given
// pool and Redis client.
func BuildServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) (*Services, error) {
	anchor, err := cfg.WindowAnchor()
	if err != nil {
		return nil, err
	}
	clock := ledger.Clock(ledger.SystemClock)

	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)
	summaryCache := summary.NewCache(redisClient, cfg.SummaryCacheTTL)

	return &Services{
		Periods: periods.NewService(periods.NewRepository(pool)),
		Members: members.NewService(members.NewRepository(pool), auditLogger, summaryCache, members.ServiceConfig{
			RegistrationFeeCap: cfg.RegistrationFeeCap(),
			Clock:              clock,
		}),
		Loans: loans.NewService(loans.NewRepository(pool), auditLogger, clock),
		Detector: overdue.NewDetector(overdue.NewRepository(pool), summaryCache, metrics, logger, overdue.Config{
			Threshold:       cfg.Threshold(),
			LoanOverdueRate: cfg.LoanPenaltyRate(),
			Clock:           clock,
		}),
		Payments: payments.NewService(payments.NewRepository(pool), payments.Dependencies{
			Audit:       auditLogger,
			Idempotency: idempotency,
			Cache:       summaryCache,
			Recorder:    metrics,
			Logger:      logger,
			Clock:       clock,
		}),
		Summary: summary.NewService(summary.NewRepository(pool), summaryCache, summary.Config{
			Anchor:        anchor,
			DividendRatio: cfg.Dividend(),
			FirstYear:     cfg.ReportingFirstYear(clock()),
			Clock:         clock,
		}, logger),
		SummaryCache: summaryCache,
		Organization: organization.NewService(organization.NewRepository(pool), clock),
	}, nil
}
