package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mwanzo/sacco/cmd/sacco/cli"
	"github.com/mwanzo/sacco/internal/app"
	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
	"github.com/mwanzo/sacco/internal/loans"
	"github.com/mwanzo/sacco/internal/members"
	"github.com/mwanzo/sacco/internal/observability"
	"github.com/mwanzo/sacco/internal/organization"
	"github.com/mwanzo/sacco/internal/overdue"
	"github.com/mwanzo/sacco/internal/payments"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/platform/cache"
	"github.com/mwanzo/sacco/internal/platform/db"
	"github.com/mwanzo/sacco/internal/summary"
	"github.com/mwanzo/sacco/jobs"
)

const usage = `usage:
  sacco                          run the HTTP API
  sacco jobs trigger <task>      enqueue overdue:deposit_scan, overdue:loan_scan or summary:warmup
  sacco jobs stats               print default queue statistics
  sacco summary [-month M] [-lang tag] <year>
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "serve" {
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	switch args[0] {
	case "jobs":
		err = runJobs(ctx, cfg, args[1:])
	case "summary":
		err = runSummary(ctx, cfg, logger, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobmetrics.NewMetrics(metrics.Registerer())

	services, err := app.BuildServices(cfg, pool, redisClient, metrics, logger)
	if err != nil {
		return err
	}
	if err := services.SummaryCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("summary cache invalidation listener", slog.Any("error", err))
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Metrics:             metrics,
		PeriodsHandler:      periods.NewHandler(services.Periods, logger),
		MembersHandler:      members.NewHandler(services.Members, logger),
		LoansHandler:        loans.NewHandler(services.Loans, logger),
		OverdueHandler:      overdue.NewHandler(services.Detector, logger),
		PaymentsHandler:     payments.NewHandler(services.Payments, logger),
		SummaryHandler:      summary.NewHandler(services.Summary, logger),
		OrganizationHandler: organization.NewHandler(services.Organization, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			return errors.New(usage)
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		return cli.PrintStats(os.Stdout, stats)
	default:
		return errors.New(usage)
	}
}

func runSummary(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	month := fs.Int("month", 0, "month of the year (1-12); zero reports the whole year")
	lang := fs.String("lang", "en", "BCP 47 tag used to format amounts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New(usage)
	}
	anchor, err := cfg.WindowAnchor()
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 4})
	if err != nil {
		return err
	}
	defer pool.Close()

	service := summary.NewService(summary.NewRepository(pool), nil, summary.Config{
		Anchor:        anchor,
		DividendRatio: cfg.Dividend(),
		FirstYear:     cfg.ReportingFirstYear(time.Now()),
	}, logger)
	return cli.PrintSummary(ctx, service, os.Stdout, cli.SummaryOptions{Year: fs.Arg(0), Month: *month, Lang: *lang})
}
