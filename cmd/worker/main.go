package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mwanzo/sacco/internal/app"
	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
	"github.com/mwanzo/sacco/internal/observability"
	"github.com/mwanzo/sacco/internal/platform/cache"
	"github.com/mwanzo/sacco/internal/platform/db"
	"github.com/mwanzo/sacco/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	services, err := app.BuildServices(cfg, pool, redisClient, metrics, logger)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}

	scanJob := jobs.NewOverdueScanJob(services.Detector, logger, jobMetrics)
	warmupJob := jobs.NewSummaryWarmupJob(services.Summary, logger, jobMetrics)

	depositTask, err := jobs.NewOverdueScanTask(jobs.TaskOverdueDepositScan, jobs.OverdueScanPayload{})
	if err != nil {
		logger.Error("build deposit scan task", slog.Any("error", err))
		os.Exit(1)
	}
	loanTask, err := jobs.NewOverdueScanTask(jobs.TaskOverdueLoanScan, jobs.OverdueScanPayload{})
	if err != nil {
		logger.Error("build loan scan task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewSummaryWarmupTask(jobs.SummaryWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOverdueDepositScan, Handler: scanJob.Handle},
			{Type: jobs.TaskOverdueLoanScan, Handler: scanJob.Handle},
			{Type: jobs.TaskSummaryWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DepositScanCron, Task: depositTask},
			{Spec: cfg.LoanScanCron, Task: loanTask},
			{Spec: cfg.WarmupCron, Task: warmupTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
