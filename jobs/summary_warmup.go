package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
)

// Warmer precomputes cached summary reports.
type Warmer interface {
	Warm(ctx context.Context, year int) error
	Now() time.Time
}

// SummaryWarmupJob keeps the summary cache populated after invalidations.
type SummaryWarmupJob struct {
	Summary Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSummaryWarmupJob wires the summary service into an Asynq handler.
func NewSummaryWarmupJob(summary Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryWarmupJob {
	return &SummaryWarmupJob{Summary: summary, Logger: logger, Metrics: metrics}
}

// Handle warms the requested year, or the current and previous year.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Summary == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	years := []int{payload.Year}
	if payload.Year == 0 {
		current := j.Summary.Now().Year()
		years = []int{current, current - 1}
	}

	tracker := j.metrics().Track(TaskSummaryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	for _, year := range years {
		// Each year gets its own deadline.
		yearCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := j.Summary.Warm(yearCtx, year)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm summary", slog.Int("year", year), slog.Any("error", err))
			return resultErr
		}
	}
	j.metrics().AddItems(TaskSummaryWarmup, len(years))
	logger.Info("completed summary warmup", slog.Any("years", years))
	return resultErr
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSummaryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSummaryWarmup))
}

func (j *SummaryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
