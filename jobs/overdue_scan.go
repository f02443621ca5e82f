package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
	"github.com/mwanzo/sacco/internal/ledger"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Detector is the overdue detector surface the scan job drives.
type Detector interface {
	DetectDepositOverdues(ctx context.Context, asOf time.Time) ([]ledger.ChargeID, error)
	DetectLoanOverdues(ctx context.Context, asOf time.Time) ([]ledger.ChargeID, error)
	Now() time.Time
}

// OverdueScanJob runs the deposit and loan detectors on schedule.
type OverdueScanJob struct {
	Detector Detector
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewOverdueScanJob wires the detector into an Asynq handler.
func NewOverdueScanJob(detector Detector, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{Detector: detector, Logger: logger, Metrics: metrics}
}

// Handle dispatches on the task type.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Detector == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.Detector.Now()
	}

	var detect func(context.Context, time.Time) ([]ledger.ChargeID, error)
	switch t.Type() {
	case TaskOverdueDepositScan:
		detect = j.Detector.DetectDepositOverdues
	case TaskOverdueLoanScan:
		detect = j.Detector.DetectLoanOverdues
	default:
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(t.Type())
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("job", t.Type()), slog.Time("as_of", asOf))
	logger.Info("starting overdue scan")
	start := time.Now()

	created, err := detect(ctx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("overdue scan failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddItems(t.Type(), len(created))
	logger.Info("completed overdue scan", slog.Int("created", len(created)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
