package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
	"github.com/mwanzo/sacco/internal/ledger"
)

var fixedNow = time.Date(2021, time.August, 3, 9, 0, 0, 0, time.UTC)

type stubDetector struct {
	depositAsOf []time.Time
	loanAsOf    []time.Time
	created     []ledger.ChargeID
	err         error
}

func (d *stubDetector) DetectDepositOverdues(_ context.Context, asOf time.Time) ([]ledger.ChargeID, error) {
	d.depositAsOf = append(d.depositAsOf, asOf)
	return d.created, d.err
}

func (d *stubDetector) DetectLoanOverdues(_ context.Context, asOf time.Time) ([]ledger.ChargeID, error) {
	d.loanAsOf = append(d.loanAsOf, asOf)
	return d.created, d.err
}

func (d *stubDetector) Now() time.Time { return fixedNow }

type stubWarmer struct {
	years []int
	err   error
}

func (w *stubWarmer) Warm(_ context.Context, year int) error {
	w.years = append(w.years, year)
	return w.err
}

func (w *stubWarmer) Now() time.Time { return fixedNow }

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (i stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return i.info, i.err }

func newMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestOverdueScanDispatchesByType(t *testing.T) {
	detector := &stubDetector{created: []ledger.ChargeID{1}}
	job := NewOverdueScanJob(detector, nil, newMetrics())
	ctx := context.Background()

	task, err := NewOverdueScanTask(TaskOverdueDepositScan, OverdueScanPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, []time.Time{fixedNow}, detector.depositAsOf)
	require.Empty(t, detector.loanAsOf)

	asOf := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	task, err = NewOverdueScanTask(TaskOverdueLoanScan, OverdueScanPayload{AsOf: asOf})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, []time.Time{asOf}, detector.loanAsOf)
}

func TestOverdueScanFailureIsTracked(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	detector := &stubDetector{err: errors.New("db down")}
	job := NewOverdueScanJob(detector, nil, metrics)

	task, err := NewOverdueScanTask(TaskOverdueDepositScan, OverdueScanPayload{})
	require.NoError(t, err)
	require.EqualError(t, job.Handle(context.Background(), task), "db down")

	families, err := registry.Gather()
	require.NoError(t, err)
	failures := 0.0
	for _, family := range families {
		if family.GetName() != "sacco_jobs_failures_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			failures += m.GetCounter().GetValue()
		}
	}
	require.Equal(t, 1.0, failures)
}

func TestOverdueScanRejectsBadPayload(t *testing.T) {
	job := NewOverdueScanJob(&stubDetector{}, nil, newMetrics())
	err := job.Handle(context.Background(), asynq.NewTask(TaskOverdueDepositScan, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask("overdue:unknown", nil))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSummaryWarmupYears(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewSummaryWarmupJob(warmer, nil, newMetrics())
	ctx := context.Background()

	task, err := NewSummaryWarmupTask(SummaryWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, []int{2021, 2020}, warmer.years)

	warmer.years = nil
	task, err = NewSummaryWarmupTask(SummaryWarmupPayload{Year: 2018})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, []int{2018}, warmer.years)

	warmer.years = nil
	warmer.err = errors.New("redis down")
	require.Error(t, job.Handle(ctx, task))
}

func TestNewTask(t *testing.T) {
	for _, name := range []string{TaskOverdueDepositScan, TaskOverdueLoanScan, TaskSummaryWarmup} {
		task, err := NewTask(name)
		require.NoError(t, err)
		require.Equal(t, name, task.Type())
	}
	_, err := NewTask("mail:send")
	require.Error(t, err)
	_, err = NewOverdueScanTask(TaskSummaryWarmup, OverdueScanPayload{})
	require.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var health QueueHealth
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
			require.Equal(t, QueueDefault, health.Queue)
			require.Equal(t, tc.pending, health.Pending)
		})
	}
}
