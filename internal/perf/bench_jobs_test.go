package perf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/jobs"
)

type scanDetector struct {
	delay time.Duration
	calls int
	fail  map[int]bool
}

func (d *scanDetector) DetectDepositOverdues(ctx context.Context, asOf time.Time) ([]ledger.ChargeID, error) {
	d.calls++
	time.Sleep(d.delay)
	if d.fail[d.calls] {
		return nil, errors.New("timeout")
	}
	return []ledger.ChargeID{ledger.ChargeID(d.calls)}, nil
}

func (d *scanDetector) DetectLoanOverdues(ctx context.Context, asOf time.Time) ([]ledger.ChargeID, error) {
	return d.DetectDepositOverdues(ctx, asOf)
}

func (d *scanDetector) Now() time.Time { return time.Date(2021, time.August, 1, 0, 0, 0, 0, time.UTC) }

func TestOverdueScanThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	detector := &scanDetector{delay: 5 * time.Millisecond, fail: map[int]bool{7: true, 21: true}}
	job := jobs.NewOverdueScanJob(detector, nil, metrics)

	task, err := jobs.NewOverdueScanTask(jobs.TaskOverdueDepositScan, jobs.OverdueScanPayload{})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	failures := 0
	for i := 0; i < 40; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			failures++
		}
	}
	if failures != 2 {
		t.Fatalf("expected 2 failed runs, got %d", failures)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	scope := map[string]string{"job": jobs.TaskOverdueDepositScan}
	success := metricValue(t, families, "sacco_jobs_total", map[string]string{"job": jobs.TaskOverdueDepositScan, "status": "success"})
	failure := metricValue(t, families, "sacco_jobs_total", map[string]string{"job": jobs.TaskOverdueDepositScan, "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("scan success ratio too low: %f", ratio)
	}
	if items := metricValue(t, families, "sacco_job_items_total", scope); items != success {
		t.Fatalf("expected one charge per successful run, got %f for %f runs", items, success)
	}
	if mean := histogramMean(t, families, "sacco_job_duration_seconds", scope); mean > 0.5 {
		t.Fatalf("scan duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; !ok || lp.GetValue() != val {
			return false
		}
	}
	return true
}
