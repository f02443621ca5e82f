package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/mwanzo/sacco/internal/jobs"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("overdue:deposit_scan").End(nil)
	metrics.AddCharges("deposit_overdue", 2)
	metrics.AddCharges("loan_overdue", 0)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `sacco_jobs_total{job="overdue:deposit_scan",status="success"} 1`) {
		t.Fatalf("expected body to contain sacco_jobs_total, got: %s", body)
	}
	if !strings.Contains(body, `sacco_ledger_charges_total{kind="deposit_overdue"} 2`) {
		t.Fatalf("expected charge counter, got: %s", body)
	}
	if strings.Contains(body, `kind="loan_overdue"`) {
		t.Fatalf("zero-count runs must not create series, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestMetricsAddPayment(t *testing.T) {
	metrics := NewMetrics()
	metrics.AddPayment("installment", "pending")
	metrics.AddPayment("installment", "paid")
	metrics.AddPayment("installment", "paid")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if !strings.Contains(body, `sacco_ledger_payments_total{kind="installment",status="paid"} 2`) {
		t.Fatalf("expected paid counter, got: %s", body)
	}
	if !strings.Contains(body, `sacco_ledger_payments_total{kind="installment",status="pending"} 1`) {
		t.Fatalf("expected pending counter, got: %s", body)
	}
}
