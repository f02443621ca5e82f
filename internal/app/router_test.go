package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mwanzo/sacco/internal/observability"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/jobs"
)

type memoryPeriods struct {
	mu    sync.Mutex
	items []periods.Period
}

func (m *memoryPeriods) FindByLabel(_ context.Context, label string) (periods.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.Label == label {
			return p, nil
		}
	}
	return periods.Period{}, periods.ErrPeriodNotFound
}

func (m *memoryPeriods) Insert(_ context.Context, p periods.Period) (periods.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = int64(len(m.items) + 1)
	m.items = append(m.items, p)
	return p, nil
}

func (m *memoryPeriods) List(context.Context) ([]periods.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]periods.Period(nil), m.items...), nil
}

func newTestRouter(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	cfg := &Config{AppEnv: "test", RateLimit: 1000}
	router := NewRouter(RouterParams{
		Config:         cfg,
		Metrics:        metrics,
		PeriodsHandler: periods.NewHandler(periods.NewService(&memoryPeriods{}), slog.New(slog.NewTextHandler(io.Discard, nil))),
		JobHandler:     jobs.NewHandler(nil, nil),
	})
	return router, metrics
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rr.Header().Get("X-Ratelimit-Limit"))
}

func TestRouterMountsPeriodsAndRecordsMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/periods", strings.NewReader(`{"label":"july 2021"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var period periods.Period
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&period))
	require.Equal(t, "July 2021", period.Label)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `sacco_http_requests_total{code="200",route="/periods`)
}

func TestRouterUnmountedModules(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/members", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
