package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/loans"
	"github.com/mwanzo/sacco/internal/members"
	"github.com/mwanzo/sacco/internal/observability"
	"github.com/mwanzo/sacco/internal/organization"
	"github.com/mwanzo/sacco/internal/overdue"
	"github.com/mwanzo/sacco/internal/payments"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/platform/httpx"
	"github.com/mwanzo/sacco/internal/summary"
	"github.com/mwanzo/sacco/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	PeriodsHandler      *periods.Handler
	MembersHandler      *members.Handler
	LoansHandler        *loans.Handler
	OverdueHandler      *overdue.Handler
	PaymentsHandler     *payments.Handler
	SummaryHandler      *summary.Handler
	OrganizationHandler *organization.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.PeriodsHandler != nil {
		r.Route("/periods", params.PeriodsHandler.MountRoutes)
	}
	if params.MembersHandler != nil {
		r.Route("/groups", params.MembersHandler.MountGroupRoutes)
		r.Route("/members", params.MembersHandler.MountMemberRoutes)
		r.Group(params.MembersHandler.MountEmploymentRoutes)
	}
	if params.LoansHandler != nil {
		r.Route("/loan-types", params.LoansHandler.MountLoanTypeRoutes)
		r.Route("/loans", params.LoansHandler.MountLoanRoutes)
	}
	if params.OverdueHandler != nil {
		r.Route("/overdues", params.OverdueHandler.MountRoutes)
	}
	if params.PaymentsHandler != nil {
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
	}
	if params.SummaryHandler != nil {
		r.Route("/summary", params.SummaryHandler.MountRoutes)
	}
	if params.OrganizationHandler != nil {
		r.Route("/branches", params.OrganizationHandler.MountBranchRoutes)
		r.Route("/events", params.OrganizationHandler.MountEventRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
