package summary

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/platform/httpx"
)

// Handler serves report endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers /summary routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/comparison", h.comparison)
	r.Get("/{year}", h.report)
	r.Get("/{year}/months", h.months)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var month *int
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: month %q", httpx.ErrValidation, raw))
			return
		}
		month = &m
	}
	report, err := h.service.SummarizePeriod(r.Context(), year, month)
	if err != nil {
		h.fail(w, "summarize", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) months(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.MonthlyRecords(r.Context(), year)
	if err != nil {
		h.fail(w, "monthly records", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) comparison(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Compare(r.Context())
	if err != nil {
		h.fail(w, "year comparison", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if _, ok := err.(*WindowError); !ok {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func yearParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: year %q", httpx.ErrValidation, raw)
	}
	return year, nil
}
