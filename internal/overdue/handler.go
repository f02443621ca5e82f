package overdue

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/platform/httpx"
)

// Handler serves overdue detection endpoints.
type Handler struct {
	detector *Detector
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(detector *Detector, logger *slog.Logger) *Handler {
	return &Handler{detector: detector, logger: logger}
}

// MountRoutes registers /overdues routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/deposits", h.listDeposits)
	r.Post("/deposits/detect", h.detectDeposits)
	r.Get("/loans", h.listLoans)
	r.Post("/loans/detect", h.detectLoans)
}

func (h *Handler) detectDeposits(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	ids, err := h.detector.DetectDepositOverdues(r.Context(), asOf)
	if err != nil {
		h.fail(w, "detect deposit overdues", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result(ledger.KindDepositOverdue, asOf, ids))
}

func (h *Handler) detectLoans(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	ids, err := h.detector.DetectLoanOverdues(r.Context(), asOf)
	if err != nil {
		h.fail(w, "detect loan overdues", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result(ledger.KindLoanOverdue, asOf, ids))
}

func (h *Handler) listDeposits(w http.ResponseWriter, r *http.Request) {
	filter, err := chargeFilter(r, "member_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.detector.DepositCharges(r.Context(), filter)
	if err != nil {
		h.fail(w, "list deposit charges", err)
		return
	}
	if items == nil {
		items = []DepositCharge{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	filter, err := chargeFilter(r, "loan_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.detector.LoanCharges(r.Context(), filter)
	if err != nil {
		h.fail(w, "list loan charges", err)
		return
	}
	if items == nil {
		items = []LoanCharge{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	var input DetectInput
	if err := httpx.DecodeJSON(r, &input); err != nil && !errors.Is(err, io.EOF) {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return time.Time{}, false
	}
	if input.AsOf == nil {
		return h.detector.Now(), true
	}
	return input.AsOf.UTC(), true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var dup *ledger.DuplicateChargeError
	if !errors.As(err, &dup) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func result(kind ledger.ChargeKind, asOf time.Time, ids []ledger.ChargeID) Result {
	if ids == nil {
		ids = []ledger.ChargeID{}
	}
	return Result{Kind: kind, AsOf: asOf, Created: ids}
}

func chargeFilter(r *http.Request, owner string) (ChargeFilter, error) {
	q := r.URL.Query()
	var filter ChargeFilter
	if raw := q.Get(owner); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ChargeFilter{}, fmt.Errorf("%w: %s", httpx.ErrValidation, owner)
		}
		filter.OwnerID = id
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ledger.ParseStatus(raw)
		if err != nil {
			return ChargeFilter{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		filter.Status = status
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}
	return filter, nil
}
