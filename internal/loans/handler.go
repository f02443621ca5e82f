package loans

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/platform/httpx"
)

// Handler serves loan type and loan endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountLoanTypeRoutes registers /loan-types routes.
func (h *Handler) MountLoanTypeRoutes(r chi.Router) {
	r.Get("/", h.listTypes)
	r.Post("/", h.createType)
	r.Put("/{id}", h.updateType)
}

// MountLoanRoutes registers /loans routes.
func (h *Handler) MountLoanRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.issue)
	r.Get("/{id}", h.profile)
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListLoanTypes(r.Context())
	if err != nil {
		h.fail(w, "list loan types", err)
		return
	}
	if items == nil {
		items = []LoanType{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	var input LoanTypeInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lt, err := h.service.CreateLoanType(r.Context(), input)
	if err != nil {
		h.fail(w, "create loan type", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lt)
}

func (h *Handler) updateType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input LoanTypeInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lt, err := h.service.UpdateLoanType(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update loan type", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lt)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var input IssueInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	loan, err := h.service.Issue(r.Context(), input)
	if err != nil {
		h.fail(w, "issue loan", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, loan)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.Profile(r.Context(), id)
	if err != nil {
		h.fail(w, "loan profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Limit: 50}
	if raw := q.Get("member_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: member_id", httpx.ErrValidation))
			return
		}
		filter.MemberID = id
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ledger.ParseStatus(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		filter.Status = status
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list loans", err)
		return
	}
	if items == nil {
		items = []Loan{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, ErrLoanTypeNotFound):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateLoanType), errors.Is(err, ErrPendingLoan):
		err = fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	case errors.Is(err, ErrInvalidTerms), errors.Is(err, ErrMemberInactive):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	default:
		var limit *LimitError
		if !errors.As(err, &limit) && !errors.Is(err, ledger.ErrNotFound) && !errors.Is(err, ledger.ErrInvalidAmount) {
			h.logger.Error(op, slog.Any("error", err))
		}
	}
	httpx.RespondError(w, err)
}
