package members

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/periods"
	"github.com/mwanzo/sacco/internal/platform/httpx"
)

// Handler serves membership endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountGroupRoutes registers /groups routes.
func (h *Handler) MountGroupRoutes(r chi.Router) {
	r.Get("/", h.listGroups)
	r.Post("/", h.createGroup)
	r.Get("/{id}", h.getGroup)
	r.Post("/{id}/toggle", h.toggleGroup)
	r.Get("/{id}/members", h.groupMembers)
}

// MountMemberRoutes registers /members routes.
func (h *Handler) MountMemberRoutes(r chi.Router) {
	r.Get("/", h.listMembers)
	r.Post("/", h.createMember)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getMember)
		r.Post("/toggle", h.toggleMember)
		r.Get("/statement", h.statement)
		r.Get("/deposits", h.deposits)
		r.Post("/deposits", h.recordDeposit)
		r.Get("/registration-fees", h.fees)
		r.Post("/registration-fees", h.recordFee)
		r.Get("/employments", h.employments)
		r.Post("/employments", h.recordEmployment)
	})
}

// MountEmploymentRoutes registers /employers and /occupations routes.
func (h *Handler) MountEmploymentRoutes(r chi.Router) {
	r.Get("/employers", h.listEmployers)
	r.Post("/employers", h.createEmployer)
	r.Get("/occupations", h.listOccupations)
	r.Post("/occupations", h.createOccupation)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListGroups(r.Context())
	respondList(h, w, "list groups", items, err)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var input GroupInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.RegisterGroup(r.Context(), input)
	if err != nil {
		h.fail(w, "create group", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	g, err := h.service.GetGroup(r.Context(), id)
	if err != nil {
		h.fail(w, "get group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) toggleGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	g, updated, err := h.service.ToggleGroupStatus(r.Context(), id)
	if err != nil {
		h.fail(w, "toggle group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"group": g, "members_updated": updated})
}

func (h *Handler) groupMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	filter := listFilter(r)
	filter.GroupID = id
	items, total, err := h.service.ListMembers(r.Context(), filter)
	if err != nil {
		h.fail(w, "group members", err)
		return
	}
	if items == nil {
		items = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.service.ListMembers(r.Context(), listFilter(r))
	if err != nil {
		h.fail(w, "list members", err)
		return
	}
	if items == nil {
		items = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var input MemberInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.RegisterMember(r.Context(), input)
	if err != nil {
		h.fail(w, "create member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		h.fail(w, "get member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) toggleMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	m, err := h.service.ToggleMemberStatus(r.Context(), id)
	if err != nil {
		h.fail(w, "toggle member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	st, err := h.service.Statement(r.Context(), id)
	if err != nil {
		h.fail(w, "member statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) deposits(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	items, err := h.service.Deposits(r.Context(), id)
	respondList(h, w, "list deposits", items, err)
}

func (h *Handler) recordDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input AmountInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	dep, err := h.service.RecordDeposit(r.Context(), id, input)
	if err != nil {
		h.fail(w, "record deposit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dep)
}

func (h *Handler) fees(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	items, err := h.service.RegistrationFees(r.Context(), id)
	respondList(h, w, "list registration fees", items, err)
}

func (h *Handler) recordFee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input AmountInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	fee, err := h.service.RecordRegistrationFee(r.Context(), id, input)
	if err != nil {
		h.fail(w, "record registration fee", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, fee)
}

func (h *Handler) employments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	items, err := h.service.Employments(r.Context(), id)
	respondList(h, w, "list employments", items, err)
}

func (h *Handler) recordEmployment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input EmploymentInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.RecordEmployment(r.Context(), id, input)
	if err != nil {
		h.fail(w, "record employment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) listEmployers(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Employers(r.Context())
	respondList(h, w, "list employers", items, err)
}

func (h *Handler) createEmployer(w http.ResponseWriter, r *http.Request) {
	var input EmployerInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.RegisterEmployer(r.Context(), input)
	if err != nil {
		h.fail(w, "create employer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) listOccupations(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Occupations(r.Context())
	respondList(h, w, "list occupations", items, err)
}

func (h *Handler) createOccupation(w http.ResponseWriter, r *http.Request) {
	var input OccupationInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.RegisterOccupation(r.Context(), input)
	if err != nil {
		h.fail(w, "create occupation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var (
		feeErr   *FeeLimitError
		parseErr *periods.ParseError
	)
	switch {
	case errors.Is(err, ErrGroupNotFound):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateMember), errors.Is(err, ErrDuplicateName):
		err = fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	case errors.Is(err, ErrMemberInactive), errors.Is(err, ErrEmploymentTarget):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.As(err, &feeErr), errors.As(err, &parseErr),
		errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrInvalidAmount):
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func respondList[T any](h *Handler, w http.ResponseWriter, op string, items []T, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func listFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("q")}
	if v, err := strconv.ParseInt(q.Get("group_id"), 10, 64); err == nil {
		filter.GroupID = v
	}
	switch Status(q.Get("status")) {
	case StatusActivated, StatusDeactivated:
		filter.Status = Status(q.Get("status"))
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}
	return filter
}
