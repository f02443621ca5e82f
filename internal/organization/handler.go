package organization

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/platform/httpx"
)

// Handler serves branch and event endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountBranchRoutes registers /branches routes.
func (h *Handler) MountBranchRoutes(r chi.Router) {
	r.Get("/", h.listBranches)
	r.Post("/", h.createBranch)
	r.Get("/{id}", h.getBranch)
	r.Put("/{id}", h.updateBranch)
	r.Delete("/{id}", h.deleteBranch)
}

// MountEventRoutes registers /events routes.
func (h *Handler) MountEventRoutes(r chi.Router) {
	r.Get("/", h.listEvents)
	r.Post("/", h.createEvent)
	r.Put("/{id}", h.updateEvent)
	r.Delete("/{id}", h.deleteEvent)
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListBranches(r.Context())
	if err != nil {
		h.fail(w, "list branches", err)
		return
	}
	if items == nil {
		items = []Branch{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	var input BranchInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.CreateBranch(r.Context(), input)
	if err != nil {
		h.fail(w, "create branch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) getBranch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.GetBranch(r.Context(), id)
	if err != nil {
		h.fail(w, "get branch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) updateBranch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input BranchInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.UpdateBranch(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update branch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteBranch(r.Context(), id); err != nil {
		h.fail(w, "delete branch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEvents(r.Context())
	if err != nil {
		h.fail(w, "list events", err)
		return
	}
	if items == nil {
		items = []Event{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var input EventInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.CreateEvent(r.Context(), input)
	if err != nil {
		h.fail(w, "create event", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input EventInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.UpdateEvent(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update event", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		h.fail(w, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBranchNotFound), errors.Is(err, ErrEventNotFound):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateEvent):
		err = fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
