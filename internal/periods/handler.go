package periods

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/platform/httpx"
)

// Handler serves the period calendar endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.ensure)
	r.Get("/numeral", h.numeral)
}

type ensureRequest struct {
	Label string `json:"label" validate:"required"`
}

func (h *Handler) ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.service.EnsurePeriod(r.Context(), req.Label)
	if err != nil {
		h.logger.Warn("ensure period", slog.String("label", req.Label), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Period{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) numeral(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	n, err := NumeralOf(label)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"label": label, "numeral": n})
}
