package payments

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mwanzo/sacco/internal/ledger"
	"github.com/mwanzo/sacco/internal/platform/httpx"
	"github.com/mwanzo/sacco/internal/shared"
)

// IdempotencyHeader carries the client supplied replay key.
const IdempotencyHeader = "Idempotency-Key"

// Handler serves payment endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers /payments routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/deposit-overdues/{id}", h.apply(ledger.KindDepositOverdue))
	r.Get("/deposit-overdues/{id}", h.history(ledger.KindDepositOverdue))
	r.Post("/loan-overdues/{id}", h.apply(ledger.KindLoanOverdue))
	r.Get("/loan-overdues/{id}", h.history(ledger.KindLoanOverdue))
	r.Post("/installments/{id}", h.apply(ledger.KindInstallment))
	r.Get("/installments/{id}", h.history(ledger.KindInstallment))
}

func (h *Handler) apply(kind ledger.ChargeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var input PaymentInput
		if err := httpx.Bind(r, &input); err != nil {
			httpx.RespondError(w, err)
			return
		}
		settlement, err := h.service.Apply(r.Context(), Request{
			Kind:   kind,
			ID:     id,
			Amount: input.Amount,
			Key:    strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
		})
		if err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				err = fmt.Errorf("%w: %v", httpx.ErrConflict, err)
			}
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, settlement)
	}
}

func (h *Handler) history(kind ledger.ChargeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		items, err := h.service.History(r.Context(), kind, id)
		if err != nil {
			h.logger.Error("payment history", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if items == nil {
			items = []Payment{}
		}
		httpx.JSON(w, http.StatusOK, items)
	}
}
