package deposit

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shipgrid/backend-import/internal/catalog"
	"github.com/shipgrid/backend-import/internal/common"
)

// Handler exposes the deposit checkout endpoint.
type Handler struct {
	Svc *Service
}

// Routes mounts POST /cars/{id}/deposit behind the supplied middleware.
func (h *Handler) Routes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.With(middlewares...).Post("/cars/{id}/deposit", h.Create)
}

// Create handles POST /api/v1/cars/{id}/deposit.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "DEPOSIT_NOT_CONFIGURED", "deposit checkout unavailable", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "vehicle id is required", nil)
		return
	}
	checkout, err := h.Svc.Create(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": checkout})
}

func writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, catalog.ErrVehicleNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "vehicle not found", nil)
	case errors.Is(err, catalog.ErrUpstreamFetch):
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstreamUnavailable, "vehicle catalog unavailable", nil)
	case errors.Is(err, ErrProviderRejected), errors.Is(err, ErrProviderUnavailable):
		common.JSONError(w, http.StatusBadGateway, "CHECKOUT_FAILED", "could not open checkout session", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		common.JSONError(w, http.StatusGatewayTimeout, "CHECKOUT_TIMEOUT", "checkout provider timed out", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
