package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
	now     func() time.Time
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	Now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{service: cfg.Service, now: now}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cars", h.List)
	r.Get("/cars/recommended", h.Recommended)
	r.Get("/cars/filters", h.Filters)
	r.Get("/cars/{id}", h.Detail)
	r.Get("/cars/{id}/price", h.Price)
}

// List handles GET /api/v1/cars.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	filter, err := ParseFilter(r.URL.Query(), h.service.DefaultProvince())
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Pagination.TotalItems))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": result.Pagination,
	})
}

// Recommended handles GET /api/v1/cars/recommended.
func (h *Handler) Recommended(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	province, err := h.province(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items, err := h.service.Recommended(r.Context(), province)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Filters handles GET /api/v1/cars/filters.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	bounds, err := h.service.Bounds(r.Context(), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": bounds})
}

// Detail handles GET /api/v1/cars/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	province, err := h.province(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"), province)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Price handles GET /api/v1/cars/{id}/price.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	province, err := h.province(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.service.Price(r.Context(), chi.URLParam(r, "id"), province)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) province(r *http.Request) (pricing.Province, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("province"))
	if raw == "" {
		return h.service.DefaultProvince(), nil
	}
	p, err := pricing.ParseProvince(raw)
	if err != nil {
		return "", badRequest("province", "province must be a Canadian province or territory code", err)
	}
	return p, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrVehicleNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "vehicle not found", nil)
	case errors.Is(err, ErrUpstreamFetch):
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstreamUnavailable, "vehicle catalog unavailable", nil)
	case errors.Is(err, ErrVehicleUnpriced):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRICE_UNAVAILABLE", "vehicle has no listed price", nil)
	case errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, err.Error(), nil)
	case errors.Is(err, pricing.ErrMissingProvinceConfig):
		common.JSONError(w, http.StatusInternalServerError, common.CodeMissingProvinceConfig, "no charges configured for province", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
