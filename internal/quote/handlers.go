package quote

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// Handler exposes pricing endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler. A nil validator gets a default instance.
func NewHandler(service *Service, validate *validator.Validate) *Handler {
	if validate == nil {
		validate = common.NewValidator()
	}
	return &Handler{service: service, validate: validate}
}

// Request is the body of both quote endpoints.
type Request struct {
	BasePrice json.Number `json:"basePrice" validate:"required,numeric"`
	Province  string      `json:"province" validate:"required,len=2,alpha"`
}

// Routes mounts the quote endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/provinces", h.Provinces)
	r.Post("/quotes", h.Landed)
	r.Post("/quotes/standard", h.Standard)
}

// Provinces handles GET /api/v1/provinces.
func (h *Handler) Provinces(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Provinces()})
}

// Landed handles POST /api/v1/quotes.
func (h *Handler) Landed(w http.ResponseWriter, r *http.Request) {
	base, province, err := h.decode(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	q, err := h.service.Landed(r.Context(), base, province)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Standard handles POST /api/v1/quotes/standard.
func (h *Handler) Standard(w http.ResponseWriter, r *http.Request) {
	base, province, err := h.decode(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	b, err := h.service.Standard(r.Context(), base, province)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

func (h *Handler) decode(r *http.Request) (pricing.Money, pricing.Province, error) {
	var req Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return pricing.Money{}, "", common.BadRequest("invalid JSON body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return pricing.Money{}, "", validationError(err)
	}
	base, err := decimal.NewFromString(req.BasePrice.String())
	if err != nil {
		return pricing.Money{}, "", common.BadRequest("basePrice must be a number", err)
	}
	province, err := pricing.ParseProvince(req.Province)
	if err != nil {
		return pricing.Money{}, "", err
	}
	return base, province, nil
}

func validationError(err error) *common.AppError {
	appErr := common.BadRequest("request validation failed", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		appErr.Details = map[string]any{"fields": fields}
	}
	return appErr
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, err.Error(), nil)
	case errors.Is(err, pricing.ErrMissingProvinceConfig):
		common.JSONError(w, http.StatusInternalServerError, common.CodeMissingProvinceConfig, "no charges configured for province", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
