package deposit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shipgrid/backend-import/internal/catalog"
	"github.com/shipgrid/backend-import/internal/contact"
	"github.com/shipgrid/backend-import/internal/obs"
)

// ErrNotConfigured is returned when the service has no provider or catalog.
var ErrNotConfigured = errors.New("deposit: service not configured")

// Checkout is returned to the storefront after a session is opened.
type Checkout struct {
	Session
	CarID    string `json:"carId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Config wires a Service.
type Config struct {
	Provider   Provider
	Catalog    catalog.Source
	Contacts   contact.Builder
	AmountCAD  int64
	Currency   string
	SuccessURL string
	CancelURL  string
	Logger     zerolog.Logger
}

// Service opens refundable deposit checkouts for catalog vehicles.
type Service struct {
	cfg Config
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Provider == nil || cfg.Catalog == nil {
		return nil, ErrNotConfigured
	}
	if cfg.AmountCAD <= 0 {
		return nil, fmt.Errorf("deposit: amount must be positive, got %d", cfg.AmountCAD)
	}
	if cfg.Currency == "" {
		cfg.Currency = "cad"
	}
	return &Service{cfg: cfg}, nil
}

// Amount is the configured deposit in whole currency units.
func (s *Service) Amount() int64 { return s.cfg.AmountCAD }

// Create opens a checkout session for the deposit on vehicle id.
func (s *Service) Create(ctx context.Context, id string) (Checkout, error) {
	if s == nil {
		return Checkout{}, ErrNotConfigured
	}
	ctx, span := otel.Tracer("deposit.Service").Start(ctx, "DepositService.Create")
	defer span.End()

	start := time.Now()
	providerName := normaliseLabel(s.cfg.Provider.Name())
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("deposit.provider", providerName),
			attribute.String("deposit.result", result),
			attribute.Float64("deposit.duration_ms", obs.DurationMillis(time.Since(start))),
		)
		obs.ObserveDepositSession(providerName, result)
	}()

	id = strings.TrimSpace(id)
	span.SetAttributes(attribute.String("car.id", id))
	vehicle, err := s.cfg.Catalog.GetVehicle(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrVehicleNotFound) {
			result = "not_found"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "vehicle lookup failed")
		return Checkout{}, err
	}

	req := SessionRequest{
		ClientReferenceID: uuid.NewString(),
		Currency:          s.cfg.Currency,
		AmountCents:       s.cfg.AmountCAD * 100,
		Name:              LineItemName(vehicle),
		Description:       LineItemDescription(vehicle, s.cfg.Contacts.Settings()),
		Images:            firstPhoto(vehicle),
		SuccessURL:        s.cfg.SuccessURL,
		CancelURL:         s.cfg.CancelURL,
		Metadata:          map[string]string{"car_id": vehicle.CarID},
	}
	logger := obs.LoggerFrom(ctx, s.cfg.Logger)
	session, err := s.cfg.Provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		if errors.Is(err, ErrProviderRejected) {
			result = "rejected"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout session failed")
		logger.Error().Err(err).Str("car_id", vehicle.CarID).Str("provider", providerName).Msg("deposit_session_failed")
		return Checkout{}, err
	}
	result = "success"
	logger.Info().
		Str("car_id", vehicle.CarID).
		Str("provider", providerName).
		Str("session_id", session.ID).
		Str("reference", req.ClientReferenceID).
		Msg("deposit_session_created")
	return Checkout{
		Session:  session,
		CarID:    vehicle.CarID,
		Amount:   s.cfg.AmountCAD,
		Currency: s.cfg.Currency,
	}, nil
}

// LineItemName is the product name shown on the checkout page.
func LineItemName(v catalog.Vehicle) string {
	return fmt.Sprintf("Deposit (Refundable) - %d %s %s (Stock #%s)", v.Year, v.Make, v.Model, v.CarID)
}

// LineItemDescription explains the refundable deposit and how to reach the dealer.
func LineItemDescription(v catalog.Vehicle, c contact.Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fully refundable deposit for the %d %s %s (Stock #%s).", v.Year, v.Make, v.Model, v.CarID)
	b.WriteString("\n\nOnce paid, we'll contact you within 24 hours to begin the professional mechanic inspection.")
	if c.Email != "" || c.Phone != "" {
		b.WriteString("\n\nIf you have any questions, ")
		switch {
		case c.Email != "" && c.Phone != "":
			fmt.Fprintf(&b, "email %s or call/whatsapp %s at %s.", c.Email, contactName(c), c.Phone)
		case c.Email != "":
			fmt.Fprintf(&b, "email %s.", c.Email)
		default:
			fmt.Fprintf(&b, "call/whatsapp %s at %s.", contactName(c), c.Phone)
		}
	}
	return b.String()
}

func contactName(c contact.Settings) string {
	if c.ContactName == "" {
		return "us"
	}
	return c.ContactName
}

func firstPhoto(v catalog.Vehicle) []string {
	for _, p := range v.CarPhotos {
		if strings.TrimSpace(p.PhotoURL) != "" {
			return []string{p.PhotoURL}
		}
	}
	return nil
}

func normaliseLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
