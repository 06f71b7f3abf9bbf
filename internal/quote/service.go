// Package quote exposes the landed-price calculator over HTTP.
package quote

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// ProvinceInfo describes one destination.
type ProvinceInfo struct {
	Code       pricing.Province `json:"code"`
	Label      string           `json:"label"`
	Configured bool             `json:"configured"`
}

// Service computes quotes and records their outcome.
type Service struct {
	calc   *pricing.Calculator
	logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(calc *pricing.Calculator, logger zerolog.Logger) (*Service, error) {
	if calc == nil {
		return nil, errors.New("quote: calculator is required")
	}
	return &Service{calc: calc, logger: logger.With().Str("component", "quote").Logger()}, nil
}

// Provinces lists every destination in display order.
func (s *Service) Provinces() []ProvinceInfo {
	all := pricing.Provinces()
	out := make([]ProvinceInfo, 0, len(all))
	for _, p := range all {
		out = append(out, ProvinceInfo{Code: p, Label: p.Label(), Configured: s.calc.Configured(p)})
	}
	return out
}

// Landed prices base for p using the configured charge table.
func (s *Service) Landed(ctx context.Context, base pricing.Money, p pricing.Province) (pricing.Quote, error) {
	ctx, span := otel.Tracer("quote").Start(ctx, "quote.landed")
	defer span.End()
	span.SetAttributes(attribute.String("province", p.String()))

	b, err := s.calc.Landed(base, p)
	if err != nil {
		s.fail(span, "landed", p, err)
		return pricing.Quote{}, err
	}
	s.succeed(ctx, "landed", p, b.Total)
	return pricing.NewQuote(b, p), nil
}

// Standard prices base for p using the fixed freight, duty and tax formula.
func (s *Service) Standard(ctx context.Context, base pricing.Money, p pricing.Province) (pricing.StandardBreakdown, error) {
	ctx, span := otel.Tracer("quote").Start(ctx, "quote.standard")
	defer span.End()
	span.SetAttributes(attribute.String("province", p.String()))

	b, err := pricing.ComputeStandardBreakdown(base, p)
	if err != nil {
		s.fail(span, "standard", p, err)
		return pricing.StandardBreakdown{}, err
	}
	s.succeed(ctx, "standard", p, b.Total)
	return b, nil
}

func (s *Service) fail(span trace.Span, kind string, p pricing.Province, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	result := "error"
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		result = "invalid_input"
	case errors.Is(err, pricing.ErrMissingProvinceConfig):
		result = "missing_config"
		s.logger.Error().Err(err).Str("province", p.String()).Msg("province_charges_missing")
	}
	obs.ObserveQuote(kind, p.String(), result)
}

func (s *Service) succeed(ctx context.Context, kind string, p pricing.Province, total pricing.Money) {
	obs.ObserveQuote(kind, p.String(), "success")
	obs.RecordQuoteAmount(ctx, kind, p.String(), total.InexactFloat64())
}
