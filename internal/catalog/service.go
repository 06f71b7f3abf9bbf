package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/contact"
	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// Service assembles listing and detail payloads from the catalog and the pricing engine.
type Service struct {
	source          Source
	calc            *pricing.Calculator
	contacts        contact.Builder
	defaultProvince pricing.Province
	logger          zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source          Source
	Calculator      *pricing.Calculator
	Contacts        contact.Builder
	DefaultProvince pricing.Province
	Logger          zerolog.Logger
}

// ListItem is a vehicle with its landed total for the requested province.
// LandedTotal is nil when the price cannot be computed.
type ListItem struct {
	Vehicle
	Province      pricing.Province `json:"province"`
	LandedTotal   *pricing.Money   `json:"landedTotal"`
	LandedDisplay string           `json:"landedDisplay"`
}

// ListResult is one page of filtered vehicles.
type ListResult struct {
	Items      []ListItem
	Pagination common.Pagination
}

// Detail is the full vehicle page payload.
type Detail struct {
	Vehicle  Vehicle                    `json:"vehicle"`
	Province pricing.Province           `json:"province"`
	Landed   *pricing.Quote             `json:"landed"`
	Standard *pricing.StandardBreakdown `json:"standard"`
	Contact  contact.Links              `json:"contact"`
}

// Bounds describes the filter ranges and choices available to the storefront.
type Bounds struct {
	MinPrice   pricing.Money `json:"minPrice"`
	MaxPrice   pricing.Money `json:"maxPrice"`
	MinYear    int           `json:"minYear"`
	MaxYear    int           `json:"maxYear"`
	MaxMileage int           `json:"maxMileage"`
	Makes      []string      `json:"makes"`
	FuelTypes  []string      `json:"fuelTypes"`
}

const unavailableDisplay = "Price unavailable"

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	if cfg.Calculator == nil {
		return nil, errors.New("catalog: calculator is required")
	}
	province := cfg.DefaultProvince
	if !province.Valid() {
		province = pricing.BC
	}
	return &Service{
		source:          cfg.Source,
		calc:            cfg.Calculator,
		contacts:        cfg.Contacts,
		defaultProvince: province,
		logger:          cfg.Logger.With().Str("component", "catalog_service").Logger(),
	}, nil
}

// DefaultProvince is the province used when a request names none.
func (s *Service) DefaultProvince() pricing.Province {
	return s.defaultProvince
}

// List filters, sorts by base price ascending and paginates the catalog. A
// vehicle whose price cannot be computed is listed with a nil landed total.
func (s *Service) List(ctx context.Context, f Filter) (ListResult, error) {
	vehicles, err := s.source.ListVehicles(ctx)
	if err != nil {
		return ListResult{}, err
	}
	matched := make([]Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if f.Match(v) {
			matched = append(matched, v)
		}
	}
	sortByPrice(matched)

	province := f.Province
	if province == "" {
		province = s.defaultProvince
	}
	page := common.NewPagination(f.Page, f.Limit, len(matched))
	start, end := page.Bounds()
	items := make([]ListItem, 0, end-start)
	for _, v := range matched[start:end] {
		items = append(items, s.listItem(v, province))
	}
	return ListResult{Items: items, Pagination: page}, nil
}

// Recommended returns the upstream's featured vehicles priced for province.
func (s *Service) Recommended(ctx context.Context, province pricing.Province) ([]ListItem, error) {
	vehicles, err := s.source.RecommendedVehicles(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(vehicles))
	for _, v := range vehicles {
		items = append(items, s.listItem(v, province))
	}
	return items, nil
}

// Detail returns the vehicle with both breakdowns and contact links. A pricing
// failure leaves the affected breakdown nil instead of failing the page.
func (s *Service) Detail(ctx context.Context, id string, province pricing.Province) (Detail, error) {
	v, err := s.source.GetVehicle(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{
		Vehicle:  v,
		Province: province,
		Contact:  s.contacts.ForVehicle(v.Subject()),
	}
	if view, err := s.priceView(v, province); err == nil {
		d.Landed = &view
	} else {
		s.logger.Warn().Err(err).Str("car_id", v.CarID).Str("province", province.String()).Msg("landed_price_unavailable")
	}
	if v.Priced() {
		if std, err := pricing.ComputeStandardBreakdown(v.BasePrice(), province); err == nil {
			d.Standard = &std
		}
	}
	return d, nil
}

// Price returns the landed breakdown for one vehicle. Errors are returned as-is
// so the caller can distinguish missing configuration from a bad vehicle.
func (s *Service) Price(ctx context.Context, id string, province pricing.Province) (pricing.Quote, error) {
	v, err := s.source.GetVehicle(ctx, id)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.priceView(v, province)
}

// Bounds returns the filter ranges plus the makes and fuel types present in the catalog.
func (s *Service) Bounds(ctx context.Context, now time.Time) (Bounds, error) {
	vehicles, err := s.source.ListVehicles(ctx)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{
		MinPrice:   DefaultMinPrice,
		MaxPrice:   DefaultMaxPrice,
		MinYear:    DefaultMinYear,
		MaxYear:    now.Year() + 1,
		MaxMileage: DefaultMaxMileage,
		Makes:      distinct(vehicles, func(v Vehicle) string { return v.Make }),
		FuelTypes:  distinct(vehicles, func(v Vehicle) string { return v.FuelType }),
	}, nil
}

func (s *Service) listItem(v Vehicle, province pricing.Province) ListItem {
	item := ListItem{Vehicle: v, Province: province, LandedDisplay: unavailableDisplay}
	b, err := s.landed(v, province)
	if err != nil {
		return item
	}
	total := b.Total
	item.LandedTotal = &total
	item.LandedDisplay = b.TotalDisplay()
	return item
}

func (s *Service) priceView(v Vehicle, province pricing.Province) (pricing.Quote, error) {
	b, err := s.landed(v, province)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.NewQuote(b, province), nil
}

func (s *Service) landed(v Vehicle, province pricing.Province) (pricing.PriceBreakdown, error) {
	if !v.Priced() {
		obs.ObserveQuote("vehicle", province.String(), "unpriced")
		return pricing.PriceBreakdown{}, ErrVehicleUnpriced
	}
	b, err := s.calc.Landed(v.BasePrice(), province)
	if err != nil {
		obs.ObserveQuote("vehicle", province.String(), "error")
		return pricing.PriceBreakdown{}, err
	}
	obs.ObserveQuote("vehicle", province.String(), "success")
	return b, nil
}

// ErrVehicleUnpriced is returned when a vehicle carries no usable price.
var ErrVehicleUnpriced = errors.New("catalog: vehicle has no price")

func sortByPrice(vs []Vehicle) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].BasePrice().LessThan(vs[j].BasePrice())
	})
}

func distinct(vs []Vehicle, field func(Vehicle) string) []string {
	seen := make(map[string]struct{}, len(vs))
	out := make([]string, 0)
	for _, v := range vs {
		value := strings.TrimSpace(field(v))
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
