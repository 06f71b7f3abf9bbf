package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// Filter bounds used by the storefront sliders when a query leaves them out.
var (
	DefaultMinPrice   = decimal.NewFromInt(16990)
	DefaultMaxPrice   = decimal.NewFromInt(1997000)
	DefaultMinYear    = 1990
	DefaultMaxMileage = 300000
)

// Filter narrows the vehicle list. Zero values mean "no constraint".
type Filter struct {
	Make       string
	Model      string
	Trim       string
	FuelType   string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinYear    *int
	MaxYear    *int
	MinMileage *int
	MaxMileage *int
	Province   pricing.Province
	Page       int
	Limit      int
}

// ParseFilter reads filter values from a query string. Malformed numbers are
// rejected with INVALID_INPUT rather than ignored.
func ParseFilter(values url.Values, defaultProvince pricing.Province) (Filter, error) {
	f := Filter{
		Make:     strings.TrimSpace(values.Get("make")),
		Model:    strings.TrimSpace(values.Get("model")),
		Trim:     strings.TrimSpace(values.Get("trim")),
		FuelType: strings.TrimSpace(values.Get("fuelType")),
		Province: defaultProvince,
		Page:     1,
		Limit:    20,
	}
	var err error
	if f.MinPrice, err = parseMoney(values, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parseMoney(values, "maxPrice"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, badRequest("minPrice", "minPrice cannot be greater than maxPrice", nil)
	}
	for _, field := range []struct {
		name string
		dst  **int
	}{
		{"minYear", &f.MinYear},
		{"maxYear", &f.MaxYear},
		{"minMileage", &f.MinMileage},
		{"maxMileage", &f.MaxMileage},
	} {
		if *field.dst, err = parseInt(values, field.name); err != nil {
			return f, err
		}
	}
	if v := strings.TrimSpace(values.Get("province")); v != "" {
		p, err := pricing.ParseProvince(v)
		if err != nil {
			return f, badRequest("province", "province must be a Canadian province or territory code", err)
		}
		f.Province = p
	}
	if page, err := parseInt(values, "page"); err != nil {
		return f, err
	} else if page != nil {
		if *page < 1 {
			return f, badRequest("page", "page must be a positive integer", nil)
		}
		f.Page = *page
	}
	if limit, err := parseInt(values, "limit"); err != nil {
		return f, err
	} else if limit != nil {
		if *limit < 1 {
			return f, badRequest("limit", "limit must be a positive integer", nil)
		}
		f.Limit = min(*limit, 100)
	}
	return f, nil
}

// Match reports whether v satisfies every constraint in f. Text filters are
// case-insensitive substring matches; fuel type must match exactly.
func (f Filter) Match(v Vehicle) bool {
	if !containsFold(v.Make, f.Make) || !containsFold(v.Model, f.Model) || !containsFold(v.Trim, f.Trim) {
		return false
	}
	if f.FuelType != "" && !strings.EqualFold(v.FuelType, f.FuelType) {
		return false
	}
	price := v.BasePrice()
	if f.MinPrice != nil && price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.MinYear != nil && v.Year < *f.MinYear {
		return false
	}
	if f.MaxYear != nil && v.Year > *f.MaxYear {
		return false
	}
	if f.MinMileage != nil && v.Mileage < *f.MinMileage {
		return false
	}
	if f.MaxMileage != nil && v.Mileage > *f.MaxMileage {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func parseMoney(values url.Values, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, badRequest(name, fmt.Sprintf("%s must be a non-negative number", name), err)
	}
	return &d, nil
}

func parseInt(values url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, badRequest(name, fmt.Sprintf("%s must be an integer", name), err)
	}
	return &n, nil
}

func badRequest(field, message string, err error) *common.AppError {
	appErr := common.BadRequest(message, err)
	appErr.Details = map[string]any{"field": field}
	return appErr
}
