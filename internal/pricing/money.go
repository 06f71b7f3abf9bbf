package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money represents an exact CAD amount. Rounding only happens at total and display boundaries.
type Money = decimal.Decimal

var (
	// ErrInvalidInput is returned when a base price is negative, non-finite, or missing.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrMissingProvinceConfig is returned when the charge table has no entry for a province label.
	ErrMissingProvinceConfig = errors.New("pricing: missing province config")
	// ErrInvalidCharge is returned when charge configuration carries an unusable value.
	ErrInvalidCharge = errors.New("pricing: invalid charge")
)

// MoneyFromFloat converts a caller supplied amount, rejecting NaN, infinities and negatives.
func MoneyFromFloat(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: amount must be a finite number", ErrInvalidInput)
	}
	if v < 0 {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return decimal.NewFromFloat(v), nil
}

// RoundCents rounds half-up to whole cents. Amounts are never negative, so
// decimal's half-away-from-zero rounding is half-up here.
func RoundCents(m Money) Money {
	return m.Round(2)
}

// FormatWhole renders an amount as whole dollars with thousands separators, e.g. "$84,000".
func FormatWhole(m Money) string {
	return "$" + humanize.Comma(m.Round(0).IntPart())
}

func validateBase(base Money) error {
	if base.IsNegative() {
		return fmt.Errorf("%w: base price %s is negative", ErrInvalidInput, base.String())
	}
	return nil
}
