package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ChargeKind tags how a charge contributes to the landed price.
type ChargeKind string

const (
	// KindFlat is a fixed CAD amount.
	KindFlat ChargeKind = "flat"
	// KindPercentage is a rate applied to the base price.
	KindPercentage ChargeKind = "percentage"
	// KindText is a line without a fixed amount, e.g. "Contact us".
	KindText ChargeKind = "text"
)

// percentageThreshold splits numeric configuration values: below it is a rate, at or above it is flat.
var percentageThreshold = decimal.NewFromInt(1)

// ChargeAmount is the resolved meaning of a configured charge value.
type ChargeAmount struct {
	Kind  ChargeKind
	Value decimal.Decimal
	Text  string
}

// Flat returns a fixed amount.
func Flat(amount decimal.Decimal) ChargeAmount {
	return ChargeAmount{Kind: KindFlat, Value: amount}
}

// Percentage returns a rate applied to the base price. A rate of 0.07 means 7%.
func Percentage(rate decimal.Decimal) ChargeAmount {
	return ChargeAmount{Kind: KindPercentage, Value: rate}
}

// Text returns a non-numeric line.
func Text(text string) ChargeAmount {
	return ChargeAmount{Kind: KindText, Text: text}
}

// ClassifyChargeValue is the single place where a bare numeric configuration value
// becomes a rate or a flat amount. Values below 1 are rates, 1 and above are flat.
// A flat charge below $1 cannot be expressed, and 0 reads as a 0% rate.
func ClassifyChargeValue(v decimal.Decimal) ChargeAmount {
	if v.LessThan(percentageThreshold) {
		return Percentage(v)
	}
	return Flat(v)
}

// Numeric reports whether the amount takes part in the total.
func (a ChargeAmount) Numeric() bool {
	return a.Kind == KindFlat || a.Kind == KindPercentage
}

// Contribution resolves the amount against the base price. Percentages always use
// the original base price, never a running subtotal. Text amounts contribute zero.
func (a ChargeAmount) Contribution(base Money) Money {
	switch a.Kind {
	case KindPercentage:
		return base.Mul(a.Value)
	case KindFlat:
		return a.Value
	default:
		return decimal.Zero
	}
}

// Charge is one named entry in a province's charge list.
type Charge struct {
	Label  string
	Amount ChargeAmount
}

// NewCharge builds a charge from a numeric configuration value.
func NewCharge(label string, value decimal.Decimal) Charge {
	return Charge{Label: label, Amount: ClassifyChargeValue(value)}
}

// NewTextCharge builds a charge whose value is displayed literally.
func NewTextCharge(label, text string) Charge {
	return Charge{Label: label, Amount: Text(text)}
}

type chargeJSON struct {
	Label string          `json:"label"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON decodes {"label": "...", "value": 0.05 | 2500 | "Contact us"}.
// Numbers are parsed from their JSON text so rates stay exact.
func (c *Charge) UnmarshalJSON(data []byte) error {
	var raw chargeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value := bytes.TrimSpace(raw.Value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return fmt.Errorf("%w: charge %q has no value", ErrInvalidCharge, raw.Label)
	}
	if value[0] == '"' {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return err
		}
		*c = NewTextCharge(raw.Label, text)
		return nil
	}
	amount, err := decimal.NewFromString(string(value))
	if err != nil {
		return fmt.Errorf("%w: charge %q value %s: %v", ErrInvalidCharge, raw.Label, value, err)
	}
	*c = NewCharge(raw.Label, amount)
	return nil
}

// MarshalJSON writes the configuration shape back out.
func (c Charge) MarshalJSON() ([]byte, error) {
	var value json.RawMessage
	if c.Amount.Kind == KindText {
		encoded, err := json.Marshal(c.Amount.Text)
		if err != nil {
			return nil, err
		}
		value = encoded
	} else {
		value = json.RawMessage(c.Amount.Value.String())
	}
	return json.Marshal(chargeJSON{Label: c.Label, Value: value})
}

func (c Charge) validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("%w: charge label is required", ErrInvalidCharge)
	}
	if c.Amount.Numeric() && c.Amount.Value.IsNegative() {
		return fmt.Errorf("%w: charge %q has negative value %s", ErrInvalidCharge, c.Label, c.Amount.Value.String())
	}
	return nil
}
