package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one displayed row of a landed-price breakdown.
type LineItem struct {
	Label  string          `json:"label"`
	Kind   ChargeKind      `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Text   string          `json:"text,omitempty"`
	IsFree bool            `json:"isFree"`
}

// Display renders the amount column: FREE when the amount is under half a
// dollar, the literal text for text lines, whole dollars otherwise.
func (l LineItem) Display() string {
	if l.Kind == KindText {
		return l.Text
	}
	if l.IsFree {
		return "FREE"
	}
	return FormatWhole(l.Amount)
}

// PriceBreakdown is the itemised landed price for one base price and charge list.
type PriceBreakdown struct {
	BasePrice Money      `json:"basePrice"`
	LineItems []LineItem `json:"lineItems"`
	Total     Money      `json:"total"`

	// sum is the unrounded total the whole-dollar display is taken from.
	sum Money
}

// TotalDisplay renders the total the way the storefront shows it, e.g. "$84,000 CAD".
// It rounds the unrounded sum to dollars, not the cent-rounded Total.
func (b PriceBreakdown) TotalDisplay() string {
	sum := b.sum
	if sum.IsZero() {
		sum = b.Total
	}
	return FormatWhole(sum) + " CAD"
}

// ComputeBreakdown applies charges in order to base. Line amounts are left
// unrounded; the total is the base plus every numeric contribution, rounded
// half-up to cents once at the end.
func ComputeBreakdown(base Money, charges []Charge) (PriceBreakdown, error) {
	if err := validateBase(base); err != nil {
		return PriceBreakdown{}, err
	}
	lines := make([]LineItem, 0, len(charges))
	sum := base
	for _, c := range charges {
		line := LineItem{Label: c.Label, Kind: c.Amount.Kind}
		if !c.Amount.Numeric() {
			line.Text = c.Amount.Text
			lines = append(lines, line)
			continue
		}
		contribution := c.Amount.Contribution(base)
		line.Amount = contribution
		line.IsFree = contribution.Round(0).IsZero()
		sum = sum.Add(contribution)
		lines = append(lines, line)
	}
	return PriceBreakdown{
		BasePrice: base,
		LineItems: lines,
		Total:     RoundCents(sum),
		sum:       sum,
	}, nil
}

// Calculator resolves a province's charges from the injected table holder.
type Calculator struct {
	tables *TableHolder
}

// NewCalculator constructs a Calculator reading from tables.
func NewCalculator(tables *TableHolder) *Calculator {
	return &Calculator{tables: tables}
}

// Landed computes the configurable breakdown for base delivered to p.
func (c *Calculator) Landed(base Money, p Province) (PriceBreakdown, error) {
	if !p.Valid() {
		return PriceBreakdown{}, fmt.Errorf("%w: unknown province %q", ErrInvalidInput, p)
	}
	var table *ChargeTable
	if c != nil {
		table = c.tables.Load()
	}
	charges, err := table.Get(p.Label())
	if err != nil {
		return PriceBreakdown{}, err
	}
	return ComputeBreakdown(base, charges)
}

// Configured reports whether the active table carries charges for p.
func (c *Calculator) Configured(p Province) bool {
	if c == nil || !p.Valid() {
		return false
	}
	_, err := c.tables.Load().Get(p.Label())
	return err == nil
}

// DisplayLine is a breakdown row as rendered on the storefront.
type DisplayLine struct {
	Label   string `json:"label"`
	Display string `json:"display"`
}

// Quote is a landed breakdown for a province with display strings attached.
type Quote struct {
	PriceBreakdown
	Province     Province      `json:"province"`
	ProvinceName string        `json:"provinceName"`
	Lines        []DisplayLine `json:"lines"`
	TotalDisplay string        `json:"totalDisplay"`
}

// NewQuote decorates b for presentation.
func NewQuote(b PriceBreakdown, p Province) Quote {
	lines := make([]DisplayLine, 0, len(b.LineItems))
	for _, l := range b.LineItems {
		lines = append(lines, DisplayLine{Label: l.Label, Display: l.Display()})
	}
	return Quote{
		PriceBreakdown: b,
		Province:       p,
		ProvinceName:   p.Label(),
		Lines:          lines,
		TotalDisplay:   b.TotalDisplay(),
	}
}
