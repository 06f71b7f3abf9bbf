package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	standardOverseasFreight = decimal.NewFromInt(2500)
	standardImportDutyRate  = decimal.RequireFromString("0.061")
	standardServiceFee      = decimal.NewFromInt(3000)
)

// TaxRate holds the sales tax rates for one province. Only GST+PST or HST apply.
type TaxRate struct {
	GST decimal.Decimal
	PST decimal.Decimal
	HST decimal.Decimal
}

func rates(gst, pst, hst string) TaxRate {
	return TaxRate{
		GST: decimal.RequireFromString(gst),
		PST: decimal.RequireFromString(pst),
		HST: decimal.RequireFromString(hst),
	}
}

var standardTaxRates = map[Province]TaxRate{
	AB: rates("0.05", "0", "0"),
	BC: rates("0.05", "0.07", "0"),
	MB: rates("0.05", "0.07", "0"),
	NB: rates("0", "0", "0.15"),
	NL: rates("0", "0", "0.15"),
	NT: rates("0.05", "0", "0"),
	NS: rates("0", "0", "0.15"),
	NU: rates("0.05", "0", "0"),
	ON: rates("0", "0", "0.13"),
	PE: rates("0", "0", "0.15"),
	QC: rates("0.05", "0.09975", "0"),
	SK: rates("0.05", "0.06", "0"),
	YT: rates("0.05", "0", "0"),
}

// TaxRateFor returns the standard tax rates for p.
func TaxRateFor(p Province) (TaxRate, bool) {
	r, ok := standardTaxRates[p]
	return r, ok
}

// InlandShipping is the flat delivery cost from the BC port to p.
func InlandShipping(p Province) Money {
	switch p {
	case BC:
		return decimal.Zero
	case AB:
		return decimal.NewFromInt(2000)
	default:
		return decimal.NewFromInt(4000)
	}
}

// StandardBreakdown is the fixed-formula landed price used when no charge table applies.
type StandardBreakdown struct {
	Province        Province `json:"province"`
	BasePrice       Money    `json:"basePrice"`
	OverseasFreight Money    `json:"overseasFreight"`
	ImportDuties    Money    `json:"importDuties"`
	GST             Money    `json:"gst"`
	PST             Money    `json:"pst"`
	HST             Money    `json:"hst"`
	InlandShipping  Money    `json:"inlandShipping"`
	ServiceFee      Money    `json:"serviceFee"`
	Total           Money    `json:"total"`
}

// ComputeStandardBreakdown prices base for p with hardcoded freight, duty and fees.
// Sales taxes apply to the dutiable amount (base + duty + freight), not to base alone.
// Each component is rounded to cents and the total is the sum of the rounded components.
func ComputeStandardBreakdown(base Money, p Province) (StandardBreakdown, error) {
	if err := validateBase(base); err != nil {
		return StandardBreakdown{}, err
	}
	tax, ok := TaxRateFor(p)
	if !ok {
		return StandardBreakdown{}, fmt.Errorf("%w: unknown province %q", ErrInvalidInput, p)
	}
	duties := base.Mul(standardImportDutyRate)
	dutiable := base.Add(duties).Add(standardOverseasFreight)

	b := StandardBreakdown{
		Province:        p,
		BasePrice:       RoundCents(base),
		OverseasFreight: standardOverseasFreight,
		ImportDuties:    RoundCents(duties),
		GST:             RoundCents(dutiable.Mul(tax.GST)),
		PST:             RoundCents(dutiable.Mul(tax.PST)),
		HST:             RoundCents(dutiable.Mul(tax.HST)),
		InlandShipping:  InlandShipping(p),
		ServiceFee:      standardServiceFee,
	}
	b.Total = b.BasePrice.
		Add(b.OverseasFreight).
		Add(b.ImportDuties).
		Add(b.GST).
		Add(b.PST).
		Add(b.HST).
		Add(b.InlandShipping).
		Add(b.ServiceFee)
	return b, nil
}
