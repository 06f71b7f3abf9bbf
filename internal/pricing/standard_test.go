package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shipgrid/backend-import/internal/pricing"
)

func TestComputeStandardBreakdownOntario(t *testing.T) {
	b, err := pricing.ComputeStandardBreakdown(money(t, "50000"), pricing.ON)
	require.NoError(t, err)
	requireMoney(t, "2500", b.OverseasFreight)
	requireMoney(t, "3050", b.ImportDuties)
	requireMoney(t, "0", b.GST)
	requireMoney(t, "0", b.PST)
	requireMoney(t, "7221.50", b.HST)
	requireMoney(t, "4000", b.InlandShipping)
	requireMoney(t, "3000", b.ServiceFee)
	requireMoney(t, "69771.50", b.Total)
}

func TestComputeStandardBreakdownBritishColumbia(t *testing.T) {
	b, err := pricing.ComputeStandardBreakdown(money(t, "50000"), pricing.BC)
	require.NoError(t, err)
	// dutiable 55550: GST 5% = 2777.50, PST 7% = 3888.50
	requireMoney(t, "2777.50", b.GST)
	requireMoney(t, "3888.50", b.PST)
	requireMoney(t, "0", b.HST)
	requireMoney(t, "0", b.InlandShipping)
	requireMoney(t, "65216", b.Total)
}

func TestComputeStandardBreakdownInlandShipping(t *testing.T) {
	requireMoney(t, "0", pricing.InlandShipping(pricing.BC))
	requireMoney(t, "2000", pricing.InlandShipping(pricing.AB))
	for _, p := range []pricing.Province{pricing.ON, pricing.QC, pricing.YT, pricing.NU} {
		requireMoney(t, "4000", pricing.InlandShipping(p))
	}
}

func TestComputeStandardBreakdownRoundsEachComponent(t *testing.T) {
	// dutiable = 12345.67 + 753.08587 + 2500 = 15598.75587
	b, err := pricing.ComputeStandardBreakdown(money(t, "12345.67"), pricing.QC)
	require.NoError(t, err)
	requireMoney(t, "753.09", b.ImportDuties)
	requireMoney(t, "779.94", b.GST)
	requireMoney(t, "1555.98", b.PST)
	sum := b.BasePrice.Add(b.OverseasFreight).Add(b.ImportDuties).Add(b.GST).Add(b.PST).Add(b.HST).Add(b.InlandShipping).Add(b.ServiceFee)
	require.True(t, sum.Equal(b.Total))
}

func TestComputeStandardBreakdownEveryProvince(t *testing.T) {
	for _, p := range pricing.Provinces() {
		b, err := pricing.ComputeStandardBreakdown(money(t, "30000"), p)
		require.NoError(t, err, p)
		require.True(t, b.Total.GreaterThan(b.BasePrice), p)
		_, ok := pricing.TaxRateFor(p)
		require.True(t, ok, p)
	}
}

func TestComputeStandardBreakdownErrors(t *testing.T) {
	_, err := pricing.ComputeStandardBreakdown(money(t, "-5"), pricing.ON)
	require.ErrorIs(t, err, pricing.ErrInvalidInput)

	_, err = pricing.ComputeStandardBreakdown(money(t, "5"), pricing.Province("ZZ"))
	require.ErrorIs(t, err, pricing.ErrInvalidInput)
}
