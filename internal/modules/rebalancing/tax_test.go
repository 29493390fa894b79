package rebalancing

import (
	"math"
	"testing"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func sell(symbol string, qty float64) Recommendation {
	return Recommendation{Symbol: symbol, Action: ActionSell, Quantity: qty}
}

func TestCalculateTaxImplications_OnlySellLegs(t *testing.T) {
	holdings := testhelpers.NewHoldingFixtures()
	recs := []Recommendation{
		sell("RELIANCE", 2),
		{Symbol: "TCS", Action: ActionBuy, Quantity: 2},
	}

	taxes := CalculateTaxImplications(holdings, recs, asOf)
	require.Len(t, taxes, 1)

	ti := taxes[0]
	assert.Equal(t, "RELIANCE", ti.Symbol)
	assert.InDelta(t, 1000.0, ti.CapitalGains, 1e-9)
	assert.Equal(t, AssumedHoldingPeriodDays, ti.HoldingPeriodDays)
	assert.Equal(t, GainShortTerm, ti.GainType, "365 days is not more than 365")
	assert.InDelta(t, 150.0, ti.EstimatedTax, 1e-9)
	assert.Equal(t, ShortTermRate, ti.TaxRate)
}

func TestCalculateTaxImplications_NeverNegative(t *testing.T) {
	holdings := testhelpers.NewHoldingFixtures()
	taxes := CalculateTaxImplications(holdings, []Recommendation{sell("TCS", 5)}, asOf)
	require.Len(t, taxes, 1)

	assert.InDelta(t, -1000.0, taxes[0].CapitalGains, 1e-9)
	assert.Equal(t, 0.0, taxes[0].EstimatedTax)
}

func TestCalculateTaxImplications_AcquisitionDate(t *testing.T) {
	longAgo := asOf.AddDate(-2, 0, 0)
	recent := asOf.AddDate(0, -3, 0)

	tests := []struct {
		name       string
		acquiredAt *time.Time
		buy, cur   float64
		qty        float64
		gainType   GainType
		tax        float64
	}{
		{"long term above exemption", &longAgo, 100, 400, 1000, GainLongTerm, 20000},
		{"long term within exemption", &longAgo, 100, 150, 1000, GainLongTerm, 0},
		{"recent purchase", &recent, 100, 150, 1000, GainShortTerm, 7500},
		{"no date assumes 365 days", nil, 100, 150, 1000, GainShortTerm, 7500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings := []domain.Holding{{Symbol: "X", Quantity: tt.qty, BuyPrice: tt.buy, CurrentPrice: tt.cur, AcquiredAt: tt.acquiredAt}}
			taxes := CalculateTaxImplications(holdings, []Recommendation{sell("X", tt.qty)}, asOf)
			require.Len(t, taxes, 1)
			assert.Equal(t, tt.gainType, taxes[0].GainType)
			assert.InDelta(t, tt.tax, taxes[0].EstimatedTax, 1e-9)
		})
	}
}

func TestCalculateTaxImplications_RoundsToPaise(t *testing.T) {
	holdings := []domain.Holding{{Symbol: "X", Quantity: 3, BuyPrice: 10.01, CurrentPrice: 10.34}}
	taxes := CalculateTaxImplications(holdings, []Recommendation{sell("X", 3)}, asOf)
	require.Len(t, taxes, 1)
	assert.InDelta(t, 0.99, taxes[0].CapitalGains, 1e-9)
	assert.Equal(t, 0.15, taxes[0].EstimatedTax)
}

func TestCalculateTaxImplications_NonFinitePropagates(t *testing.T) {
	holdings := []domain.Holding{{Symbol: "X", Quantity: 1, BuyPrice: 100, CurrentPrice: math.NaN()}}
	taxes := CalculateTaxImplications(holdings, []Recommendation{sell("X", 1)}, asOf)
	require.Len(t, taxes, 1)
	assert.True(t, math.IsNaN(taxes[0].CapitalGains))
	assert.True(t, math.IsNaN(taxes[0].EstimatedTax))
	assert.True(t, math.IsNaN(TotalTaxLiability(taxes)))
}

func TestTotalTaxLiability(t *testing.T) {
	assert.Equal(t, 0.0, TotalTaxLiability(nil))
	assert.InDelta(t, 0.3, TotalTaxLiability([]TaxImplication{{EstimatedTax: 0.1}, {EstimatedTax: 0.2}}), 1e-12)
}
