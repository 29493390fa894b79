package rebalancing

import (
	"fmt"
	"math"
	"testing"

	"github.com/fingenie/quantcore/internal/domain"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nHoldings(n int) []domain.Holding {
	out := make([]domain.Holding, n)
	for i := range out {
		out[i] = domain.Holding{Symbol: fmt.Sprintf("H%d", i), Quantity: float64(i + 1), BuyPrice: 100, CurrentPrice: 100 + float64(i)}
	}
	return out
}

func TestGenerateTargetAllocation_Equal(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 12} {
		t.Run(fmt.Sprintf("%d holdings", n), func(t *testing.T) {
			target, err := GenerateTargetAllocation(nHoldings(n), StrategyEqual, nil)
			require.NoError(t, err)
			require.Len(t, target, n)
			for _, pct := range target {
				assert.InDelta(t, 100/float64(n), pct, 1e-9)
			}
		})
	}
}

func TestGenerateTargetAllocation_RiskParityMatchesEqual(t *testing.T) {
	holdings := nHoldings(4)
	equal, err := GenerateTargetAllocation(holdings, StrategyEqual, nil)
	require.NoError(t, err)
	parity, err := GenerateTargetAllocation(holdings, StrategyRiskParity, nil)
	require.NoError(t, err)
	assert.Equal(t, equal, parity)
}

func TestGenerateTargetAllocation_MarketCapMatchesCurrent(t *testing.T) {
	holdings := testhelpers.NewHoldingFixtures()
	target, err := GenerateTargetAllocation(holdings, StrategyMarketCap, nil)
	require.NoError(t, err)

	assert.Equal(t, CurrentAllocation(holdings), target)
	assert.InDelta(t, 64.1, target["RELIANCE"], 0.05)

	for _, rec := range CalculateRecommendations(holdings, target, DefaultThresholdPercent) {
		assert.Equal(t, ActionHold, rec.Action)
	}
}

func TestGenerateTargetAllocation_CustomPassThrough(t *testing.T) {
	custom := domain.AllocationMap{"RELIANCE": 70, "TCS": 20, "INFY": 10}
	target, err := GenerateTargetAllocation(testhelpers.NewHoldingFixtures(), StrategyCustom, custom)
	require.NoError(t, err)
	assert.Equal(t, custom, target)

	target["TCS"] = 0
	assert.Equal(t, 20.0, custom["TCS"], "returned map is a copy")
}

func TestGenerateTargetAllocation_Errors(t *testing.T) {
	_, err := GenerateTargetAllocation(nHoldings(2), Strategy("momentum"), nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = GenerateTargetAllocation(nHoldings(2), StrategyInverseVolatility, nil)
	assert.ErrorIs(t, err, ErrHistoryRequired)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"equal", "market_cap", "risk_parity", "custom", "inverse_volatility"} {
		got, err := ParseStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, Strategy(s), got)
	}
	_, err := ParseStrategy("")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestInverseVolatilityAllocation(t *testing.T) {
	holdings := []domain.Holding{
		{Symbol: "CALM", Quantity: 1, BuyPrice: 100, CurrentPrice: 100},
		{Symbol: "WILD", Quantity: 1, BuyPrice: 100, CurrentPrice: 100},
	}
	closes := map[string][]float64{
		"CALM": {100, 101, 100, 101, 100},
		"WILD": {100, 104, 100, 104, 100},
	}

	target := InverseVolatilityAllocation(holdings, closes)

	assert.InDelta(t, 100.0, target["CALM"]+target["WILD"], 1e-9)
	assert.Greater(t, target["CALM"], target["WILD"])
	assert.InDelta(t, 80.0, target["CALM"], 1.0, "roughly four times less volatile")
}

func TestInverseVolatilityAllocation_Fallbacks(t *testing.T) {
	holdings := nHoldings(3)

	t.Run("no history is equal weight", func(t *testing.T) {
		target := InverseVolatilityAllocation(holdings, nil)
		for _, pct := range target {
			assert.InDelta(t, 100.0/3, pct, 1e-9)
		}
	})

	t.Run("missing symbol takes median weight", func(t *testing.T) {
		closes := map[string][]float64{
			"H0": {100, 102, 100, 102},
			"H1": {100, 102, 100, 102},
		}
		target := InverseVolatilityAllocation(holdings, closes)
		assert.InDelta(t, target["H0"], target["H2"], 1e-9)
		assert.InDelta(t, 100.0, target["H0"]+target["H1"]+target["H2"], 1e-9)
	})

	t.Run("flat prices have no dispersion", func(t *testing.T) {
		closes := map[string][]float64{"H0": {100, 100, 100}}
		target := InverseVolatilityAllocation(holdings, closes)
		assert.False(t, math.IsInf(target["H0"], 0))
		assert.InDelta(t, 100.0/3, target["H0"], 1e-9)
	})
}
