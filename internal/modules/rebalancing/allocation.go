// Package rebalancing derives target allocations, buy/sell/hold
// recommendations and capital-gains tax estimates for a set of holdings.
package rebalancing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/pkg/formulas"
)

// Strategy names a target-allocation rule
type Strategy string

const (
	// StrategyEqual gives every holding 100/N percent
	StrategyEqual Strategy = "equal"
	// StrategyMarketCap weights by current market value, so the target equals
	// the current allocation.
	StrategyMarketCap Strategy = "market_cap"
	// StrategyRiskParity is an approximation identical to StrategyEqual.
	StrategyRiskParity Strategy = "risk_parity"
	// StrategyCustom passes a caller-supplied allocation through unchanged
	StrategyCustom Strategy = "custom"
	// StrategyInverseVolatility weights by 1/stddev of daily close returns
	StrategyInverseVolatility Strategy = "inverse_volatility"
)

var (
	// ErrUnknownStrategy is returned for an unrecognized Strategy
	ErrUnknownStrategy = errors.New("unknown allocation strategy")
	// ErrHistoryRequired is returned when a strategy needs price history
	ErrHistoryRequired = errors.New("strategy requires price history")
)

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyEqual, StrategyMarketCap, StrategyRiskParity, StrategyCustom, StrategyInverseVolatility:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// NeedsHistory reports whether the strategy weights by price history
func (s Strategy) NeedsHistory() bool {
	return s == StrategyInverseVolatility
}

// GenerateTargetAllocation derives a target allocation from holdings.
// custom is only read for StrategyCustom. StrategyInverseVolatility needs
// price history and must go through InverseVolatilityAllocation.
func GenerateTargetAllocation(holdings []domain.Holding, strategy Strategy, custom domain.AllocationMap) (domain.AllocationMap, error) {
	switch strategy {
	case StrategyEqual, StrategyRiskParity:
		return equalAllocation(holdings), nil
	case StrategyMarketCap:
		return CurrentAllocation(holdings), nil
	case StrategyCustom:
		out := make(domain.AllocationMap, len(custom))
		for symbol, pct := range custom {
			out[symbol] = pct
		}
		return out, nil
	case StrategyInverseVolatility:
		return nil, ErrHistoryRequired
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func equalAllocation(holdings []domain.Holding) domain.AllocationMap {
	out := make(domain.AllocationMap, len(holdings))
	if len(holdings) == 0 {
		return out
	}
	pct := 100 / float64(len(holdings))
	for _, h := range holdings {
		out[h.Symbol] = pct
	}
	return out
}

// CurrentAllocation returns each holding's share of total current value.
func CurrentAllocation(holdings []domain.Holding) domain.AllocationMap {
	total := 0.0
	for _, h := range holdings {
		total += h.Value()
	}
	out := make(domain.AllocationMap, len(holdings))
	for _, h := range holdings {
		out[h.Symbol] = h.Value() / total * 100
	}
	return out
}

// InverseVolatilityAllocation weights each holding by the inverse of the
// population standard deviation of its daily close returns. Holdings without
// at least two usable returns, or with zero dispersion, fall back to the
// median weight of the others; if none qualify the result is equal-weight.
func InverseVolatilityAllocation(holdings []domain.Holding, closes map[string][]float64) domain.AllocationMap {
	weights := make(map[string]float64, len(holdings))
	var known []float64
	for _, h := range holdings {
		returns := formulas.Returns(closes[h.Symbol])
		if len(returns) < 2 {
			continue
		}
		std := formulas.PopStdDev(returns)
		if formulas.IsZeroStdDev(std) || math.IsNaN(std) {
			continue
		}
		weights[h.Symbol] = 1 / std
		known = append(known, 1/std)
	}

	if len(known) == 0 {
		return equalAllocation(holdings)
	}

	fallback := median(known)
	total := 0.0
	for _, h := range holdings {
		if _, ok := weights[h.Symbol]; !ok {
			weights[h.Symbol] = fallback
		}
		total += weights[h.Symbol]
	}

	out := make(domain.AllocationMap, len(holdings))
	for _, h := range holdings {
		out[h.Symbol] = weights[h.Symbol] / total * 100
	}
	return out
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
