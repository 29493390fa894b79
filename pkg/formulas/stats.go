// Package formulas provides the numeric building blocks shared by the
// analytics, rebalancing and backtesting engines.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev returns the population standard deviation (divisor N), or 0
// for an empty slice. NaN inputs propagate.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(data, nil))
}

// Returns converts a price series into simple period-over-period returns.
// Pairs with a non-positive base are skipped.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
