package formulas

import "math"

// TradingDaysPerYear annualizes per-period ratios.
const TradingDaysPerYear = 252

// zeroStdDev is the threshold under which a dispersion is treated as zero.
// Identical returns can leave a few ulps of residue in the variance.
const zeroStdDev = 1e-12

// SimpleSharpe returns mean(returns)/popStdDev(returns)*sqrt(252) without a
// risk-free rate. It returns 0 when there are no returns or the standard
// deviation is zero.
func SimpleSharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	std := PopStdDev(returns)
	if IsZeroStdDev(std) {
		return 0
	}
	return Mean(returns) / std * math.Sqrt(TradingDaysPerYear)
}

// IsZeroStdDev reports whether std should be treated as no dispersion.
func IsZeroStdDev(std float64) bool {
	return math.Abs(std) < zeroStdDev
}
