package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SMA returns the simple moving average of the window of length period
// ending at index end (inclusive). ok is false when the window does not fit.
func SMA(closes []float64, end, period int) (value float64, ok bool) {
	if period <= 0 || end < period-1 || end >= len(closes) {
		return 0, false
	}
	return stat.Mean(closes[end-period+1:end+1], nil), true
}

// SMASeries returns the SMA for every index. Indices before the first full
// window are NaN. Each value is a direct window mean, not a rolling sum.
func SMASeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		v, ok := SMA(closes, i, period)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}
