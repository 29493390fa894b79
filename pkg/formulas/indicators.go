package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// talib zero-fills its lookback region; mask it with NaN so callers can
// tell "no value yet" apart from a real zero.
func maskLookback(series []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RSISeries returns Wilder's RSI for every index (NaN before period bars).
func RSISeries(closes []float64, period int) []float64 {
	if period < 2 || len(closes) <= period {
		return nanSeries(len(closes))
	}
	return maskLookback(talib.Rsi(closes, period), period)
}

// MACDSeries returns the MACD line, signal line and histogram.
func MACDSeries(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	lookback := slow - 1 + signal - 1
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) <= lookback {
		n := len(closes)
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}
	macd, sig, hist = talib.Macd(closes, fast, slow, signal)
	return maskLookback(macd, lookback), maskLookback(sig, lookback), maskLookback(hist, lookback)
}

// BollingerSeries returns the upper, middle and lower bands using an SMA
// basis and a symmetric standard deviation multiplier.
func BollingerSeries(closes []float64, period int, stdDevs float64) (upper, middle, lower []float64) {
	if period < 2 || len(closes) < period {
		n := len(closes)
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}
	upper, middle, lower = talib.BBands(closes, period, stdDevs, stdDevs, talib.SMA)
	lookback := period - 1
	return maskLookback(upper, lookback), maskLookback(middle, lookback), maskLookback(lower, lookback)
}
