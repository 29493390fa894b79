package testing

import (
	"time"

	"github.com/fingenie/quantcore/internal/domain"
)

// NewHoldingFixtures returns the two-holding portfolio used across engine tests:
// RELIANCE in Energy and TCS in IT, worth 39000 against 35000 invested.
func NewHoldingFixtures() []domain.Holding {
	return []domain.Holding{
		{Symbol: "RELIANCE", Name: "Reliance Industries", Quantity: 10, BuyPrice: 2000, CurrentPrice: 2500, Sector: "Energy"},
		{Symbol: "TCS", Name: "Tata Consultancy Services", Quantity: 5, BuyPrice: 3000, CurrentPrice: 2800, Sector: "IT"},
	}
}

// SeriesStart is the first bar date used by the series helpers.
var SeriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewBars builds daily bars from closes starting at SeriesStart.
// Open/high/low mirror the close.
func NewBars(closes ...float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Date:   SeriesStart.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// FlatCloses returns n identical closes.
func FlatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// Concat joins close slices.
func Concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
