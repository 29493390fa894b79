// Package domain provides core domain models and types.
package domain

import (
	"errors"
	"time"
)

// DefaultSector labels holdings that carry no sector.
const DefaultSector = "Unknown"

var (
	// ErrNoHoldings is returned when an operation needs at least one holding.
	ErrNoHoldings = errors.New("no holdings")
	// ErrNoPortfolioValue is returned when holdings are worth nothing in
	// total, which leaves every weight undefined.
	ErrNoPortfolioValue = errors.New("portfolio has no market value")
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// Holding represents one owned position.
type Holding struct {
	Symbol       string     `json:"symbol" yaml:"symbol"`
	Name         string     `json:"name" yaml:"name"`
	Quantity     float64    `json:"quantity" yaml:"quantity"`
	BuyPrice     float64    `json:"buy_price" yaml:"buy_price"`
	CurrentPrice float64    `json:"current_price" yaml:"current_price"`
	Sector       string     `json:"sector,omitempty" yaml:"sector,omitempty"`
	AcquiredAt   *time.Time `json:"acquired_at,omitempty" yaml:"acquired_at,omitempty"`
}

// Value is quantity * currentPrice.
func (h Holding) Value() float64 {
	return h.Quantity * h.CurrentPrice
}

// Invested is quantity * buyPrice.
func (h Holding) Invested() float64 {
	return h.Quantity * h.BuyPrice
}

// Profit is Value - Invested.
func (h Holding) Profit() float64 {
	return h.Value() - h.Invested()
}

// ProfitPercent is (currentPrice - buyPrice) / buyPrice * 100.
// A zero buy price yields Inf or NaN.
func (h Holding) ProfitPercent() float64 {
	return (h.CurrentPrice - h.BuyPrice) / h.BuyPrice * 100
}

// SectorOrDefault returns the sector, or DefaultSector when it is empty.
func (h Holding) SectorOrDefault() string {
	if h.Sector == "" {
		return DefaultSector
	}
	return h.Sector
}

// PriceBar is one OHLCV observation.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SymbolSeries is the chronologically ascending bar history of one symbol.
type SymbolSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Closes extracts the close prices in order.
func (s SymbolSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// AllocationMap maps a symbol to a percentage (0-100). Sums are not enforced.
type AllocationMap map[string]float64
