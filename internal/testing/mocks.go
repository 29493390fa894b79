package testing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
)

// MockHoldingsProvider is an in-memory domain.HoldingsProvider
type MockHoldingsProvider struct {
	mu       sync.RWMutex
	holdings []domain.Holding
	err      error
}

// NewMockHoldingsProvider creates a provider returning holdings
func NewMockHoldingsProvider(holdings []domain.Holding) *MockHoldingsProvider {
	return &MockHoldingsProvider{holdings: holdings}
}

// SetHoldings sets the holdings to return
func (m *MockHoldingsProvider) SetHoldings(holdings []domain.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = holdings
}

// SetError sets the error to return
func (m *MockHoldingsProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetAll returns all holdings
func (m *MockHoldingsProvider) GetAll(ctx context.Context) ([]domain.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Holding, len(m.holdings))
	copy(out, m.holdings)
	return out, nil
}

// MockPriceHistory is an in-memory domain.PriceHistoryProvider
type MockPriceHistory struct {
	mu    sync.RWMutex
	bars  map[string][]domain.PriceBar
	err   error
	calls int
}

// NewMockPriceHistory creates an empty price history
func NewMockPriceHistory() *MockPriceHistory {
	return &MockPriceHistory{bars: make(map[string][]domain.PriceBar)}
}

// SetBars sets the bars returned for symbol
func (m *MockPriceHistory) SetBars(symbol string, bars []domain.PriceBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[symbol] = bars
}

// SetError sets the error to return
func (m *MockPriceHistory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetBars was invoked
func (m *MockPriceHistory) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// SaveBars merges bars into the symbol's series, replacing same-date bars
func (m *MockPriceHistory) SaveBars(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	byDate := make(map[int64]domain.PriceBar, len(m.bars[symbol])+len(bars))
	for _, b := range m.bars[symbol] {
		byDate[b.Date.Unix()] = b
	}
	for _, b := range bars {
		byDate[b.Date.Unix()] = b
	}
	merged := make([]domain.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	m.bars[symbol] = merged
	return nil
}

// GetBars returns the stored bars within [from, to]
func (m *MockPriceHistory) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.PriceBar
	for _, b := range m.bars[symbol] {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
