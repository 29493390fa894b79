package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	saved   []StoredAnalytics
	saveErr error
}

func (m *memoryStore) Save(ctx context.Context, rec StoredAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memoryStore) Latest(ctx context.Context) (*StoredAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil, domain.ErrNotFound
	}
	rec := m.saved[len(m.saved)-1]
	return &rec, nil
}

func (m *memoryStore) List(ctx context.Context, limit int) ([]StoredAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func newTestService(provider domain.HoldingsProvider, store ResultStore) *Service {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(provider, store, metrics.New(prometheus.NewRegistry()), log)
}

func TestService_Analyze(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(testhelpers.NewMockHoldingsProvider(testhelpers.NewHoldingFixtures()), store)

	analysis, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	assert.True(t, analysis.Persisted)
	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, 2, analysis.HoldingsCount)
	assert.InDelta(t, 39000.0, analysis.Result.TotalValue, 1e-9)
	require.Len(t, store.saved, 1)
	assert.Equal(t, analysis.ID, store.saved[0].ID)

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, latest.ID)
}

func TestService_Analyze_EmptyHoldings(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(testhelpers.NewMockHoldingsProvider(nil), store)

	_, err := svc.Analyze(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoHoldings)
	assert.Empty(t, store.saved)
}

func TestService_Analyze_ProviderError(t *testing.T) {
	provider := testhelpers.NewMockHoldingsProvider(nil)
	provider.SetError(errors.New("connection refused"))
	svc := newTestService(provider, &memoryStore{})

	_, err := svc.Analyze(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_Analyze_PersistFailureKeepsResult(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	svc := newTestService(testhelpers.NewMockHoldingsProvider(testhelpers.NewHoldingFixtures()), store)

	analysis, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.False(t, analysis.Persisted)
	assert.Equal(t, 70, analysis.Result.RiskScore)
}

func TestService_WithoutStore(t *testing.T) {
	svc := newTestService(nil, nil)

	analysis, err := svc.AnalyzeHoldings(context.Background(), testhelpers.NewHoldingFixtures())
	require.NoError(t, err)
	assert.False(t, analysis.Persisted)

	_, err = svc.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.Analyze(context.Background())
	assert.Error(t, err)
}

func TestService_Analyze_ZeroValuePortfolio(t *testing.T) {
	store := &memoryStore{}
	holdings := []domain.Holding{
		{Symbol: "INFY", Quantity: 10, BuyPrice: 1500, CurrentPrice: 0, Sector: "IT"},
		{Symbol: "TCS", Quantity: 5, BuyPrice: 3000, CurrentPrice: 0, Sector: "IT"},
	}
	svc := newTestService(testhelpers.NewMockHoldingsProvider(holdings), store)

	_, err := svc.Analyze(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPortfolioValue)
	assert.Empty(t, store.saved)
}

func TestService_Analyze_NonFiniteResultNotPersisted(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(nil, store)

	analysis, err := svc.AnalyzeHoldings(context.Background(), []domain.Holding{
		{Symbol: "X", Quantity: 1, BuyPrice: 0, CurrentPrice: 5, Sector: "IT"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, analysis.Result.TotalValue, 1e-9)
	assert.False(t, analysis.Persisted)
	assert.Empty(t, store.saved)
}
