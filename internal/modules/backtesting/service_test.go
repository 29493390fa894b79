package backtesting

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRunStore struct {
	mu      sync.Mutex
	runs    map[string]StoredRun
	saveErr error
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{runs: make(map[string]StoredRun)}
}

func (m *memoryRunStore) Save(ctx context.Context, run StoredRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memoryRunStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

func (m *memoryRunStore) List(ctx context.Context, limit int) ([]StoredRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StoredRun, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	return out, nil
}

func (m *memoryRunStore) SetArchiveURL(ctx context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	run.ArchiveURL = url
	m.runs[id] = run
	return nil
}

type fakeArchive struct {
	payloads map[string][]byte
	err      error
}

func (f *fakeArchive) Archive(ctx context.Context, kind, id string, payload []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.payloads == nil {
		f.payloads = make(map[string][]byte)
	}
	f.payloads[kind+"/"+id] = payload
	return "s3://archive/" + kind + "/" + id + ".json", nil
}

func newService(history domain.PriceHistoryProvider, store RunStore, archive domain.ResultArchive) (*Service, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(history, store, archive, metrics.New(reg), log), reg
}

func requestFor(symbols ...string) RunRequest {
	cfg := smaConfig()
	return RunRequest{Config: cfg, Symbols: symbols}
}

func TestService_Run(t *testing.T) {
	history := testhelpers.NewMockPriceHistory()
	history.SetBars("INFY", testhelpers.NewBars(roundTrip...))
	store := newMemoryRunStore()
	archive := &fakeArchive{}
	svc, reg := newService(history, store, archive)

	result, err := svc.Run(context.Background(), requestFor("infy", "WIPRO"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.True(t, result.Persisted)
	assert.Equal(t, []string{"INFY", "WIPRO"}, result.Symbols)
	assert.Equal(t, []string{"WIPRO"}, result.Result.SkippedSymbols)
	assert.Equal(t, 1, result.Result.TotalTrades)
	assert.Equal(t, 2, history.Calls())

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ArchiveURL, stored.ArchiveURL)
	assert.Equal(t, "s3://archive/backtests/"+result.ID+".json", result.ArchiveURL)

	var archived StoredRun
	require.NoError(t, json.Unmarshal(archive.payloads[ArchiveKind+"/"+result.ID], &archived))
	assert.Equal(t, result.ID, archived.ID)

	expected := `
# HELP quantcore_backtest_trades_total Closed simulated trades by strategy type
# TYPE quantcore_backtest_trades_total counter
quantcore_backtest_trades_total{strategy="sma_crossover"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quantcore_backtest_trades_total"))
}

func TestService_RunWithInlineSeries(t *testing.T) {
	svc, _ := newService(nil, nil, nil)

	result, err := svc.Run(context.Background(), RunRequest{
		Config: smaConfig(),
		Series: []domain.SymbolSeries{series("INFY", roundTrip)},
	})
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Equal(t, []string{"INFY"}, result.Symbols)
	assert.InDelta(t, 7.69, result.Result.TotalReturn, 1e-9)
}

func TestService_RunInvalidConfig(t *testing.T) {
	svc, _ := newService(testhelpers.NewMockPriceHistory(), nil, nil)

	tests := []struct {
		name string
		req  RunRequest
	}{
		{"no symbols", RunRequest{Config: smaConfig()}},
		{"zero capital", func() RunRequest {
			req := requestFor("INFY")
			req.Config.InitialCapital = 0
			return req
		}()},
		{"inverted dates", func() RunRequest {
			req := requestFor("INFY")
			req.Config.StartDate, req.Config.EndDate = req.Config.EndDate, req.Config.StartDate
			return req
		}()},
		{"unknown strategy", func() RunRequest {
			req := requestFor("INFY")
			req.Config.Type = "momentum"
			return req
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestService_RunHistoryError(t *testing.T) {
	history := testhelpers.NewMockPriceHistory()
	history.SetError(errors.New("connection refused"))
	svc, _ := newService(history, nil, nil)

	_, err := svc.Run(context.Background(), requestFor("INFY"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestService_RunIsBestEffort(t *testing.T) {
	history := testhelpers.NewMockPriceHistory()
	history.SetBars("INFY", testhelpers.NewBars(roundTrip...))
	store := newMemoryRunStore()
	store.saveErr = errors.New("disk full")
	archive := &fakeArchive{err: errors.New("bucket missing")}
	svc, reg := newService(history, store, archive)

	result, err := svc.Run(context.Background(), requestFor("INFY"))
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Empty(t, result.ArchiveURL)
	assert.Equal(t, 1, result.Result.TotalTrades)
	expected := `
# HELP quantcore_persist_failures_total Best-effort result writes that failed
# TYPE quantcore_persist_failures_total counter
quantcore_persist_failures_total{engine="backtesting"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quantcore_persist_failures_total"))
}

func TestService_EquityChart(t *testing.T) {
	history := testhelpers.NewMockPriceHistory()
	history.SetBars("INFY", testhelpers.NewBars(roundTrip...))
	svc, _ := newService(history, newMemoryRunStore(), nil)

	result, err := svc.Run(context.Background(), requestFor("INFY"))
	require.NoError(t, err)

	png, err := svc.EquityChart(context.Background(), result.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	_, err = svc.EquityChart(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
