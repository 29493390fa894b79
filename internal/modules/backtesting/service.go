package backtesting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ArchiveKind is the archive namespace for backtest runs
const ArchiveKind = "backtests"

// RunStore persists backtest runs
type RunStore interface {
	Save(ctx context.Context, run StoredRun) error
	Get(ctx context.Context, id string) (*StoredRun, error)
	List(ctx context.Context, limit int) ([]StoredRun, error)
	SetArchiveURL(ctx context.Context, id, url string) error
}

// RunRequest selects a strategy and the symbols to replay it on. Series, when
// given, is used as-is instead of loading bars for Symbols.
type RunRequest struct {
	Config  StrategyConfig        `json:"config"`
	Symbols []string              `json:"symbols,omitempty"`
	Series  []domain.SymbolSeries `json:"series,omitempty"`
}

// RunResult is a completed run plus whether it reached the store
type RunResult struct {
	StoredRun
	Persisted bool `json:"persisted"`
}

// Service loads price history, runs backtests and keeps their results
type Service struct {
	history domain.PriceHistoryProvider
	store   RunStore
	archive domain.ResultArchive
	metrics *metrics.Metrics
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a new backtesting service. store, archive and m may be nil.
func NewService(
	history domain.PriceHistoryProvider,
	store RunStore,
	archive domain.ResultArchive,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Service {
	return &Service{
		history: history,
		store:   store,
		archive: archive,
		metrics: m,
		now:     time.Now,
		log:     log.With().Str("service", "backtesting").Logger(),
	}
}

// Run validates the request, replays the strategy and stores the run.
// Storage and archiving are best effort.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	done := utils.OperationTimer("backtesting.run", s.log)
	result, err := s.run(ctx, req)
	s.metrics.ObserveEngineRun(metrics.EngineBacktesting, done(), err)
	return result, err
}

func (s *Service) run(ctx context.Context, req RunRequest) (*RunResult, error) {
	cfg := req.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	series, err := s.loadSeries(ctx, cfg, req)
	if err != nil {
		return nil, err
	}

	result, err := RunBacktest(cfg, series)
	if err != nil {
		return nil, err
	}
	s.metrics.AddBacktestTrades(string(cfg.Type), result.TotalTrades)

	symbols := make([]string, len(series))
	for i, ss := range series {
		symbols[i] = ss.Symbol
	}
	run := &RunResult{
		StoredRun: StoredRun{
			ID:        uuid.New().String(),
			CreatedAt: s.now().UTC().Truncate(time.Second),
			Symbols:   symbols,
			Config:    cfg,
			Result:    *result,
		},
	}

	if err := utils.CheckEncodable(run.StoredRun); err != nil {
		s.log.Warn().Err(err).Str("id", run.ID).Msg("Backtest run is not JSON-encodable, not persisting")
	} else if s.store != nil {
		if err := s.store.Save(ctx, run.StoredRun); err != nil {
			s.metrics.PersistFailed(metrics.EngineBacktesting)
			s.log.Warn().Err(err).Str("id", run.ID).Msg("Failed to persist backtest run")
		} else {
			run.Persisted = true
		}
	}
	s.archiveRun(ctx, run)

	s.log.Info().
		Str("id", run.ID).
		Str("strategy", string(cfg.Type)).
		Int("symbols", len(series)).
		Int("skipped", len(result.SkippedSymbols)).
		Int("trades", result.TotalTrades).
		Float64("total_return", result.TotalReturn).
		Msg("Backtest completed")

	return run, nil
}

func (s *Service) loadSeries(ctx context.Context, cfg StrategyConfig, req RunRequest) ([]domain.SymbolSeries, error) {
	if len(req.Series) > 0 {
		return req.Series, nil
	}
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("%w: symbols or series required", ErrInvalidConfig)
	}
	if s.history == nil {
		return nil, fmt.Errorf("backtesting service has no price history provider")
	}

	series := make([]domain.SymbolSeries, 0, len(req.Symbols))
	for _, symbol := range req.Symbols {
		symbol = utils.NormalizeSymbol(symbol)
		bars, err := s.history.GetBars(ctx, symbol, cfg.StartDate, cfg.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to load price history for %s: %w", symbol, err)
		}
		series = append(series, domain.SymbolSeries{Symbol: symbol, Bars: bars})
	}
	return series, nil
}

func (s *Service) archiveRun(ctx context.Context, run *RunResult) {
	if s.archive == nil {
		return
	}
	payload, err := json.Marshal(run.StoredRun)
	if err != nil {
		s.log.Warn().Err(err).Str("id", run.ID).Msg("Backtest run is not JSON-encodable, skipping archive")
		return
	}
	url, err := s.archive.Archive(ctx, ArchiveKind, run.ID, payload)
	if err != nil {
		s.log.Warn().Err(err).Str("id", run.ID).Msg("Failed to archive backtest run")
		return
	}
	run.ArchiveURL = url
	if s.store != nil && run.Persisted {
		if err := s.store.SetArchiveURL(ctx, run.ID, url); err != nil {
			s.log.Warn().Err(err).Str("id", run.ID).Msg("Failed to record archive location")
		}
	}
}

// Get returns a stored run
func (s *Service) Get(ctx context.Context, id string) (*StoredRun, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// List returns stored runs, newest first
func (s *Service) List(ctx context.Context, limit int) ([]StoredRun, error) {
	if s.store == nil {
		return []StoredRun{}, nil
	}
	return s.store.List(ctx, limit)
}

// EquityChart renders the equity curve of a stored run as PNG
func (s *Service) EquityChart(ctx context.Context, id string) ([]byte, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderEquityCurve(run.Config.StartDate, &run.Result)
}
