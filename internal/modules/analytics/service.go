package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResultStore persists analytics snapshots
type ResultStore interface {
	Save(ctx context.Context, rec StoredAnalytics) error
	Latest(ctx context.Context) (*StoredAnalytics, error)
	List(ctx context.Context, limit int) ([]StoredAnalytics, error)
}

// Analysis is a computed snapshot plus whether it reached the store.
type Analysis struct {
	StoredAnalytics
	Persisted bool `json:"persisted"`
}

// Service loads holdings, runs the analytics engine and stores the result.
type Service struct {
	holdings domain.HoldingsProvider
	store    ResultStore
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new analytics service. store and m may be nil.
func NewService(holdings domain.HoldingsProvider, store ResultStore, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		store:    store,
		metrics:  m,
		now:      time.Now,
		log:      log.With().Str("service", "analytics").Logger(),
	}
}

// Analyze computes analytics over the holdings provider's current holdings.
func (s *Service) Analyze(ctx context.Context) (*Analysis, error) {
	if s.holdings == nil {
		return nil, fmt.Errorf("analytics service has no holdings provider")
	}
	holdings, err := s.holdings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	return s.AnalyzeHoldings(ctx, holdings)
}

// AnalyzeHoldings computes analytics over the given holdings and stores the
// snapshot. A failed write is logged and reported through Persisted.
func (s *Service) AnalyzeHoldings(ctx context.Context, holdings []domain.Holding) (*Analysis, error) {
	done := utils.OperationTimer("analytics.analyze", s.log)

	if len(holdings) == 0 {
		s.metrics.ObserveEngineRun(metrics.EngineAnalytics, done(), domain.ErrNoHoldings)
		return nil, domain.ErrNoHoldings
	}

	result := CalculateAnalytics(holdings)
	if !(result.TotalValue > 0) {
		s.metrics.ObserveEngineRun(metrics.EngineAnalytics, done(), domain.ErrNoPortfolioValue)
		return nil, domain.ErrNoPortfolioValue
	}
	analysis := &Analysis{
		StoredAnalytics: StoredAnalytics{
			ID:            uuid.New().String(),
			CreatedAt:     s.now().UTC().Truncate(time.Second),
			HoldingsCount: len(holdings),
			Result:        result,
		},
	}

	if err := utils.CheckEncodable(analysis.StoredAnalytics); err != nil {
		s.log.Warn().Err(err).Str("id", analysis.ID).Msg("Analytics result is not JSON-encodable, not persisting")
	} else if s.store != nil {
		if err := s.store.Save(ctx, analysis.StoredAnalytics); err != nil {
			s.metrics.PersistFailed(metrics.EngineAnalytics)
			s.log.Warn().Err(err).Str("id", analysis.ID).Msg("Failed to persist analytics result")
		} else {
			analysis.Persisted = true
		}
	}

	s.metrics.ObserveEngineRun(metrics.EngineAnalytics, done(), nil)
	s.log.Info().
		Str("id", analysis.ID).
		Int("holdings", len(holdings)).
		Int("risk_score", result.RiskScore).
		Bool("persisted", analysis.Persisted).
		Msg("Portfolio analytics calculated")

	return analysis, nil
}

// Latest returns the most recent stored snapshot.
func (s *Service) Latest(ctx context.Context) (*StoredAnalytics, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.Latest(ctx)
}

// History returns up to limit stored snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]StoredAnalytics, error) {
	if s.store == nil {
		return []StoredAnalytics{}, nil
	}
	return s.store.List(ctx, limit)
}
