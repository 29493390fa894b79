package rebalancing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultLookbackDays is the price window used by inverse-volatility weighting.
const DefaultLookbackDays = 90

var (
	// ErrInvalidRequest is returned for a malformed plan request
	ErrInvalidRequest = errors.New("invalid rebalancing request")
	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid plan status transition")
)

// PlanStore persists plans
type PlanStore interface {
	Save(ctx context.Context, p StoredPlan) error
	Get(ctx context.Context, id string) (*StoredPlan, error)
	List(ctx context.Context, status PlanStatus, limit int) ([]StoredPlan, error)
	UpdateStatus(ctx context.Context, id string, from, to PlanStatus, at time.Time) error
}

// PlanRequest describes a plan to generate. Holdings are loaded from the
// holdings provider when omitted. A nil ThresholdPercent uses the service default.
type PlanRequest struct {
	Strategy         Strategy             `json:"strategy"`
	CustomAllocation domain.AllocationMap `json:"custom_allocation,omitempty"`
	ThresholdPercent *float64             `json:"threshold_percent,omitempty"`
	LookbackDays     int                  `json:"lookback_days,omitempty"`
	Holdings         []domain.Holding     `json:"holdings,omitempty"`
}

// PlanResult is a generated plan plus whether it reached the store
type PlanResult struct {
	StoredPlan
	Persisted bool `json:"persisted"`
}

// Service generates and tracks rebalancing plans
type Service struct {
	holdings         domain.HoldingsProvider
	history          domain.PriceHistoryProvider
	store            PlanStore
	metrics          *metrics.Metrics
	defaultThreshold float64
	now              func() time.Time
	log              zerolog.Logger
}

// NewService creates a new rebalancing service. history, store and m may be nil.
func NewService(
	holdings domain.HoldingsProvider,
	history domain.PriceHistoryProvider,
	store PlanStore,
	m *metrics.Metrics,
	defaultThreshold float64,
	log zerolog.Logger,
) *Service {
	if defaultThreshold <= 0 {
		defaultThreshold = DefaultThresholdPercent
	}
	return &Service{
		holdings:         holdings,
		history:          history,
		store:            store,
		metrics:          m,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
		log:              log.With().Str("service", "rebalancing").Logger(),
	}
}

// Plan validates the request, derives the target allocation, builds the plan
// and stores it as pending. A failed write is logged and reported through
// Persisted.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	done := utils.OperationTimer("rebalancing.plan", s.log)
	result, err := s.plan(ctx, req)
	s.metrics.ObserveEngineRun(metrics.EngineRebalancing, done(), err)
	return result, err
}

func (s *Service) plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if _, err := ParseStrategy(string(req.Strategy)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Strategy == StrategyCustom && len(req.CustomAllocation) == 0 {
		return nil, fmt.Errorf("%w: custom strategy needs custom_allocation", ErrInvalidRequest)
	}
	threshold := s.defaultThreshold
	if req.ThresholdPercent != nil {
		threshold = *req.ThresholdPercent
	}
	if threshold < 0 {
		return nil, fmt.Errorf("%w: threshold_percent must not be negative", ErrInvalidRequest)
	}

	holdings := req.Holdings
	if holdings == nil {
		if s.holdings == nil {
			return nil, fmt.Errorf("rebalancing service has no holdings provider")
		}
		loaded, err := s.holdings.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load holdings: %w", err)
		}
		holdings = loaded
	}
	if len(holdings) == 0 {
		return nil, domain.ErrNoHoldings
	}
	total := 0.0
	for _, h := range holdings {
		total += h.Value()
	}
	if !(total > 0) {
		return nil, domain.ErrNoPortfolioValue
	}

	now := s.now().UTC().Truncate(time.Second)
	target, err := s.targetAllocation(ctx, holdings, req, now)
	if err != nil {
		return nil, err
	}

	result := &PlanResult{
		StoredPlan: StoredPlan{
			ID:               uuid.New().String(),
			Strategy:         req.Strategy,
			Status:           StatusPending,
			ThresholdPercent: threshold,
			CreatedAt:        now,
			UpdatedAt:        now,
			Plan:             GeneratePlan(holdings, target, threshold, now),
		},
	}

	if err := utils.CheckEncodable(result.StoredPlan); err != nil {
		s.log.Warn().Err(err).Str("id", result.ID).Msg("Rebalancing plan is not JSON-encodable, not persisting")
	} else if s.store != nil {
		if err := s.store.Save(ctx, result.StoredPlan); err != nil {
			s.metrics.PersistFailed(metrics.EngineRebalancing)
			s.log.Warn().Err(err).Str("id", result.ID).Msg("Failed to persist rebalancing plan")
		} else {
			result.Persisted = true
		}
	}

	s.log.Info().
		Str("id", result.ID).
		Str("strategy", string(req.Strategy)).
		Int("holdings", len(holdings)).
		Float64("total_tax_liability", result.Plan.TotalTaxLiability).
		Msg("Rebalancing plan generated")

	return result, nil
}

func (s *Service) targetAllocation(ctx context.Context, holdings []domain.Holding, req PlanRequest, now time.Time) (domain.AllocationMap, error) {
	if !req.Strategy.NeedsHistory() {
		return GenerateTargetAllocation(holdings, req.Strategy, req.CustomAllocation)
	}
	if s.history == nil {
		return nil, ErrHistoryRequired
	}

	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	from := now.AddDate(0, 0, -lookback)

	closes := make(map[string][]float64, len(holdings))
	for _, h := range holdings {
		bars, err := s.history.GetBars(ctx, h.Symbol, from, now)
		if err != nil {
			return nil, fmt.Errorf("failed to load price history for %s: %w", h.Symbol, err)
		}
		series := domain.SymbolSeries{Symbol: h.Symbol, Bars: bars}
		closes[h.Symbol] = series.Closes()
	}
	return InverseVolatilityAllocation(holdings, closes), nil
}

// Get returns a stored plan
func (s *Service) Get(ctx context.Context, id string) (*StoredPlan, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// List returns stored plans, newest first. An empty status matches all.
func (s *Service) List(ctx context.Context, status PlanStatus, limit int) ([]StoredPlan, error) {
	if s.store == nil {
		return []StoredPlan{}, nil
	}
	return s.store.List(ctx, status, limit)
}

// UpdateStatus applies or rejects a pending plan
func (s *Service) UpdateStatus(ctx context.Context, id string, to PlanStatus) (*StoredPlan, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	at := s.now().UTC().Truncate(time.Second)
	if err := s.store.UpdateStatus(ctx, id, current.Status, to, at); err != nil {
		return nil, fmt.Errorf("failed to update plan %s: %w", id, err)
	}

	s.log.Info().Str("id", id).Str("from", string(current.Status)).Str("to", string(to)).Msg("Rebalancing plan status updated")

	current.Status = to
	current.UpdatedAt = at
	return current, nil
}
