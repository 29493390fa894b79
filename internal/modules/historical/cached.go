package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/rs/zerolog"
)

// BarStore reads and writes stored bars. HistoryRepository implements it.
type BarStore interface {
	domain.PriceHistoryProvider
	SaveBars(ctx context.Context, symbol string, bars []domain.PriceBar) error
}

// CachedHistory is a read-through domain.PriceHistoryProvider. Cache
// failures are logged and fall through to the underlying store. Writes go
// to the store and drop every cached range of the symbol.
type CachedHistory struct {
	store   BarStore
	cache   domain.PriceCache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewCachedHistory wraps store with cache
func NewCachedHistory(
	store BarStore,
	cache domain.PriceCache,
	ttl time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *CachedHistory {
	return &CachedHistory{
		store:   store,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		log:     log.With().Str("component", "cached_history").Logger(),
	}
}

// SymbolKeyPrefix is the prefix shared by every cached range of symbol
func SymbolKeyPrefix(symbol string) string {
	return fmt.Sprintf("bars:%s:", utils.NormalizeSymbol(symbol))
}

// CacheKey identifies a bar range in the cache
func CacheKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s%d:%d", SymbolKeyPrefix(symbol), from.Unix(), to.Unix())
}

// GetBars returns cached bars or loads them. Empty results are not cached.
func (c *CachedHistory) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	key := CacheKey(symbol, from, to)

	bars, found, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CacheLookup(metrics.CacheError)
		c.log.Warn().Err(err).Str("key", key).Msg("Price cache read failed")
	case found:
		c.metrics.CacheLookup(metrics.CacheHit)
		return bars, nil
	default:
		c.metrics.CacheLookup(metrics.CacheMiss)
	}

	bars, err = c.store.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return bars, nil
	}

	if err := c.cache.Set(ctx, key, bars, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Price cache write failed")
	}
	return bars, nil
}

// SaveBars writes bars to the store, then invalidates the symbol's cached
// ranges. An invalidation failure is logged; the write has already happened.
func (c *CachedHistory) SaveBars(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	if err := c.store.SaveBars(ctx, symbol, bars); err != nil {
		return err
	}
	c.Invalidate(ctx, symbol)
	return nil
}

// Invalidate drops every cached range of symbol
func (c *CachedHistory) Invalidate(ctx context.Context, symbol string) {
	prefix := SymbolKeyPrefix(symbol)
	if err := c.cache.DeletePrefix(ctx, prefix); err != nil {
		c.log.Warn().Err(err).Str("prefix", prefix).Msg("Price cache invalidation failed")
	}
}
