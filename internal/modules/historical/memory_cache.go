package historical

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
)

// sweepInterval bounds how often Set scans for expired entries
const sweepInterval = time.Minute

type cacheEntry struct {
	bars    []domain.PriceBar
	expires time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryCache is a process-local domain.PriceCache used when Redis is not
// configured. Expired entries are dropped on read and swept on write.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached bars
func (c *MemoryCache) Get(ctx context.Context, key string) ([]domain.PriceBar, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	out := make([]domain.PriceBar, len(e.bars))
	copy(out, e.bars)
	return out, true, nil
}

// Set stores a copy of bars. A non-positive ttl never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, bars []domain.PriceBar, ttl time.Duration) error {
	stored := make([]domain.PriceBar, len(bars))
	copy(stored, bars)

	now := c.now()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.Before(c.nextSweep) {
		c.sweep(now)
		c.nextSweep = now.Add(sweepInterval)
	}
	c.entries[key] = cacheEntry{bars: stored, expires: expires}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep must be called with mu held
func (c *MemoryCache) sweep(now time.Time) {
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}
