package domain

import (
	"context"
	"time"
)

// HoldingsProvider supplies freshly priced holdings.
type HoldingsProvider interface {
	GetAll(ctx context.Context) ([]Holding, error)
}

// PriceHistoryProvider supplies ascending, de-duplicated bars for a symbol
// within [from, to].
type PriceHistoryProvider interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
}

// PriceCache stores bar slices under an opaque key.
// Get reports found=false on a miss; err is reserved for cache failures.
// DeletePrefix drops every entry whose key starts with prefix.
type PriceCache interface {
	Get(ctx context.Context, key string) (bars []PriceBar, found bool, err error)
	Set(ctx context.Context, key string, bars []PriceBar, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ResultArchive stores a serialized result outside the primary database and
// returns its location.
type ResultArchive interface {
	Archive(ctx context.Context, kind, id string, payload []byte) (string, error)
}
