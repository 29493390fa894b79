// Package redis provides a Redis-backed price bar cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultKeyPrefix = "quantcore:"

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// PriceCache implements domain.PriceCache on Redis. Bars are stored
// msgpack-encoded. Calls go through a circuit breaker so a dead Redis costs
// one fast failure per call instead of a network timeout.
type PriceCache struct {
	client  goredis.Cmdable
	breaker *gobreaker.CircuitBreaker
	prefix  string
	log     zerolog.Logger
}

// New connects to Redis and verifies the connection
func New(cfg Config, log zerolog.Logger) (*PriceCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewWithClient(client, log), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client goredis.Cmdable, log zerolog.Logger) *PriceCache {
	l := log.With().Str("component", "redis_price_cache").Logger()
	return &PriceCache{
		client:  client,
		breaker: newBreaker(l),
		prefix:  defaultKeyPrefix,
		log:     l,
	}
}

func newBreaker(log zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "redis_price_cache",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
}

// Get returns cached bars. A missing key is a miss, not an error.
func (c *PriceCache) Get(ctx context.Context, key string) ([]domain.PriceBar, bool, error) {
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		val, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	payload, _ := raw.([]byte)
	if payload == nil {
		return nil, false, nil
	}

	var bars []domain.PriceBar
	if err := msgpack.Unmarshal(payload, &bars); err != nil {
		return nil, false, fmt.Errorf("decode cached bars %s: %w", key, err)
	}
	return bars, true, nil
}

// Set stores bars with a TTL
func (c *PriceCache) Set(ctx context.Context, key string, bars []domain.PriceBar, ttl time.Duration) error {
	payload, err := msgpack.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encode bars %s: %w", key, err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *PriceCache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := c.prefix + globEscaper.Replace(prefix) + "*"
	_, err := c.breaker.Execute(func() (interface{}, error) {
		keys, err := c.client.Keys(ctx, pattern).Result()
		if err != nil || len(keys) == 0 {
			return nil, err
		}
		return nil, c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("redis delete %s*: %w", prefix, err)
	}
	return nil
}

// State reports the breaker state for status endpoints
func (c *PriceCache) State() string {
	return c.breaker.State().String()
}

// Close releases the underlying client connection pool
func (c *PriceCache) Close() error {
	if closer, ok := c.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
