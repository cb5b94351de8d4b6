// internal/services/rate_cache.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// RateCache stores base->quote exchange rates for a bounded time.
type RateCache interface {
	Get(ctx context.Context, base, quote string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, base, quote string, rate decimal.Decimal, ttl time.Duration) error
}

func rateCacheKey(base, quote string) string {
	return fmt.Sprintf("gemstore:fx:%s:%s", strings.ToUpper(base), strings.ToUpper(quote))
}

type RedisRateCache struct {
	client *redis.Client
}

func NewRedisRateCache(client *redis.Client) *RedisRateCache {
	return &RedisRateCache{client: client}
}

func (c *RedisRateCache) Get(ctx context.Context, base, quote string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, rateCacheKey(base, quote)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis get rate: %w", err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode cached rate %q: %w", raw, err)
	}
	return rate, true, nil
}

func (c *RedisRateCache) Set(ctx context.Context, base, quote string, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, rateCacheKey(base, quote), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set rate: %w", err)
	}
	return nil
}

type cachedRate struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// MemoryRateCache is the single-process fallback used when Redis is disabled.
type MemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]cachedRate
	now     func() time.Time
}

func NewMemoryRateCache() *MemoryRateCache {
	return &MemoryRateCache{
		entries: make(map[string]cachedRate),
		now:     time.Now,
	}
}

func (c *MemoryRateCache) Get(_ context.Context, base, quote string) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[rateCacheKey(base, quote)]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return decimal.Zero, false, nil
	}
	return entry.rate, true, nil
}

func (c *MemoryRateCache) Set(_ context.Context, base, quote string, rate decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[rateCacheKey(base, quote)] = cachedRate{rate: rate, expiresAt: c.now().Add(ttl)}
	return nil
}
