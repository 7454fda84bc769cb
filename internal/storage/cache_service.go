package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/portfolio-dashboard/internal/models"
)

// CacheKeyType represents the namespace of a cache key
type CacheKeyType string

const (
	// CacheKeyAnalytics is for computed analytics and health payloads
	CacheKeyAnalytics CacheKeyType = "analytics"
	// CacheKeyPrice is for USD token prices
	CacheKeyPrice CacheKeyType = "price"
)

// GenerateCacheKey builds <type>:<param1>:<param2>:...
func GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	return strings.Join(append([]string{string(keyType)}, params...), ":")
}

// AnalyticsCache caches computed payloads tagged with the snapshot they were computed from.
// An entry is stale once a newer snapshot exists or after ttl.
type AnalyticsCache struct {
	redis *RedisCache
	ttl   time.Duration
	now   func() time.Time
}

// NewAnalyticsCache creates a new analytics cache
func NewAnalyticsCache(redis *RedisCache, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{redis: redis, ttl: ttl, now: time.Now}
}

type analyticsEntry struct {
	SnapshotID string          `json:"snapshotId"`
	StoredAt   time.Time       `json:"storedAt"`
	Data       json.RawMessage `json:"data"`
}

// AnalyticsKey returns the key for a named payload and range
func AnalyticsKey(name, timeRange string) string {
	if timeRange == "" {
		timeRange = "ALL"
	}
	return GenerateCacheKey(CacheKeyAnalytics, name, timeRange)
}

// Get decodes the cached payload into dest when it was computed from snapshotID and is still
// fresh. It reports whether dest was filled.
func (c *AnalyticsCache) Get(ctx context.Context, key, snapshotID string, dest interface{}) (bool, error) {
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if IsMiss(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	var entry analyticsEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	if entry.SnapshotID != snapshotID || c.now().Sub(entry.StoredAt) > c.ttl {
		_ = c.redis.Del(ctx, key) // nolint:errcheck // stale entry, best effort
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// Set stores value tagged with snapshotID
func (c *AnalyticsCache) Set(ctx context.Context, key, snapshotID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	entry, err := json.Marshal(analyticsEntry{SnapshotID: snapshotID, StoredAt: c.now(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.redis.Set(ctx, key, entry, c.ttl)
}

// InvalidateAll drops every analytics entry
func (c *AnalyticsCache) InvalidateAll(ctx context.Context) error {
	_, err := c.redis.DeletePattern(ctx, GenerateCacheKey(CacheKeyAnalytics, "*"))
	return err
}

// PriceCache keeps the last known USD price per symbol. Entries are kept after they go
// stale so a failed fetch can fall back to them.
type PriceCache struct {
	redis *RedisCache
	ttl   time.Duration
	now   func() time.Time
}

// NewPriceCache creates a new price cache where quotes younger than ttl are fresh
func NewPriceCache(redis *RedisCache, ttl time.Duration) *PriceCache {
	return &PriceCache{redis: redis, ttl: ttl, now: time.Now}
}

// PriceKey returns the key for a symbol's price
func PriceKey(symbol string) string {
	return GenerateCacheKey(CacheKeyPrice, symbol)
}

// Lookup returns the cached quote for each symbol found, split into fresh and stale
func (c *PriceCache) Lookup(ctx context.Context, symbols []string) (fresh, stale map[string]models.PriceQuote, err error) {
	fresh = make(map[string]models.PriceQuote)
	stale = make(map[string]models.PriceQuote)
	if len(symbols) == 0 {
		return fresh, stale, nil
	}

	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = PriceKey(s)
	}
	values, err := c.redis.MGet(ctx, keys...)
	if err != nil {
		return fresh, stale, fmt.Errorf("failed to get prices from cache: %w", err)
	}

	now := c.now()
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var quote models.PriceQuote
		if err := json.Unmarshal([]byte(raw), &quote); err != nil {
			continue
		}
		if now.Sub(quote.FetchedAt) < c.ttl {
			fresh[symbols[i]] = quote
		} else {
			stale[symbols[i]] = quote
		}
	}
	return fresh, stale, nil
}

// Store saves quotes without expiry
func (c *PriceCache) Store(ctx context.Context, quotes []models.PriceQuote) error {
	for _, q := range quotes {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("failed to marshal price: %w", err)
		}
		if err := c.redis.Set(ctx, PriceKey(q.Symbol), data, 0); err != nil {
			return fmt.Errorf("failed to store price for %s: %w", q.Symbol, err)
		}
	}
	return nil
}
