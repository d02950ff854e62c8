package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/travel-aggregator/internal/travel"
)

const DefaultTTL = 10 * time.Minute

// Cache stores aggregated results in Redis, keyed by the normalized search query.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache. A non-positive ttl falls back to DefaultTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// key returns the Redis key for the given query.
func key(q travel.SearchQuery) string {
	return "aggregate:" + q.CacheKey()
}

// Get retrieves a cached result.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, q travel.SearchQuery) (*travel.AggregatedResult, error) {
	val, err := c.client.Get(ctx, key(q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for %s: %w", q.Location, err)
	}

	var res travel.AggregatedResult
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, fmt.Errorf("unmarshaling cached result for %s: %w", q.Location, err)
	}

	return &res, nil
}

// Set stores a result with the configured TTL. Partial results are not cached.
func (c *Cache) Set(ctx context.Context, q travel.SearchQuery, res *travel.AggregatedResult) error {
	if res == nil || !res.Complete() {
		return nil
	}

	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result for %s: %w", q.Location, err)
	}

	if err := c.client.Set(ctx, key(q), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", q.Location, err)
	}

	return nil
}

// Delete removes the cached entry for the given query.
func (c *Cache) Delete(ctx context.Context, q travel.SearchQuery) error {
	if err := c.client.Del(ctx, key(q)).Err(); err != nil {
		return fmt.Errorf("cache delete for %s: %w", q.Location, err)
	}
	return nil
}
