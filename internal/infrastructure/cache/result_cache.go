package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/loader"
)

var (
	_ analytics.ResultCache = (*ResultCache)(nil)
	_ loader.Invalidator    = (*ResultCache)(nil)
)

// DefaultPrefix namespaces every key the cache writes.
const DefaultPrefix = "retaildw:q"

// ResultCache stores analytics results in Redis.
//
// Entries live under prefix:<generation>:<hash>. Invalidate bumps the
// generation, so results cached before a load become unreachable at once
// and expire on their own TTL.
type ResultCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewResultCache creates a result cache. An empty prefix uses DefaultPrefix.
func NewResultCache(client redis.Cmdable, prefix string, ttl time.Duration) *ResultCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &ResultCache{client: client, prefix: prefix, ttl: ttl}
}

// Get loads the result cached under key into dst. The returned generation
// is the one a following Set for the same query must write under.
func (c *ResultCache) Get(ctx context.Context, key string, dst any) (analytics.Generation, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}

	data, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("get cached result: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return gen, false, fmt.Errorf("decode cached result: %w", err)
	}
	return gen, true, nil
}

// Set caches value under key in generation gen for the configured TTL.
// A value read under a generation that a load has since retired lands in
// the retired namespace and is never served.
func (c *ResultCache) Set(ctx context.Context, gen analytics.Generation, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, c.entryKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached result: %w", err)
	}
	return nil
}

// Invalidate drops every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

func (c *ResultCache) generation(ctx context.Context) (analytics.Generation, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cache generation: %w", err)
	}
	return analytics.Generation(gen), nil
}

func (c *ResultCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *ResultCache) entryKey(gen analytics.Generation, key string) string {
	return fmt.Sprintf("%s:%d:%016x", c.prefix, gen, xxhash.Sum64String(key))
}
