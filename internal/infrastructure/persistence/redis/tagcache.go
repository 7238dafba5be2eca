// Package redis implements the Redis caching layer for the rankings service.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// TAG CACHE
// ══════════════════════════════════════════════════════════════════════════════

// TagCache is a JSON value cache with tag-based invalidation, backing the
// leaderboard query service.
//
// Every cached key is registered in a Redis set per tag. Invalidating a tag
// deletes all member keys and the set itself. Tag sets outlive their member
// keys by a margin so an expired entry never dodges invalidation bookkeeping.
type TagCache struct {
	cache *Cache
	ttl   time.Duration
}

// tagTTLMargin keeps tag sets alive longer than their member keys.
const tagTTLMargin = 10 * time.Minute

// NewTagCache creates a TagCache over an established Redis connection.
func NewTagCache(cache *Cache, ttl time.Duration) *TagCache {
	return &TagCache{cache: cache, ttl: ttl}
}

// Get retrieves a cached value into dest. Returns ErrCacheMiss on absence.
func (t *TagCache) Get(ctx context.Context, key string, dest interface{}) error {
	return t.cache.Get(ctx, key, dest)
}

// Set stores a value and registers the key under every given tag.
// The value write and the tag registrations go out in one pipeline.
func (t *TagCache) Set(ctx context.Context, key string, value interface{}, tags ...string) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	pipe := t.cache.client.Pipeline()
	pipe.Set(ctx, key, data, t.ttl)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		setKey := tagSetKey(tag)
		pipe.SAdd(ctx, setKey, key)
		pipe.Expire(ctx, setKey, t.ttl+tagTTLMargin)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set tagged cache entry: %w", err)
	}
	return nil
}

// InvalidateTag deletes every key registered under the tag, then the tag set.
func (t *TagCache) InvalidateTag(ctx context.Context, tag string) error {
	if tag == "" {
		return nil
	}
	setKey := tagSetKey(tag)

	keys, err := t.cache.client.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to read tag set: %w", err)
	}

	keys = append(keys, setKey)
	if err := t.cache.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tag %q: %w", tag, err)
	}
	return nil
}

func tagSetKey(tag string) string {
	return "tag:" + tag
}

// ─────────────────────────────────────────────────────────────────────────────
// Key Building
// ─────────────────────────────────────────────────────────────────────────────

// PageKey builds a deterministic cache key from normalized leaderboard query
// parameters. Parameter order in the incoming request must not affect the
// key, so components are sorted before joining.
func PageKey(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("leaderboard:page")
	for _, name := range names {
		val := params[name]
		if val == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(val))
	}
	return b.String()
}

// MaxFieldsKey is the cache key for the leaderboard maxima document.
const MaxFieldsKey = "leaderboard:maxfields"

// ─────────────────────────────────────────────────────────────────────────────
// Noop Cache
// ─────────────────────────────────────────────────────────────────────────────

// NoopCache satisfies the leaderboard cache contract without storing
// anything. Used when Redis is disabled in development.
type NoopCache struct{}

// NewNoopCache creates a NoopCache.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always misses.
func (NoopCache) Get(ctx context.Context, key string, dest interface{}) error {
	return ErrCacheMiss
}

// Set discards the value.
func (NoopCache) Set(ctx context.Context, key string, value interface{}, tags ...string) error {
	return nil
}

// InvalidateTag does nothing.
func (NoopCache) InvalidateTag(ctx context.Context, tag string) error {
	return nil
}
