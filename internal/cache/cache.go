// Package cache is the shared TTL key-value store behind the discovery
// and validation pipelines. The primary tier is Redis; every write is
// mirrored into an in-process map so a read observes the most recent
// write within one process even when Redis is unreachable or not
// configured at all.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSweepThreshold = 1000

// Cache is a two-tier TTL store. The zero value is not usable; construct
// with New.
type Cache struct {
	rdb *redis.Client // nil when no durable tier is configured

	mu  sync.Mutex
	mem map[string]memEntry

	defaultTTL     time.Duration
	sweepThreshold int
	logger         *slog.Logger

	now func() time.Time // injectable for tests
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithRedis sets the durable primary tier. A nil client leaves the cache
// purely in-process.
func WithRedis(rdb *redis.Client) Option {
	return func(c *Cache) { c.rdb = rdb }
}

// WithSweepThreshold overrides the in-process entry count that triggers
// an eager sweep of expired entries.
func WithSweepThreshold(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.sweepThreshold = n
		}
	}
}

// WithLogger sets the logger used for durable-tier failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache with the given default TTL.
func New(defaultTTL time.Duration, opts ...Option) *Cache {
	c := &Cache{
		mem:            make(map[string]memEntry),
		defaultTTL:     defaultTTL,
		sweepThreshold: defaultSweepThreshold,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key, or ok=false when absent or
// expired. Redis is consulted first; any Redis error falls back to the
// in-process mirror. Expired in-process entries are deleted lazily here.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb != nil {
		val, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return val, true
		}
		if err != redis.Nil {
			c.logger.Warn("cache: redis get failed, using in-process tier", "key", key, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.mem[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.mem, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl (the default TTL when ttl <= 0).
// The write is attempted against Redis and, regardless of outcome,
// mirrored in-process.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
			c.logger.Warn("cache: redis set failed, in-process tier only", "key", key, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.mem[key] = memEntry{value: value, expires: c.now().Add(ttl)}
	if len(c.mem) > c.sweepThreshold {
		c.sweepLocked()
	}
}

// Delete removes key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("cache: redis delete failed", "key", key, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.mem, key)
}

// Len returns the in-process entry count (for diagnostics and tests).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}

// sweepLocked removes expired in-process entries. Caller holds c.mu.
func (c *Cache) sweepLocked() {
	now := c.now()
	for k, e := range c.mem {
		if !now.Before(e.expires) {
			delete(c.mem, k)
		}
	}
}
