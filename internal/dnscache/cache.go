// Package dnscache provides a thread-safe, TTL-based cache for the DNS
// lookups the validation pipeline performs (A records to confirm a domain
// exists, MX records to find its mail exchangers), with singleflight
// deduplication for concurrent requests to the same domain.
package dnscache

import (
	"context"
	"net"
	"sync"
	"time"
)

// Resolver is the subset of net.Resolver the cache needs. Injectable for
// testing.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Cache is a thread-safe DNS lookup cache. Concurrent lookups for the
// same key are deduplicated: only one actual DNS query is performed, and
// all waiters receive the result. MX results are shared between the DNS
// stage and the SMTP prober so a validation performs each query at most
// once.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]*entry
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	resolver      Resolver
}

type entry struct {
	mx      []*net.MX
	hosts   []string
	err     error
	expires time.Time
	done    chan struct{} // closed when lookup is complete
}

// New creates a DNS cache with the given lookup timeout and cache TTL.
func New(lookupTimeout, cacheTTL time.Duration) *Cache {
	return &Cache{
		entries:       make(map[string]*entry),
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		resolver:      &net.Resolver{},
	}
}

// NewWithResolver creates a DNS cache with a custom resolver (for testing).
func NewWithResolver(lookupTimeout, cacheTTL time.Duration, r Resolver) *Cache {
	c := New(lookupTimeout, cacheTTL)
	c.resolver = r
	return c
}

// LookupMX returns MX records for the domain, in resolver order, using
// the cache when possible.
func (c *Cache) LookupMX(domain string) ([]*net.MX, error) {
	e := c.lookup("mx:"+domain, func(ctx context.Context, e *entry) {
		e.mx, e.err = c.resolver.LookupMX(ctx, domain)
	})
	return copyMX(e.mx), e.err
}

// LookupHost returns the domain's address records, using the cache when
// possible. The DNS stage uses this to confirm the domain exists before
// asking for MX records.
func (c *Cache) LookupHost(domain string) ([]string, error) {
	e := c.lookup("host:"+domain, func(ctx context.Context, e *entry) {
		e.hosts, e.err = c.resolver.LookupHost(ctx, domain)
	})
	return append([]string(nil), e.hosts...), e.err
}

// lookup implements the singleflight-with-TTL pattern shared by both
// query kinds.
func (c *Cache) lookup(key string, fn func(context.Context, *entry)) *entry {
	c.mu.Lock()

	if e, ok := c.entries[key]; ok {
		select {
		case <-e.done:
			// Completed entry - check if still valid
			if time.Now().Before(e.expires) {
				c.mu.Unlock()
				return e
			}
			// Expired, fall through to refresh
		default:
			// Lookup in progress - wait for it
			c.mu.Unlock()
			<-e.done
			return e
		}
	}

	// Start new lookup
	e := &entry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.lookupTimeout)
	defer cancel()

	fn(ctx, e)
	e.expires = time.Now().Add(c.cacheTTL)
	close(e.done)

	return e
}

// Len returns the number of entries in the cache (for diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyMX returns a deep copy of MX records to prevent callers from
// mutating cached data.
func copyMX(records []*net.MX) []*net.MX {
	if records == nil {
		return nil
	}
	out := make([]*net.MX, len(records))
	for i, r := range records {
		cp := *r
		out[i] = &cp
	}
	return out
}
