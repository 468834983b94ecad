// Package ratelimit implements a per-identity sliding-window admission
// check. An identity is whatever the caller keys requests by (API
// credential or network origin). State is process-local.
package ratelimit

import (
	"sync"
	"time"
)

const window = time.Minute

// Limiter tracks the instants of recent requests per identity and admits
// a request only while fewer than PerMinute requests fall inside the
// trailing 60-second window.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	hits      map[string][]time.Time
	now       func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting perMinute requests per identity.
func New(perMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		perMinute: perMinute,
		hits:      make(map[string][]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow prunes entries older than the window, rejects when the identity
// is at or above the ceiling, and otherwise records the current instant
// and admits.
func (l *Limiter) Allow(identity string) bool {
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[identity][:0]
	for _, at := range l.hits[identity] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if len(recent) >= l.perMinute {
		l.hits[identity] = recent
		return false
	}

	l.hits[identity] = append(recent, now)
	return true
}

// StartJanitor launches a goroutine that periodically drops identities
// with no requests inside the window, so the map does not grow with
// every credential ever seen. Stop by cancelling the context.
func (l *Limiter) StartJanitor(ctx interface{ Done() <-chan struct{} }, every time.Duration) {
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.cleanup()
			}
		}
	}()
}

func (l *Limiter) cleanup() {
	cutoff := l.now().Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, at := range l.hits {
		if len(at) == 0 || !at[len(at)-1].After(cutoff) {
			delete(l.hits, id)
		}
	}
}
