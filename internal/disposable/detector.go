// Package disposable detects addresses from throwaway email domains.
// The domain set is seeded from a bundled list and refreshed from a
// remote list on a time interval; a failed refresh keeps the previous
// set so detection never regresses to empty.
package disposable

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/optimode/mailscout/internal/parse"
)

// DefaultListURL is the public disposable-domain list used when no
// override is configured.
const DefaultListURL = "https://raw.githubusercontent.com/disposable-email-domains/disposable-email-domains/master/disposable_email_blocklist.conf"

const defaultRefreshInterval = 24 * time.Hour

//go:embed list.txt
var bundledList string

// Detector answers whether an address belongs to a known disposable
// domain. Safe for concurrent use.
type Detector struct {
	mu          sync.RWMutex
	domains     map[string]struct{}
	lastRefresh time.Time

	listURL  string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithListURL overrides the remote list location.
func WithListURL(url string) Option {
	return func(d *Detector) { d.listURL = url }
}

// WithRefreshInterval overrides the 24h refresh interval.
func WithRefreshInterval(interval time.Duration) Option {
	return func(d *Detector) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithHTTPClient overrides the HTTP client (for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(d *Detector) { d.client = c }
}

// WithLogger sets the logger for refresh failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New creates a Detector seeded from the bundled fallback list.
func New(opts ...Option) *Detector {
	d := &Detector{
		domains:     parseList(strings.NewReader(bundledList)),
		lastRefresh: time.Now(), // bundled seed counts as fresh
		listURL:     DefaultListURL,
		interval:    defaultRefreshInterval,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsDisposable reports whether the address's domain part is in the
// disposable set. Case-insensitive; refreshes the set first when it has
// gone stale.
func (d *Detector) IsDisposable(ctx context.Context, email string) bool {
	d.maybeRefresh(ctx)

	domain := parse.Domain(email)
	if domain == "" {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.domains[domain]
	return ok
}

// Refresh fetches the remote list and replaces the current set. On any
// failure the previous set is kept and the error returned.
func (d *Detector) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.listURL, nil)
	if err != nil {
		return fmt.Errorf("disposable: build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("disposable: fetch list: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("disposable: fetch list: unexpected status %d", resp.StatusCode)
	}

	domains := parseList(resp.Body)
	if len(domains) == 0 {
		return fmt.Errorf("disposable: remote list is empty")
	}

	d.mu.Lock()
	d.domains = domains
	d.lastRefresh = d.now()
	d.mu.Unlock()

	return nil
}

// Len returns the current set size (for diagnostics and tests).
func (d *Detector) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.domains)
}

// maybeRefresh refreshes when the interval has elapsed. The staleness
// window advances even on failure so an unreachable list host is retried
// once per interval rather than on every lookup.
func (d *Detector) maybeRefresh(ctx context.Context) {
	d.mu.Lock()
	stale := d.now().Sub(d.lastRefresh) >= d.interval
	if stale {
		d.lastRefresh = d.now()
	}
	d.mu.Unlock()

	if !stale {
		return
	}

	if err := d.Refresh(ctx); err != nil {
		d.logger.Warn("disposable: refresh failed, keeping previous set", "error", err)
	}
}

// parseList reads one domain per line, ignoring blanks and # comments.
func parseList(r io.Reader) map[string]struct{} {
	domains := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains[strings.ToLower(line)] = struct{}{}
	}
	return domains
}
