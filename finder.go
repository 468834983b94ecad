package mailscout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/optimode/mailscout/internal/cache"
	"github.com/optimode/mailscout/provider"
	"github.com/optimode/mailscout/types"
)

// Finder is the discovery orchestrator: it fans a domain out to the
// requested providers concurrently, merges their candidates and caches
// the snapshot.
type Finder struct {
	providers      map[string]provider.Provider
	store          *cache.Cache
	cacheTTL       time.Duration
	maxConcurrency int
	logger         *slog.Logger
}

// NewFinder creates a discovery orchestrator over the given providers.
// maxConcurrency <= 0 means one goroutine per provider.
func NewFinder(providers []provider.Provider, store *cache.Cache, cacheTTL time.Duration, maxConcurrency int, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]provider.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Finder{
		providers:      byName,
		store:          store,
		cacheTTL:       cacheTTL,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// DefaultMethods is the method set used when a discovery request names
// none. Third-party lookups are opt-in only.
var DefaultMethods = []string{
	provider.MethodScraping,
	provider.MethodPatterns,
	provider.MethodWHOIS,
	provider.MethodGitHub,
	provider.MethodSocial,
}

// DefaultProviders builds the full provider set from the configuration.
func DefaultProviders(cfg Config, logger *slog.Logger) []provider.Provider {
	return []provider.Provider{
		provider.NewPatternProvider(),
		provider.NewScrapingProvider(cfg.ScrapeMaxPages, cfg.ScrapeTimeout, logger),
		provider.NewWHOISProvider(cfg.EnableWHOIS, logger),
		provider.NewGitHubProvider(cfg.GitHubToken, cfg.EnableGitHub, logger),
		provider.NewSocialProvider(cfg.EnableSocial, logger),
		provider.NewHunterProvider(cfg.HunterAPIKey, cfg.EnableThirdParty, logger),
	}
}

// Discover finds candidate addresses for the domain using the requested
// methods. Within the cache TTL, identical (domain, methods) requests
// return the stored snapshot with Cached set.
func (f *Finder) Discover(ctx context.Context, domain string, methods []string) (*DiscoveryResult, error) {
	key := discoveryKey(domain, methods)

	if data, ok := f.store.Get(ctx, key); ok {
		var res DiscoveryResult
		if err := json.Unmarshal(data, &res); err == nil {
			res.Cached = true
			return &res, nil
		}
		f.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	var selected []provider.Provider
	var used []string
	for _, method := range methods {
		p, ok := f.providers[method]
		if !ok || !p.Available() {
			continue
		}
		selected = append(selected, p)
		used = append(used, method)
	}
	if len(selected) == 0 {
		return nil, ErrNoAvailableMethod
	}

	// One result slot per provider: a failing provider contributes
	// zero candidates and never aborts the batch.
	results := make([][]types.EmailCandidate, len(selected))
	var g errgroup.Group
	if f.maxConcurrency > 0 {
		g.SetLimit(f.maxConcurrency)
	}
	for i, p := range selected {
		i, p := i, p
		g.Go(func() error {
			candidates, err := p.Discover(ctx, domain)
			if err != nil {
				f.logger.Warn("discovery provider failed",
					"provider", p.Name(), "domain", domain, "error", err)
				return nil
			}
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	merged := mergeCandidates(results)
	res := &DiscoveryResult{
		Domain:      domain,
		Emails:      merged,
		TotalFound:  len(merged),
		Cached:      false,
		MethodsUsed: used,
	}

	if data, err := json.Marshal(res); err == nil {
		f.store.Set(ctx, key, data, f.cacheTTL)
	}

	f.logger.Info("discovery complete",
		"domain", domain, "methods", used, "found", len(merged))
	return res, nil
}

// mergeCandidates deduplicates by address in first-seen order; a
// strictly greater confidence replaces the kept entry.
func mergeCandidates(results [][]types.EmailCandidate) []types.EmailCandidate {
	index := make(map[string]int)
	var out []types.EmailCandidate
	for _, list := range results {
		for _, c := range list {
			if i, ok := index[c.Email]; ok {
				if c.Confidence > out[i].Confidence {
					out[i] = c
				}
				continue
			}
			index[c.Email] = len(out)
			out = append(out, c)
		}
	}
	return out
}

// discoveryKey is stable under method reordering.
func discoveryKey(domain string, methods []string) string {
	sorted := append([]string(nil), methods...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.ToLower(domain) + "|" + strings.Join(sorted, ",")))
	return "discovery:" + hex.EncodeToString(sum[:])
}
