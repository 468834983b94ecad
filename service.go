package mailscout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/optimode/mailscout/internal/cache"
	"github.com/optimode/mailscout/internal/ratelimit"
	"github.com/optimode/mailscout/types"
)

// DiscoveryRequest mirrors the external discovery interface.
type DiscoveryRequest struct {
	Domain   string   `json:"domain"`
	Methods  []string `json:"methods"`
	Detailed bool     `json:"detailed"`
}

// ValidationRequest mirrors the external validation interface.
type ValidationRequest struct {
	Email    string      `json:"email"`
	Level    types.Level `json:"validation_level"`
	Detailed bool        `json:"detailed"`
}

// Service wraps the two pipelines with API-key authentication and
// per-key rate limiting. It is the seam an HTTP router would call;
// no routing is included here.
type Service struct {
	finder    *Finder
	validator *Validator
	limiter   *ratelimit.Limiter
	apiKeys   map[string]struct{}
	rdb       *redis.Client
	logger    *slog.Logger
}

// NewService builds the full stack from the configuration: shared
// result cache (Redis-backed when RedisURL is set), rate limiter, all
// providers, both pipelines.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		cacheOpts = append(cacheOpts, cache.WithRedis(rdb))
	}
	store := cache.New(cfg.CacheTTL, cacheOpts...)

	apiKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		apiKeys[key] = struct{}{}
	}

	return &Service{
		finder: NewFinder(DefaultProviders(cfg, logger), store,
			cfg.CacheTTL, cfg.DiscoveryConcurrency, logger),
		validator: NewValidator(cfg, store, logger),
		limiter:   ratelimit.New(cfg.RateLimitPerMinute),
		apiKeys:   apiKeys,
		rdb:       rdb,
		logger:    logger,
	}, nil
}

// Close releases the SMTP pool and the Redis connection.
func (s *Service) Close() error {
	err := s.validator.Close()
	if s.rdb != nil {
		if cerr := s.rdb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// DiscoverEmails authenticates and rate-limits the caller, then runs
// discovery. Failed calls map onto the API error taxonomy via
// AsAPIError.
func (s *Service) DiscoverEmails(ctx context.Context, apiKey string, req DiscoveryRequest) (*DiscoveryResult, error) {
	if err := s.admit(apiKey); err != nil {
		return nil, err
	}
	methods := req.Methods
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	return s.finder.Discover(ctx, req.Domain, methods)
}

// ValidateEmail authenticates and rate-limits the caller, then runs the
// validation pipeline. Without the detailed flag the per-stage outcomes
// are omitted from the response.
func (s *Service) ValidateEmail(ctx context.Context, apiKey string, req ValidationRequest) (*ValidationResult, error) {
	if err := s.admit(apiKey); err != nil {
		return nil, err
	}

	res, err := s.validator.Validate(ctx, req.Email, req.Level)
	if err != nil {
		return nil, err
	}
	if !req.Detailed {
		summary := *res
		summary.ValidationResults = nil
		return &summary, nil
	}
	return res, nil
}

// admit rejects before any pipeline work: unknown key first, then the
// key's rate budget.
func (s *Service) admit(apiKey string) error {
	if _, ok := s.apiKeys[apiKey]; !ok {
		return ErrUnauthorized
	}
	if !s.limiter.Allow(apiKey) {
		return ErrRateLimited
	}
	return nil
}
