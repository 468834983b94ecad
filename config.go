package mailscout

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/optimode/mailscout/internal/disposable"
)

// Config carries everything the Service and its pipelines need.
// FromEnv populates it from MAILSCOUT_* environment variables;
// DefaultConfig is a usable starting point for library callers.
type Config struct {
	// APIKeys is the set of accepted keys. Every request must present
	// one of them; an empty set rejects all Service calls.
	APIKeys []string

	RateLimitPerMinute int
	CacheTTL           time.Duration
	RedisURL           string

	// Discovery
	DiscoveryConcurrency int
	ScrapeMaxPages       int
	ScrapeTimeout        time.Duration
	EnableWHOIS          bool
	EnableGitHub         bool
	EnableSocial         bool
	EnableThirdParty     bool
	GitHubToken          string
	HunterAPIKey         string

	// Validation
	DNSTimeout        time.Duration
	DNSCacheTTL       time.Duration
	SMTPTimeout       time.Duration
	SMTPHeloDomain    string
	SMTPMailFrom      string
	SMTPMaxMXHosts    int
	DisposableListURL string

	LogLevel slog.Level
}

func DefaultConfig() Config {
	return Config{
		RateLimitPerMinute:   10,
		CacheTTL:             time.Hour,
		DiscoveryConcurrency: 6,
		ScrapeMaxPages:       10,
		ScrapeTimeout:        10 * time.Second,
		EnableWHOIS:          true,
		EnableGitHub:         true,
		EnableSocial:         true,
		EnableThirdParty:     false,
		DNSTimeout:           5 * time.Second,
		DNSCacheTTL:          5 * time.Minute,
		SMTPTimeout:          10 * time.Second,
		SMTPHeloDomain:       "localhost",
		SMTPMailFrom:         "verify@localhost",
		SMTPMaxMXHosts:       3,
		DisposableListURL:    disposable.DefaultListURL,
		LogLevel:             slog.LevelInfo,
	}
}

// FromEnv builds a Config from MAILSCOUT_* environment variables,
// falling back to DefaultConfig values. Invalid values are logged and
// ignored rather than failing startup.
func FromEnv() Config {
	cfg := DefaultConfig()

	if keys := strings.TrimSpace(os.Getenv("MAILSCOUT_API_KEYS")); keys != "" {
		for _, key := range strings.Split(keys, ",") {
			if key = strings.TrimSpace(key); key != "" {
				cfg.APIKeys = append(cfg.APIKeys, key)
			}
		}
	}

	cfg.RedisURL = os.Getenv("MAILSCOUT_REDIS_URL")
	cfg.GitHubToken = os.Getenv("MAILSCOUT_GITHUB_TOKEN")
	cfg.HunterAPIKey = os.Getenv("MAILSCOUT_HUNTER_IO_API_KEY")

	envInt("MAILSCOUT_RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute)
	envInt("MAILSCOUT_DISCOVERY_CONCURRENCY", &cfg.DiscoveryConcurrency)
	envInt("MAILSCOUT_SCRAPE_MAX_PAGES", &cfg.ScrapeMaxPages)
	envInt("MAILSCOUT_SMTP_MAX_MX_HOSTS", &cfg.SMTPMaxMXHosts)

	envDuration("MAILSCOUT_CACHE_TTL", &cfg.CacheTTL)
	envDuration("MAILSCOUT_SCRAPE_TIMEOUT", &cfg.ScrapeTimeout)
	envDuration("MAILSCOUT_DNS_TIMEOUT", &cfg.DNSTimeout)
	envDuration("MAILSCOUT_SMTP_TIMEOUT", &cfg.SMTPTimeout)

	envBool("MAILSCOUT_ENABLE_WHOIS", &cfg.EnableWHOIS)
	envBool("MAILSCOUT_ENABLE_GITHUB", &cfg.EnableGitHub)
	envBool("MAILSCOUT_ENABLE_SOCIAL", &cfg.EnableSocial)
	envBool("MAILSCOUT_ENABLE_THIRD_PARTY", &cfg.EnableThirdParty)

	if v := os.Getenv("MAILSCOUT_SMTP_HELO_DOMAIN"); v != "" {
		cfg.SMTPHeloDomain = v
	}
	if v := os.Getenv("MAILSCOUT_SMTP_MAIL_FROM"); v != "" {
		cfg.SMTPMailFrom = v
	}
	if v := os.Getenv("MAILSCOUT_DISPOSABLE_LIST_URL"); v != "" {
		cfg.DisposableListURL = v
	}

	if v := os.Getenv("MAILSCOUT_LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = level
		} else {
			slog.Warn("invalid MAILSCOUT_LOG_LEVEL, using default", "value", v)
		}
	}

	return cfg
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "name", name, "value", v)
		return
	}
	*dst = n
}

func envBool(name string, dst *bool) {
	switch os.Getenv(name) {
	case "":
	case "true", "1", "yes":
		*dst = true
	default:
		*dst = false
	}
}

func envDuration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration env var, using default", "name", name, "value", v)
		return
	}
	*dst = d
}
