package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/optimode/mailscout"
)

var (
	mode     string
	domain   string
	email    string
	level    string
	methods  string
	detailed bool
	apiKey   string
)

func init() {
	flag.StringVar(&mode, "mode", "validate", "discover or validate")
	flag.StringVar(&domain, "domain", "", "domain to discover emails for")
	flag.StringVar(&email, "email", "", "email address to validate")
	flag.StringVar(&level, "level", "", "validation level: basic or advanced")
	flag.StringVar(&methods, "methods", "", "comma-separated discovery methods")
	flag.BoolVar(&detailed, "detailed", false, "include per-stage results and metadata")
	flag.StringVar(&apiKey, "key", "", "API key (defaults to MAILSCOUT_API_KEY)")
	flag.Parse()
}

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := mailscout.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if apiKey == "" {
		apiKey = os.Getenv("MAILSCOUT_API_KEY")
	}
	if apiKey != "" && len(cfg.APIKeys) == 0 {
		// Single-user runs need no key list in the environment.
		cfg.APIKeys = []string{apiKey}
	}

	svc, err := mailscout.NewService(cfg, logger)
	if err != nil {
		logger.Error("service init failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out any
	switch mode {
	case "discover":
		if domain == "" {
			logger.Error("-domain is required in discover mode")
			os.Exit(2)
		}
		out, err = svc.DiscoverEmails(ctx, apiKey, mailscout.DiscoveryRequest{
			Domain:   domain,
			Methods:  splitMethods(methods),
			Detailed: detailed,
		})
	case "validate":
		if email == "" {
			logger.Error("-email is required in validate mode")
			os.Exit(2)
		}
		out, err = svc.ValidateEmail(ctx, apiKey, mailscout.ValidationRequest{
			Email:    email,
			Level:    level,
			Detailed: detailed,
		})
	default:
		logger.Error("unknown mode", "mode", mode)
		os.Exit(2)
	}

	if err != nil {
		apiErr := mailscout.AsAPIError(err)
		logger.Error("request failed",
			"error", apiErr.Message, "detail", apiErr.Detail, "status_code", apiErr.StatusCode)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(apiErr)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encoding response failed", "error", err)
		os.Exit(1)
	}
}

func splitMethods(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
