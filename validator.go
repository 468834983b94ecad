package mailscout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/optimode/mailscout/check"
	"github.com/optimode/mailscout/internal/cache"
	"github.com/optimode/mailscout/internal/disposable"
	"github.com/optimode/mailscout/internal/dnscache"
	"github.com/optimode/mailscout/internal/parse"
	"github.com/optimode/mailscout/internal/smtpprobe"
	"github.com/optimode/mailscout/types"
)

// Risk penalties per failed stage. The sum is clamped to 1.
const (
	riskSyntaxFail = 0.5
	riskDNSFail    = 0.3
	riskSMTPFail   = 0.2
)

// Stage checker seams, satisfied by the check package. Injectable for
// tests.
type syntaxChecker interface {
	Check(ctx context.Context, email parse.Email) types.StageOutcome
}

type dnsChecker interface {
	Check(ctx context.Context, email parse.Email) (types.StageOutcome, []string)
}

type smtpChecker interface {
	Check(ctx context.Context, email parse.Email, mxHosts []string) types.StageOutcome
}

// Validator runs the validation pipeline: syntax and DNS stages always,
// the SMTP stage only at the advanced level when DNS succeeded.
type Validator struct {
	syntax   syntaxChecker
	dns      dnsChecker
	smtp     smtpChecker
	pool     *smtpprobe.Pool
	store    *cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewValidator wires the three stage checkers from the configuration.
// store may be shared with a Finder.
func NewValidator(cfg Config, store *cache.Cache, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	resolver := dnscache.New(cfg.DNSTimeout, cfg.DNSCacheTTL)
	pool := smtpprobe.New(smtpprobe.Config{
		HeloDomain:     cfg.SMTPHeloDomain,
		MailFrom:       cfg.SMTPMailFrom,
		ConnectTimeout: cfg.SMTPTimeout,
		CommandTimeout: cfg.SMTPTimeout,
		Port:           "25",
	})
	detector := disposable.New(
		disposable.WithListURL(cfg.DisposableListURL),
		disposable.WithLogger(logger),
	)

	return &Validator{
		syntax:   check.NewSyntaxChecker(),
		dns:      check.NewDNSChecker(resolver),
		smtp:     check.NewSMTPChecker(pool, detector, cfg.SMTPMaxMXHosts),
		pool:     pool,
		store:    store,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
}

// Close releases the SMTP connection pool.
func (v *Validator) Close() error {
	if v.pool != nil {
		return v.pool.Close()
	}
	return nil
}

// Validate runs the pipeline for the email at the given level. Within
// the cache TTL, identical (email, level) requests return the stored
// result with Cached set.
func (v *Validator) Validate(ctx context.Context, email string, level types.Level) (*ValidationResult, error) {
	if level == "" {
		level = types.LevelAdvanced
	}
	if level != types.LevelBasic && level != types.LevelAdvanced {
		return nil, ErrInvalidLevel
	}

	key := validationKey(email, level)
	if data, ok := v.store.Get(ctx, key); ok {
		var res ValidationResult
		if err := json.Unmarshal(data, &res); err == nil {
			res.Cached = true
			return &res, nil
		}
		v.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	parsed := parse.NewEmail(email)
	results := make(map[types.Stage]types.StageOutcome)
	valid := true
	risk := 0.0

	syntaxOut := v.syntax.Check(ctx, parsed)
	results[types.StageSyntax] = syntaxOut
	if !syntaxOut.Valid {
		valid = false
		risk += riskSyntaxFail
	}

	// DNS runs even after a syntax failure so the caller still gets
	// domain-level diagnostics.
	dnsOut, mxHosts := v.dns.Check(ctx, parsed)
	results[types.StageDNS] = dnsOut
	if !dnsOut.Valid {
		valid = false
		risk += riskDNSFail
	}

	if level == types.LevelAdvanced && dnsOut.Valid {
		smtpOut := v.smtp.Check(ctx, parsed, mxHosts)
		results[types.StageSMTP] = smtpOut
		if !smtpOut.Valid {
			valid = false
			risk += riskSMTPFail
		}
	}

	if risk > 1 {
		risk = 1
	}

	res := &ValidationResult{
		Email:             email,
		Valid:             valid,
		ValidationResults: results,
		RiskScore:         risk,
		Cached:            false,
	}

	if data, err := json.Marshal(res); err == nil {
		v.store.Set(ctx, key, data, v.cacheTTL)
	}

	v.logger.Info("validation complete",
		"email", email, "level", level, "valid", valid, "risk_score", risk)
	return res, nil
}

func validationKey(email string, level types.Level) string {
	sum := sha256.Sum256([]byte(email + "|" + level))
	return "validation:" + hex.EncodeToString(sum[:])
}
