package check

import (
	"context"
	"math/rand"
	"strings"

	"github.com/optimode/mailscout/internal/disposable"
	"github.com/optimode/mailscout/internal/parse"
	"github.com/optimode/mailscout/internal/smtpprobe"
	"github.com/optimode/mailscout/types"
)

// SMTPChecker probes candidate mail exchangers to verify that the
// mailbox exists, and performs catch-all detection on success. MX hosts
// are tried in the order the DNS stage supplied them; a host that fails
// for any reason is skipped without retry.
type SMTPChecker struct {
	pool       *smtpprobe.Pool
	detector   *disposable.Detector
	maxMXHosts int

	// randomLocal generates the forged local part for catch-all
	// detection. Injectable for tests.
	randomLocal func() string
}

// NewSMTPChecker creates an SMTP checker. detector may be nil, in which
// case the disposable annotation is always false. maxMXHosts <= 0 means
// try every host.
func NewSMTPChecker(pool *smtpprobe.Pool, detector *disposable.Detector, maxMXHosts int) *SMTPChecker {
	return &SMTPChecker{
		pool:        pool,
		detector:    detector,
		maxMXHosts:  maxMXHosts,
		randomLocal: randomLocalPart,
	}
}

// Check probes the mailbox via the given MX hosts.
func (c *SMTPChecker) Check(ctx context.Context, email parse.Email, mxHosts []string) types.StageOutcome {
	isDisposable := false
	if c.detector != nil {
		isDisposable = c.detector.IsDisposable(ctx, email.Raw)
	}

	if !email.Valid {
		return types.StageOutcome{
			Valid:        false,
			Message:      "skipped: unparseable email address",
			Details:      map[string]any{"error_type": "smtp_error"},
			IsDisposable: isDisposable,
		}
	}

	if len(mxHosts) == 0 {
		return types.StageOutcome{
			Valid:        false,
			Message:      "no MX records available for SMTP validation",
			Details:      map[string]any{"error_type": "no_mx_records"},
			IsDisposable: isDisposable,
		}
	}

	maxHosts := c.maxMXHosts
	if maxHosts <= 0 || maxHosts > len(mxHosts) {
		maxHosts = len(mxHosts)
	}

	var lastFailure string
	for i := 0; i < maxHosts; i++ {
		select {
		case <-ctx.Done():
			return types.StageOutcome{
				Valid:        false,
				Message:      "context cancelled",
				Details:      map[string]any{"error_type": "smtp_error"},
				IsDisposable: isDisposable,
			}
		default:
		}

		mxHost := mxHosts[i]

		res, err := c.pool.Probe(mxHost, email.Raw)
		if err != nil {
			// Network or protocol failure: inconclusive, try next host
			lastFailure = err.Error()
			continue
		}

		if !res.Accepted() {
			lastFailure = res.Message
			continue
		}

		// Positive result. A second probe with a forged random local part
		// on the same host tells us whether the domain accepts anything.
		isCatchAll := c.probeCatchAll(mxHost, email.Domain)

		return types.StageOutcome{
			Valid:   true,
			Message: "mailbox exists and accepts mail",
			Details: map[string]any{
				"mx_host":   mxHost,
				"smtp_code": res.Code,
				"method":    res.Method,
			},
			IsCatchAll:   isCatchAll,
			IsDisposable: isDisposable,
		}
	}

	details := map[string]any{"error_type": "mailbox_not_found"}
	if lastFailure != "" {
		details["last_failure"] = lastFailure
	}
	return types.StageOutcome{
		Valid:        false,
		Message:      "mailbox does not exist or is not accepting mail",
		Details:      details,
		IsDisposable: isDisposable,
	}
}

// probeCatchAll checks whether the host also accepts a forged address on
// the same domain. Failures count as "not a catch-all": the check is
// advisory and must not undo a positive probe.
func (c *SMTPChecker) probeCatchAll(mxHost, domain string) bool {
	forged := c.randomLocal() + "@" + domain
	res, err := c.pool.Probe(mxHost, forged)
	return err == nil && res.Accepted()
}

const localPartAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomLocalPart returns a 10-character alphanumeric local part that is
// vanishingly unlikely to be a real mailbox.
func randomLocalPart() string {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteByte(localPartAlphabet[rand.Intn(len(localPartAlphabet))])
	}
	return b.String()
}
