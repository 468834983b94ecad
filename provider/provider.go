// Package provider implements the email discovery strategies. Each
// strategy satisfies the Provider interface and is addressed by a short
// method identifier in discovery requests. Providers never panic and
// never fail a whole discovery run: the orchestrator logs a provider
// error and records zero candidates for it.
package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/optimode/mailscout/types"
)

// Method identifiers accepted in discovery requests.
const (
	MethodPatterns   = "patterns"
	MethodScraping   = "scraping"
	MethodWHOIS      = "whois"
	MethodGitHub     = "github"
	MethodSocial     = "social"
	MethodThirdParty = "third_party"
)

// Provider is a single email discovery strategy.
type Provider interface {
	// Name returns the method identifier used to request this provider.
	Name() string
	// Available reports whether the provider can run with the current
	// configuration (enable flags, API keys).
	Available() bool
	// Discover returns candidate addresses for the domain. Candidates
	// may contain duplicates across providers; the orchestrator merges.
	Discover(ctx context.Context, domain string) ([]types.EmailCandidate, error)
}

// emailPattern matches email addresses embedded in free text.
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// extractEmails returns the lowercased addresses in text that belong to
// the target domain.
func extractEmails(text, domain string) []string {
	suffix := "@" + strings.ToLower(domain)
	var out []string
	seen := make(map[string]struct{})
	for _, m := range emailPattern.FindAllString(text, -1) {
		email := strings.ToLower(m)
		if !strings.HasSuffix(email, suffix) {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}
