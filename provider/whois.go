package provider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/optimode/mailscout/types"
)

const whoisConfidence = 0.85

// privacyServiceDomains hide the registrant behind a proxy address;
// such addresses are noise, not contacts.
var privacyServiceDomains = map[string]struct{}{
	"whoisguard.com":     {},
	"whoisguard.net":     {},
	"domainsbyproxy.com": {},
	"privacyprotect.org": {},
	"namecheap.com":      {},
	"godaddy.com":        {},
	"enom.com":           {},
	"tucows.com":         {},
	"privacy.org":        {},
	"withheldforprivacy.com": {},
}

// WHOISProvider discovers registration contact addresses from WHOIS
// data: the parsed registrant, administrative, technical and billing
// contacts, plus a regex scan over the raw record for registries whose
// format the parser does not know.
type WHOISProvider struct {
	enabled bool
	logger  *slog.Logger

	// query performs the raw WHOIS lookup. Injectable for tests.
	query func(domain string) (string, error)
}

func NewWHOISProvider(enabled bool, logger *slog.Logger) *WHOISProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &WHOISProvider{
		enabled: enabled,
		logger:  logger,
		query:   func(domain string) (string, error) { return whois.Whois(domain) },
	}
}

func (p *WHOISProvider) Name() string { return MethodWHOIS }

func (p *WHOISProvider) Available() bool { return p.enabled }

func (p *WHOISProvider) Discover(ctx context.Context, domain string) ([]types.EmailCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := p.query(domain)
	if err != nil {
		return nil, err
	}

	emails := make(map[string]struct{})

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		p.logger.Debug("whois parse failed, falling back to raw scan", "domain", domain, "error", err)
	} else {
		for _, contact := range []*whoisparser.Contact{
			parsed.Registrant,
			parsed.Administrative,
			parsed.Technical,
			parsed.Billing,
		} {
			if contact == nil {
				continue
			}
			p.addIfUsable(contact.Email, domain, emails)
		}
	}

	// The raw blob often carries abuse/registrant addresses in fields
	// the parser has no slot for.
	for _, email := range extractEmails(raw, domain) {
		p.addIfUsable(email, domain, emails)
	}

	out := make([]types.EmailCandidate, 0, len(emails))
	for email := range emails {
		out = append(out, types.EmailCandidate{
			Email:      email,
			Source:     "whois",
			Confidence: whoisConfidence,
			FoundAt:    "whois:" + domain,
		})
	}
	return out, nil
}

func (p *WHOISProvider) addIfUsable(email, domain string, emails map[string]struct{}) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.HasSuffix(email, "@"+strings.ToLower(domain)) {
		return
	}
	_, emailDomain, _ := strings.Cut(email, "@")
	if _, privacy := privacyServiceDomains[emailDomain]; privacy {
		return
	}
	emails[email] = struct{}{}
}
