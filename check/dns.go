package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/optimode/mailscout/internal/dnscache"
	"github.com/optimode/mailscout/internal/parse"
	"github.com/optimode/mailscout/types"
)

// freeMailSignatures maps MX hostname substrings to free mail providers.
var freeMailSignatures = map[string]string{
	"gmail.com":      "Gmail",
	"googlemail.com": "Gmail",
	"outlook.com":    "Outlook",
	"hotmail.com":    "Outlook",
	"live.com":       "Outlook",
	"yahoo.com":      "Yahoo",
	"yahoo.co.uk":    "Yahoo",
	"yahoodns.net":   "Yahoo",
	"aol.com":        "AOL",
	"icloud.com":     "iCloud",
	"me.com":         "iCloud",
	"mac.com":        "iCloud",
	"protonmail.ch":  "ProtonMail",
	"protonmail.com": "ProtonMail",
	"yandex.com":     "Yandex",
	"yandex.ru":      "Yandex",
	"zoho.com":       "Zoho",
	"fastmail.com":   "Fastmail",
	"tutanota.com":   "Tutanota",
}

// businessMailSignatures maps MX hostname substrings to hosted business
// mail providers.
var businessMailSignatures = map[string]string{
	"aspmx.l.google.com":          "Google Workspace",
	"google.com":                  "Google Workspace",
	"mail.protection.outlook.com": "Microsoft 365",
	"outlook.office365.com":       "Microsoft 365",
	"office365.com":               "Microsoft 365",
	"microsoft.com":               "Microsoft 365",
	"amazonaws.com":               "Amazon SES",
	"sendgrid.net":                "SendGrid",
	"mailgun.org":                 "Mailgun",
	"postmarkapp.com":             "Postmark",
	"mandrillapp.com":             "Mandrill",
	"mailchimp.com":               "Mailchimp",
}

// DNSChecker confirms the domain exists (address record) and resolves
// its MX record set. The MX hosts it returns feed the SMTP prober in
// resolver-returned order; no re-ranking by routing preference happens
// here or later.
type DNSChecker struct {
	resolver *dnscache.Cache
}

// NewDNSChecker creates a DNS checker backed by the shared DNS cache.
func NewDNSChecker(resolver *dnscache.Cache) *DNSChecker {
	return &DNSChecker{resolver: resolver}
}

// Check resolves the address's domain. The returned host list is the MX
// set to probe; it is nil whenever the outcome is invalid.
func (c *DNSChecker) Check(ctx context.Context, email parse.Email) (types.StageOutcome, []string) {
	if !email.Valid {
		return dnsFailure("dns_error", "skipped: unparseable email address"), nil
	}

	if err := ctx.Err(); err != nil {
		return dnsFailure("dns_error", "context cancelled"), nil
	}

	// Address record first: distinguishes a missing domain from a real
	// domain without mail service.
	if _, err := c.resolver.LookupHost(email.Domain); err != nil {
		return dnsFailure(classifyHostError(err), "domain does not exist"), nil
	}

	mxRecords, err := c.resolver.LookupMX(email.Domain)
	if err != nil {
		if isTimeout(err) {
			return dnsFailure("dns_timeout", "DNS lookup timeout"), nil
		}
		return dnsFailure("no_mx_records", "domain has no MX records"), nil
	}
	if len(mxRecords) == 0 {
		return dnsFailure("no_mx_records", "domain has no MX records"), nil
	}

	hosts := make([]string, len(mxRecords))
	for i, mx := range mxRecords {
		hosts[i] = strings.TrimSuffix(mx.Host, ".")
	}

	providerName, providerType := classifyMXHosts(hosts)

	return types.StageOutcome{
		Valid:   true,
		Message: fmt.Sprintf("domain has %d MX record(s)", len(hosts)),
		Details: map[string]any{
			"mx_records":    hosts,
			"mx_count":      len(hosts),
			"provider_type": providerType,
		},
		EmailProvider: providerName,
	}, hosts
}

func dnsFailure(errorType, msg string) types.StageOutcome {
	return types.StageOutcome{
		Valid:   false,
		Message: msg,
		Details: map[string]any{"error_type": errorType},
	}
}

// classifyHostError distinguishes a nonexistent domain from resolver
// trouble.
func classifyHostError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "dns_timeout"
		}
		if dnsErr.IsNotFound {
			return "domain_not_found"
		}
	}
	if isTimeout(err) {
		return "dns_timeout"
	}
	return "dns_error"
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}

// classifyMXHosts matches the MX host list against the curated provider
// signature tables. Business signatures are the more specific ones
// ("mail.protection.outlook.com" also contains "outlook.com"), so they
// are checked first; unmatched hosts are "Custom".
func classifyMXHosts(hosts []string) (name, providerType string) {
	for _, host := range hosts {
		h := strings.ToLower(host)
		for sig, provider := range businessMailSignatures {
			if strings.Contains(h, sig) {
				return provider, "business"
			}
		}
	}
	for _, host := range hosts {
		h := strings.ToLower(host)
		for sig, provider := range freeMailSignatures {
			if strings.Contains(h, sig) {
				return provider, "free"
			}
		}
	}
	return "Custom", "custom"
}
