package check

import (
	"context"
	"strings"
	"unicode"

	"github.com/optimode/mailscout/internal/levenshtein"
	"github.com/optimode/mailscout/internal/parse"
	"github.com/optimode/mailscout/types"
)

// SyntaxChecker validates email syntax according to RFC 5321/5322
// with RFC 6531 (SMTPUTF8) and IDNA2008 internationalization support.
// On success it also emits an advisory "suggestion" detail when the
// domain looks like a typo of a well-known mail provider.
type SyntaxChecker struct {
	knownProviders []string
	typoThreshold  int
}

// knownMailProviders is the list of major mail providers used for typo
// suggestions. A domain within typo distance of one of these gets a
// suggestion; the stage never fails because of it.
var knownMailProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
	"tutanota.com",
}

// reservedTLDs are special-use top-level domains (RFC 6761/6762).
var reservedTLDs = map[string]struct{}{
	"test":      {},
	"invalid":   {},
	"localhost": {},
	"local":     {},
	"onion":     {},
}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{
		knownProviders: knownMailProviders,
		typoThreshold:  2,
	}
}

func (c *SyntaxChecker) Check(_ context.Context, email parse.Email) types.StageOutcome {
	if email.Raw == "" {
		return syntaxFailure("empty email address")
	}

	if !email.Valid {
		return syntaxFailure("invalid email syntax")
	}

	// Length checks (RFC 5321)
	if len(email.Raw) > 254 {
		return syntaxFailure("email address exceeds 254 characters")
	}
	if len(email.Local) > 64 {
		return syntaxFailure("local part exceeds 64 characters")
	}

	// Local part validation
	// net/mail.ParseAddress strips quotes from quoted local parts,
	// so we check the raw input to detect quoted form.
	if !hasQuotedLocal(email.Raw) {
		if msg := validateLocal(email.Local); msg != "" {
			return syntaxFailure(msg)
		}
	}

	// Domain validation (use Unicode form for user-friendly error messages;
	// IDNA2008 validation was already done during parsing)
	if msg := validateDomain(email.DomainUnicode); msg != "" {
		return syntaxFailure(msg)
	}

	details := map[string]any{
		"local_part": email.Local,
		"domain":     email.Domain,
	}
	if s := c.findTypoSuggestion(strings.ToLower(email.DomainUnicode)); s != "" {
		details["suggestion"] = email.Local + "@" + s
	}

	return types.StageOutcome{
		Valid:   true,
		Message: "email syntax is valid",
		Details: details,
	}
}

func syntaxFailure(msg string) types.StageOutcome {
	return types.StageOutcome{
		Valid:   false,
		Message: msg,
		Details: map[string]any{"error_type": "syntax_error"},
	}
}

// findTypoSuggestion finds the closest known provider. If the distance
// is within the threshold and the domain is not an exact match, it
// returns the suggested domain. Otherwise returns an empty string.
func (c *SyntaxChecker) findTypoSuggestion(domain string) string {
	bestDist := c.typoThreshold + 1
	bestMatch := ""

	for _, provider := range c.knownProviders {
		if domain == provider {
			return "" // exact match, no typo
		}
		dist := levenshtein.Distance(domain, provider)
		if dist <= c.typoThreshold && dist < bestDist {
			bestDist = dist
			bestMatch = provider
		}
	}

	return bestMatch
}

// hasQuotedLocal checks if the raw email has a quoted local part.
func hasQuotedLocal(raw string) bool {
	atIdx := strings.LastIndex(raw, "@")
	if atIdx < 1 {
		return false
	}
	local := raw[:atIdx]
	return strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`)
}

// validateLocal validates the local part.
// Supports RFC 5321 ASCII characters and RFC 6531 (SMTPUTF8) Unicode characters.
// Returns error text, or "" if ok.
func validateLocal(local string) string {
	if local == "" {
		return "local part is empty"
	}

	// Quoted local part: "something"
	if strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`) {
		return "" // in quoted form all printable characters are allowed
	}

	// RFC 5321 ASCII special characters (besides alphanumeric)
	asciiSpecial := "!#$%&'*+/=?^_`{|}~-."

	for _, ch := range local {
		if ch > 127 {
			// RFC 6531 (SMTPUTF8): non-ASCII Unicode characters are allowed,
			// except control characters
			if unicode.IsControl(ch) {
				return "local part contains control character"
			}
			continue
		}
		// ASCII range: letters, digits, and RFC 5321 special characters
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		if !strings.ContainsRune(asciiSpecial, ch) {
			return "local part contains invalid character: " + string(ch)
		}
	}

	// Cannot start or end with a dot
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part cannot start or end with a dot"
	}

	// Cannot contain consecutive dots
	if strings.Contains(local, "..") {
		return "local part cannot contain consecutive dots"
	}

	return ""
}

// validateDomain validates the domain part (Unicode form).
// Returns error text, or "" if ok.
func validateDomain(domain string) string {
	if domain == "" {
		return "domain is empty"
	}

	// IP literal: [127.0.0.1] - accept but don't validate deeply
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return ""
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "domain must have at least two labels"
	}

	for _, label := range labels {
		if label == "" {
			return "domain contains empty label (consecutive dots)"
		}
		if len(label) > 63 {
			return "domain label exceeds 63 characters"
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "domain label cannot start or end with a hyphen"
		}
		for _, ch := range label {
			if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' {
				return "domain label contains invalid character: " + string(ch)
			}
		}
	}

	// Special-use TLDs (RFC 6761/6762) can never receive public mail
	tld := labels[len(labels)-1]
	if _, reserved := reservedTLDs[strings.ToLower(tld)]; reserved {
		return "domain uses the reserved TLD ." + strings.ToLower(tld)
	}
	allDigits := true
	for _, ch := range tld {
		if !unicode.IsDigit(ch) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return "TLD cannot be all digits"
	}

	return ""
}
