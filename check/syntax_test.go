package check_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/mailscout/check"
	"github.com/optimode/mailscout/internal/parse"
)

func TestSyntaxChecker_Valid(t *testing.T) {
	checker := check.NewSyntaxChecker()

	valid := []string{
		"user@example.com",
		"first.last@example.com",
		"user+tag@example.co.uk",
		"user_name@example.com",
		"u@example.com",
		"user123@sub.example.com",
		`"quoted local"@example.com`,
		"üser@example.com",         // RFC 6531 local part
		"user@münchen.de",          // IDN domain
		"user@xn--mnchen-3ya.de",   // same domain, Punycode form
	}

	for _, email := range valid {
		outcome := checker.Check(context.Background(), parse.NewEmail(email))
		assert.True(t, outcome.Valid, "expected %q to be valid: %s", email, outcome.Message)
		assert.Equal(t, "email syntax is valid", outcome.Message)
	}
}

func TestSyntaxChecker_Invalid(t *testing.T) {
	checker := check.NewSyntaxChecker()

	invalid := []string{
		"",
		"no-at-sign",
		"@example.com",
		"user@",
		".user@example.com",
		"user.@example.com",
		"us..er@example.com",
		"user@example",         // single label
		"user@-example.com",    // leading hyphen
		"user@example-.com",    // trailing hyphen
		"user@example.123",     // all-digit TLD
		"user name@example.com",
		"user@nonexistent-tld-xyz123.test", // reserved TLD
		"user@machine.localhost",
	}

	for _, email := range invalid {
		outcome := checker.Check(context.Background(), parse.NewEmail(email))
		assert.False(t, outcome.Valid, "expected %q to be invalid", email)
		assert.Equal(t, "syntax_error", outcome.Details["error_type"], "email %q", email)
	}
}

func TestSyntaxChecker_SuccessDetails(t *testing.T) {
	checker := check.NewSyntaxChecker()

	outcome := checker.Check(context.Background(), parse.NewEmail("First.Last@Example.COM"))
	assert.True(t, outcome.Valid)
	assert.Equal(t, "First.Last", outcome.Details["local_part"])
	assert.Equal(t, "example.com", outcome.Details["domain"])
}

func TestSyntaxChecker_TypoSuggestion(t *testing.T) {
	checker := check.NewSyntaxChecker()

	outcome := checker.Check(context.Background(), parse.NewEmail("user@gmal.com"))
	assert.True(t, outcome.Valid) // suggestion never fails the stage
	assert.Equal(t, "user@gmail.com", outcome.Details["suggestion"])
}

func TestSyntaxChecker_NoSuggestionForExactMatch(t *testing.T) {
	checker := check.NewSyntaxChecker()

	outcome := checker.Check(context.Background(), parse.NewEmail("user@gmail.com"))
	assert.True(t, outcome.Valid)
	assert.NotContains(t, outcome.Details, "suggestion")
}

func TestSyntaxChecker_NoSuggestionForUnrelatedDomain(t *testing.T) {
	checker := check.NewSyntaxChecker()

	outcome := checker.Check(context.Background(), parse.NewEmail("user@totally-custom-corp.io"))
	assert.True(t, outcome.Valid)
	assert.NotContains(t, outcome.Details, "suggestion")
}

func TestSyntaxChecker_LengthLimits(t *testing.T) {
	checker := check.NewSyntaxChecker()

	longLocal := ""
	for i := 0; i < 65; i++ {
		longLocal += "a"
	}
	outcome := checker.Check(context.Background(), parse.NewEmail(longLocal+"@example.com"))
	assert.False(t, outcome.Valid)
	assert.Contains(t, outcome.Message, "local part")
}
