package provider

import (
	"context"
	"strings"

	"github.com/optimode/mailscout/types"
)

// localPattern is a candidate local part with its confidence.
type localPattern struct {
	local      string
	confidence float64
}

// commonPatterns are role addresses most organizations expose.
var commonPatterns = []localPattern{
	{"info", 0.6}, {"contact", 0.7}, {"admin", 0.6}, {"support", 0.7},
	{"sales", 0.7}, {"marketing", 0.6}, {"hello", 0.5}, {"help", 0.6},
	{"service", 0.6}, {"team", 0.6}, {"office", 0.5}, {"general", 0.5},
	{"inquiries", 0.6}, {"business", 0.5}, {"careers", 0.6}, {"jobs", 0.6},
	{"hr", 0.6}, {"legal", 0.6}, {"billing", 0.6}, {"accounts", 0.6},
	{"finance", 0.6}, {"tech", 0.5}, {"technical", 0.5}, {"webmaster", 0.6},
	{"postmaster", 0.6}, {"abuse", 0.6}, {"security", 0.6}, {"privacy", 0.6},
}

// departmentPatterns carry higher confidence than the generic roles.
var departmentPatterns = []localPattern{
	{"team", 0.7}, {"partners", 0.7}, {"investor", 0.7},
	{"press", 0.8}, {"media", 0.8}, {"partnerships", 0.8}, {"investors", 0.8},
}

// firstNames seeds name-based guesses. Only the leading slice is used
// per discovery to keep the candidate count bounded.
var firstNames = []string{
	"john", "jane", "mike", "sarah", "david", "lisa", "chris", "jennifer",
	"robert", "emily", "michael", "jessica", "william", "ashley", "james",
	"amanda", "richard", "samantha", "charles", "stephanie",
}

var lastNames = []string{"smith", "johnson", "williams", "brown", "jones"}

// PatternProvider generates candidate addresses from common role,
// department and personal-name conventions. Deterministic and always
// available; it performs no I/O.
type PatternProvider struct{}

func NewPatternProvider() *PatternProvider {
	return &PatternProvider{}
}

func (p *PatternProvider) Name() string { return MethodPatterns }

func (p *PatternProvider) Available() bool { return true }

func (p *PatternProvider) Discover(_ context.Context, domain string) ([]types.EmailCandidate, error) {
	domain = strings.ToLower(domain)

	var out []types.EmailCandidate
	for _, pat := range commonPatterns {
		out = append(out, types.EmailCandidate{
			Email:      pat.local + "@" + domain,
			Source:     "common_pattern",
			Confidence: pat.confidence,
		})
	}
	for _, pat := range departmentPatterns {
		out = append(out, types.EmailCandidate{
			Email:      pat.local + "@" + domain,
			Source:     "department_pattern",
			Confidence: pat.confidence,
		})
	}
	for _, first := range firstNames {
		out = append(out, types.EmailCandidate{
			Email:      first + "@" + domain,
			Source:     "name_pattern",
			Confidence: 0.4,
		})
		for _, last := range lastNames {
			for _, local := range []string{
				first + "." + last,
				first + last,
				first[:1] + "." + last,
			} {
				out = append(out, types.EmailCandidate{
					Email:      local + "@" + domain,
					Source:     "name_pattern",
					Confidence: 0.3,
				})
			}
		}
	}
	return out, nil
}
