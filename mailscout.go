// Package mailscout discovers and validates email addresses.
//
// Discovery fans a domain out to the enabled provider strategies
// (patterns, web scraping, WHOIS, GitHub, social profiles, Hunter.io),
// merges the candidates keeping the highest confidence per address, and
// caches the snapshot. Validation runs an address through syntax, DNS/MX
// and optional SMTP stages, accumulating a risk score.
//
// Finder and Validator are the two pipelines; Service wraps them with
// API-key authentication and per-identity rate limiting for callers that
// expose the library behind an API surface.
package mailscout

import "github.com/optimode/mailscout/types"

// Re-exported shared types, so most callers only import this package.
type (
	EmailCandidate = types.EmailCandidate
	StageOutcome   = types.StageOutcome
)

// Validation levels.
const (
	LevelBasic    = types.LevelBasic
	LevelAdvanced = types.LevelAdvanced
)
