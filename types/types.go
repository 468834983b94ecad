// Package types contains the shared types for mailscout.
// This package does not import anything from other mailscout packages
// to avoid circular imports.
package types

// Stage identifies a validation stage.
type Stage = string

const (
	StageSyntax Stage = "syntax"
	StageDNS    Stage = "dns"
	StageSMTP   Stage = "smtp"
)

// Level identifies how deep a validation goes.
type Level = string

const (
	// LevelBasic runs the syntax and DNS stages.
	LevelBasic Level = "basic"
	// LevelAdvanced additionally probes the mailbox over SMTP.
	LevelAdvanced Level = "advanced"
)

// EmailCandidate is one address produced by a discovery provider.
// Immutable once created. Confidence is the provider's estimate, in [0,1],
// of how likely the address is real and reachable.
type EmailCandidate struct {
	Email      string  `json:"email"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	FoundAt    string  `json:"found_at,omitempty"`
}

// StageOutcome is the result of a single validation stage.
type StageOutcome struct {
	Valid   bool           `json:"valid"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	// EmailProvider is set by the DNS stage when an MX host matches a
	// known free or business mail provider ("Gmail", "Microsoft 365", ...).
	EmailProvider string `json:"email_provider,omitempty"`
	// IsCatchAll is set by the SMTP stage when the mail exchanger also
	// accepted a forged random local part. Advisory: the positive result
	// for the real address is still reported valid.
	IsCatchAll bool `json:"is_catch_all,omitempty"`
	// IsDisposable is set by the SMTP stage from the disposable-domain
	// detector, independent of deliverability.
	IsDisposable bool `json:"is_disposable,omitempty"`
}
