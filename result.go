package mailscout

import "github.com/optimode/mailscout/types"

// DiscoveryResult is the merged outcome of one discovery run. Within
// one result every address appears once, carrying the highest
// confidence any provider assigned it.
type DiscoveryResult struct {
	Domain      string                 `json:"domain"`
	Emails      []types.EmailCandidate `json:"emails"`
	TotalFound  int                    `json:"total_found"`
	Cached      bool                   `json:"cached"`
	MethodsUsed []string               `json:"methods_used"`
}

// ValidationResult is the outcome of one validation run. RiskScore is
// in [0,1], lower is better; Valid is the conjunction of the stages
// that actually ran.
type ValidationResult struct {
	Email             string                             `json:"email"`
	Valid             bool                               `json:"valid"`
	ValidationResults map[types.Stage]types.StageOutcome `json:"validation_results,omitempty"`
	RiskScore         float64                            `json:"risk_score"`
	Cached            bool                               `json:"cached"`
}
