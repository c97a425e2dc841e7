// Package critic validates draft injects in two ordered phases: cheap
// symbolic checks first (schema, FSM legality, state and temporal
// consistency), then an expensive semantic oracle check only when every
// symbolic layer passed. The critic owns its validation history explicitly;
// there is no package-level mutable state.
package critic

import (
	"strings"

	"github.com/fyrsmithlabs/scenariod/internal/scoring"
)

// IssueKind categorizes a validation finding.
type IssueKind string

const (
	KindSchema     IssueKind = "schema_error"
	KindFSM        IssueKind = "fsm_violation"
	KindState      IssueKind = "state_inconsistency"
	KindTemporal   IssueKind = "temporal_violation"
	KindSemantic   IssueKind = "semantic_inconsistency"
	KindCausal     IssueKind = "causal_violation"
	KindCompliance IssueKind = "compliance_gap"
	KindQuality    IssueKind = "quality_threshold"
	KindOracle     IssueKind = "oracle_unavailable"
)

// IssueSeverity separates blocking findings from advisory ones.
type IssueSeverity string

const (
	// SeverityHard findings block the verdict.
	SeverityHard IssueSeverity = "hard"

	// SeveritySoft findings are recorded but never block.
	SeveritySoft IssueSeverity = "soft"
)

// Issue is one validation finding. Hard issues always carry a non-empty
// human-readable message.
type Issue struct {
	Kind     IssueKind     `json:"kind"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// Verdict is the outcome of validating one draft attempt.
type Verdict struct {
	IsValid bool `json:"is_valid"`

	// Per-layer results. A layer skipped by short-circuiting keeps its
	// zero value of true only if it was actually evaluated; skipped
	// layers report true since nothing contradicted them.
	SchemaOK   bool `json:"schema_ok"`
	FSMOK      bool `json:"fsm_ok"`
	StateOK    bool `json:"state_ok"`
	TemporalOK bool `json:"temporal_ok"`

	// Semantic layer results, oracle post-processing applied.
	LogicalOK      bool `json:"logical_ok"`
	CausalBlocking bool `json:"causal_blocking"`
	ComplianceOK   bool `json:"compliance_ok"`

	// SemanticChecked is false when Phase A short-circuited or the
	// oracle was unavailable.
	SemanticChecked bool `json:"semantic_checked"`

	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`

	// Explanation is never empty for an invalid verdict.
	Explanation string `json:"explanation,omitempty"`

	// OracleRaw is the unprocessed semantic-check response, kept for
	// the audit trail.
	OracleRaw string `json:"oracle_raw,omitempty"`

	// Metrics are computed for every attempt, independent of validity.
	Metrics scoring.Metrics `json:"metrics"`
}

// ErrorMessages returns the hard finding texts, for draft feedback.
func (v Verdict) ErrorMessages() []string {
	return messages(v.Errors)
}

// WarningMessages returns the soft finding texts, for draft feedback.
func (v Verdict) WarningMessages() []string {
	return messages(v.Warnings)
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Message)
	}
	return out
}

// synthesizeExplanation builds a fallback explanation from failed
// sub-checks so an invalid verdict is never unexplained.
func (v Verdict) synthesizeExplanation() string {
	var failed []string
	if !v.SchemaOK {
		failed = append(failed, "schema validation")
	}
	if !v.FSMOK {
		failed = append(failed, "phase transition legality")
	}
	if !v.StateOK {
		failed = append(failed, "world-state consistency")
	}
	if !v.TemporalOK {
		failed = append(failed, "temporal ordering")
	}
	if !v.LogicalOK {
		failed = append(failed, "logical consistency")
	}
	if v.CausalBlocking {
		failed = append(failed, "causal validity (impossible sequence)")
	}
	if len(failed) == 0 {
		return "draft rejected by validation"
	}
	return "draft failed: " + strings.Join(failed, ", ")
}
