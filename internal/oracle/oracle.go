// Package oracle talks to the external generative/verification service.
//
// The shipped client drives any openai-compatible endpoint through
// langchaingo. Responses are free-form text with an embedded JSON object;
// ExtractJSON pulls the first balanced span and a failed extraction is a
// typed ParseError carrying the raw text — callers fall back to
// conservative defaults, they never crash.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Role names the three request kinds the oracle serves.
type Role string

const (
	RolePlan   Role = "plan"
	RoleDraft  Role = "draft"
	RoleVerify Role = "verify"
)

// PlanRequest asks for a narrative direction for the next iteration.
type PlanRequest struct {
	ScenarioType  scenario.Type
	Phase         scenario.Phase
	Iteration     int
	RecentInjects []scenario.Inject
	Snapshot      scenario.Snapshot
}

// Plan is the oracle's proposed direction.
type Plan struct {
	Direction      string         `json:"direction"`
	SuggestedPhase scenario.Phase `json:"suggested_phase"`
	FocusEntities  []string       `json:"focus_entities"`

	// Raw is the unprocessed oracle response text.
	Raw string `json:"-"`
}

// Feedback carries a failed verdict back into the next draft attempt so it
// targets the specific violations.
type Feedback struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// DraftRequest asks for a candidate inject.
type DraftRequest struct {
	ScenarioType scenario.Type
	Phase        scenario.Phase
	Plan         Plan
	Technique    scenario.Technique
	LatestOffset string
	RecentInjects []scenario.Inject
	Snapshot     scenario.Snapshot

	// Feedback is nil on the first attempt and set on refine attempts.
	Feedback *Feedback
}

// DraftResult wraps the drafted inject with the raw response.
type DraftResult struct {
	Inject scenario.Inject
	Raw    string
}

// VerifyRequest asks for a semantic consistency judgment of a draft.
type VerifyRequest struct {
	Draft               scenario.Inject
	History             []scenario.Inject
	Snapshot            scenario.Snapshot
	ComplianceChecklist []string
}

// VerifyResult is the oracle's semantic verdict on a draft.
type VerifyResult struct {
	LogicalConsistency bool     `json:"logical_consistency"`
	CausalValidity     bool     `json:"causal_validity"`
	Compliance         bool     `json:"compliance"`
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`

	// Raw is the unprocessed oracle response text.
	Raw string `json:"-"`
}

// Oracle is the generative/verification service contract. All calls are
// synchronous from the pipeline's perspective.
type Oracle interface {
	Plan(ctx context.Context, req PlanRequest) (Plan, error)
	Draft(ctx context.Context, req DraftRequest) (DraftResult, error)
	Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error)
}

// ParseError reports that a response contained no parseable JSON object.
// It always carries the raw text so the audit log can keep it.
type ParseError struct {
	Role Role
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("oracle %s response not parseable: %v", e.Role, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AsParseError unwraps a ParseError when present.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ErrUnavailable marks errors that exhausted the retry budget.
var ErrUnavailable = errors.New("oracle unavailable")
