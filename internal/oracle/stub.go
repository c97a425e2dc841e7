package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Stub is a deterministic in-process oracle for tests and offline runs.
// Drafts derive entirely from the request, so repeated runs over the same
// inputs produce the same narrative skeleton.
type Stub struct {
	// StepMinutes advances each draft past the latest accepted offset.
	// Default: 30.
	StepMinutes int
}

var _ Oracle = (*Stub)(nil)

// NewStub returns a stub oracle with default spacing.
func NewStub() *Stub {
	return &Stub{StepMinutes: 30}
}

// Plan implements Oracle.
func (s *Stub) Plan(_ context.Context, req PlanRequest) (Plan, error) {
	focus := req.Snapshot.IDs()
	if len(focus) > 2 {
		focus = focus[:2]
	}
	return Plan{
		Direction:      fmt.Sprintf("continue the %s narrative in phase %s", req.ScenarioType, req.Phase),
		SuggestedPhase: req.Phase,
		FocusEntities:  focus,
		Raw:            "stub plan",
	}, nil
}

// Draft implements Oracle.
func (s *Stub) Draft(_ context.Context, req DraftRequest) (DraftResult, error) {
	step := s.StepMinutes
	if step <= 0 {
		step = 30
	}
	offset := scenario.ParseOffset(req.LatestOffset) + step

	entities := req.Plan.FocusEntities
	if len(entities) == 0 {
		if ids := req.Snapshot.IDs(); len(ids) > 0 {
			entities = ids[:1]
		}
	}
	target := "soc"
	if len(entities) > 0 {
		target = entities[0]
	}

	in := scenario.Inject{
		ID:         uuid.NewString(),
		TimeOffset: scenario.FormatOffset(offset),
		Phase:      req.Phase,
		Source:     "monitoring",
		Target:     target,
		Modality:   scenario.ModalityAlert,
		Content: fmt.Sprintf("Automated monitoring reports %s activity involving %s during phase %s.",
			req.ScenarioType, target, req.Phase),
		TechniqueID:      req.Technique.ID,
		AffectedEntities: entities,
		Severity:         scenario.SeverityMedium,
		Status:           scenario.StatusDraft,
		CreatedAt:        time.Now().UTC(),
	}
	return DraftResult{Inject: in, Raw: "stub draft"}, nil
}

// Verify implements Oracle.
func (s *Stub) Verify(_ context.Context, _ VerifyRequest) (VerifyResult, error) {
	return VerifyResult{
		LogicalConsistency: true,
		CausalValidity:     true,
		Compliance:         true,
		Raw:                "stub verify",
	}, nil
}
