package orchestrator

import (
	"context"

	"github.com/fyrsmithlabs/scenariod/internal/critic"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
	"github.com/fyrsmithlabs/scenariod/internal/worldstate"
)

// Stage names one of the fixed pipeline stages, in execution order.
type Stage string

const (
	StageSnapshot     Stage = "snapshot"
	StagePlan         Stage = "plan"
	StageRetrieve     Stage = "retrieve"
	StageSelectAction Stage = "select_action"
	StageDraft        Stage = "draft"
	StageValidate     Stage = "validate"
	StageCommit       Stage = "commit"
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{
		StageSnapshot,
		StagePlan,
		StageRetrieve,
		StageSelectAction,
		StageDraft,
		StageValidate,
		StageCommit,
	}
}

// RunStatus is the externally visible state of an orchestrator.
type RunStatus string

const (
	// StatusRunning means the next Step call advances the scenario.
	StatusRunning RunStatus = "running"

	// StatusSuspended means a decision is pending; Resume unblocks.
	StatusSuspended RunStatus = "suspended"

	// StatusFinished means the run reached a terminal end condition or a
	// hard ceiling. No further steps execute.
	StatusFinished RunStatus = "finished"
)

// Config tunes one orchestrator instance.
type Config struct {
	// RefineBudget is how many times an invalid draft is sent back for
	// refinement before being force-accepted. Default: 2.
	RefineBudget int `koanf:"refine_budget"`

	// Interactive enables decision suspension points.
	Interactive bool `koanf:"interactive"`

	// DecisionInterval triggers a decision after this many accepted
	// injects since the last one. Default: 3.
	DecisionInterval int `koanf:"decision_interval"`

	// RetrieveK is how many candidate techniques to pull per iteration.
	// Default: 3.
	RetrieveK int `koanf:"retrieve_k"`

	// CascadeDepth bounds dependency traversal on commit. Default: 3.
	CascadeDepth int `koanf:"cascade_depth"`

	// Hard ceilings. Reaching any of them forces a warned end.
	MaxIterations int `koanf:"max_iterations"` // default 50
	MaxSteps      int `koanf:"max_steps"`      // default 500
	MaxErrors     int `koanf:"max_errors"`     // default 25
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.RefineBudget == 0 {
		c.RefineBudget = 2
	}
	if c.DecisionInterval == 0 {
		c.DecisionInterval = 3
	}
	if c.RetrieveK == 0 {
		c.RetrieveK = 3
	}
	if c.CascadeDepth == 0 {
		c.CascadeDepth = 3
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 50
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = 500
	}
	if c.MaxErrors == 0 {
		c.MaxErrors = 25
	}
}

// Reviewer validates one draft attempt. Satisfied by *critic.Critic.
type Reviewer interface {
	Review(ctx context.Context, req critic.Request) critic.Verdict
}

// TechniqueSource serves candidate techniques for a phase. Satisfied by
// *knowledge.Retriever.
type TechniqueSource interface {
	TechniquesForPhase(ctx context.Context, p scenario.Phase, k int) []scenario.Technique
}

// StateStore is the world-state surface the pipeline needs. Satisfied by
// *worldstate.Store.
type StateStore interface {
	Snapshot() scenario.Snapshot
	UpdateStatus(entityID string, status scenario.EntityStatus, causedBy string) error
	ComputeCascadingImpact(entityID string, status scenario.EntityStatus, maxDepth int) worldstate.Impact
	ApplyImpact(entityID string, status scenario.EntityStatus, impact worldstate.Impact, causedBy string) error
}

// DecisionStats aggregates resolved decisions for the end-condition
// evaluation.
type DecisionStats struct {
	CounterMeasures     int
	Containments        int
	NonTrivialResponses int
}
