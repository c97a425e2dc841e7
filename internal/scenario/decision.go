package scenario

import (
	"time"

	"github.com/google/uuid"
)

// DecisionCategory classifies what kind of response a decision option is,
// which feeds the end-condition counters.
type DecisionCategory string

const (
	CategoryCounterMeasure DecisionCategory = "counter_measure"
	CategoryContainment    DecisionCategory = "containment"
	CategoryResponse       DecisionCategory = "response"
	CategoryObserve        DecisionCategory = "observe"
)

// EntityImpact declares how resolving a decision option mutates one entity.
type EntityImpact struct {
	EntityID  string       `json:"entity_id"`
	NewStatus EntityStatus `json:"new_status"`
}

// DecisionOption is one selectable choice at a suspension point.
//
// Trivial options (acknowledge, wait-and-see) do not count toward the
// non-trivial response decisions the victory condition requires.
type DecisionOption struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Category    DecisionCategory `json:"category"`
	Trivial     bool             `json:"trivial,omitempty"`
	Impact      []EntityImpact   `json:"impact,omitempty"`
}

// ResolvedChoice records the externally supplied answer to a decision.
type ResolvedChoice struct {
	OptionID  string    `json:"option_id"`
	Notes     string    `json:"notes,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// Decision is created at an interactive suspension point and consumed once.
//
// Situation carries the full run context a human needs to choose: the
// snapshot at suspension time plus the tail of the accepted timeline. The
// orchestrator serializes its remaining state separately; the decision is
// the externally visible half.
type Decision struct {
	ID         string           `json:"id"`
	ScenarioID string           `json:"scenario_id"`
	Phase      Phase            `json:"phase"`
	Situation  Situation        `json:"situation"`
	Options    []DecisionOption `json:"options"`
	Resolved   *ResolvedChoice  `json:"resolved,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Situation is the frozen context presented with a decision.
type Situation struct {
	Snapshot      Snapshot `json:"snapshot"`
	RecentInjects []Inject `json:"recent_injects"`
	Iteration     int      `json:"iteration"`
	Summary       string   `json:"summary,omitempty"`
}

// NewDecision creates an unresolved decision for the given run state.
func NewDecision(s *Scenario, snap Snapshot, options []DecisionOption) *Decision {
	return &Decision{
		ID:         uuid.NewString(),
		ScenarioID: s.ID,
		Phase:      s.CurrentPhase,
		Situation: Situation{
			Snapshot:      snap.Clone(),
			RecentInjects: s.RecentInjects(3),
			Iteration:     s.Iteration,
		},
		Options:   options,
		CreatedAt: time.Now().UTC(),
	}
}

// Option returns the option with the given id, or nil.
func (d *Decision) Option(id string) *DecisionOption {
	for i := range d.Options {
		if d.Options[i].ID == id {
			return &d.Options[i]
		}
	}
	return nil
}

// Resolve marks the decision as consumed with the given option id.
// Resolving twice or with an unknown option id returns false.
func (d *Decision) Resolve(optionID, notes string) bool {
	if d.Resolved != nil || d.Option(optionID) == nil {
		return false
	}
	d.Resolved = &ResolvedChoice{
		OptionID:  optionID,
		Notes:     notes,
		DecidedAt: time.Now().UTC(),
	}
	return true
}
