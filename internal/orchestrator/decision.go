package orchestrator

import (
	"fmt"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// highRiskPhases trigger a decision on first entry even when the regular
// interval has not elapsed.
var highRiskPhases = map[scenario.Phase]bool{
	scenario.PhaseExfiltration: true,
	scenario.PhaseContainment:  true,
}

// shouldTriggerDecision is evaluated after every commit in interactive mode.
func (o *Orchestrator) shouldTriggerDecision() bool {
	if !o.cfg.Interactive {
		return false
	}
	if o.acceptedSinceDecision >= o.cfg.DecisionInterval {
		return true
	}
	if highRiskPhases[o.scn.CurrentPhase] && !o.decidedPhases[o.scn.CurrentPhase] {
		return true
	}
	return false
}

// buildOptions derives the choices offered at a suspension point from the
// just-committed inject: one containment, one counter-measure, one escalation
// and a trivial observe option.
func buildOptions(committed scenario.Inject, snap scenario.Snapshot) []scenario.DecisionOption {
	target := ""
	if len(committed.AffectedEntities) > 0 {
		target = committed.AffectedEntities[0]
	}

	options := []scenario.DecisionOption{
		{
			ID:          "escalate-ir",
			Label:       "Escalate to the incident response team",
			Description: "Declare an incident and hand coordination to the IR lead.",
			Category:    scenario.CategoryResponse,
		},
		{
			ID:          "revoke-credentials",
			Label:       "Revoke potentially exposed credentials",
			Description: "Force password resets and invalidate active sessions.",
			Category:    scenario.CategoryCounterMeasure,
		},
		{
			ID:       "observe",
			Label:    "Continue monitoring",
			Category: scenario.CategoryObserve,
			Trivial:  true,
		},
	}

	// isolation needs a named target entity
	if target != "" {
		name := target
		if e, ok := snap[target]; ok && e.Name != "" {
			name = e.Name
		}
		options = append([]scenario.DecisionOption{{
			ID:          "isolate-" + target,
			Label:       fmt.Sprintf("Isolate %s from the network", name),
			Description: "Cut network access for the affected entity to stop spread.",
			Category:    scenario.CategoryContainment,
			Impact:      []scenario.EntityImpact{{EntityID: target, NewStatus: scenario.EntityIsolated}},
		}}, options...)
	}
	return options
}

// recordResolution folds a resolved option into the decision counters.
func (o *Orchestrator) recordResolution(opt *scenario.DecisionOption) {
	switch opt.Category {
	case scenario.CategoryCounterMeasure:
		o.stats.CounterMeasures++
	case scenario.CategoryContainment:
		o.stats.Containments++
	}
	if !opt.Trivial {
		o.stats.NonTrivialResponses++
	}
}
