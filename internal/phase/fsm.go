// Package phase gates scenario progression through a static transition
// table. The FSM has a fixed initial state (scenario.PhaseNormal) and no
// terminal state: deciding when a run ends belongs to the orchestrator.
package phase

import (
	"sort"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// transitions is the fixed adjacency table. Forward edges follow the
// canonical attack progression; the two back-edges are deliberate:
//   - Containment -> Escalation: a contained attacker may re-escalate.
//   - Recovery -> Normal: a recovered environment returns to baseline.
//   - InitialAccess -> Normal: a suspected foothold turns out to be a
//     false positive and operations de-escalate.
//
// Staying in the current phase is always legal and is not listed here.
var transitions = map[scenario.Phase][]scenario.Phase{
	scenario.PhaseNormal:        {scenario.PhaseInitialAccess},
	scenario.PhaseInitialAccess: {scenario.PhaseEscalation, scenario.PhaseLateral, scenario.PhaseContainment, scenario.PhaseNormal},
	scenario.PhaseEscalation:    {scenario.PhaseLateral, scenario.PhaseExfiltration, scenario.PhaseContainment},
	scenario.PhaseLateral:       {scenario.PhaseEscalation, scenario.PhaseExfiltration, scenario.PhaseContainment},
	scenario.PhaseExfiltration:  {scenario.PhaseContainment},
	scenario.PhaseContainment:   {scenario.PhaseRecovery, scenario.PhaseEscalation},
	scenario.PhaseRecovery:      {scenario.PhaseNormal},
}

// CanTransition reports whether moving from one phase to another is legal.
// The answer is derived purely from the static table; no hidden state.
func CanTransition(from, to scenario.Phase) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextPhases returns the legal successors of a phase, the phase itself
// included, sorted for deterministic iteration.
func NextPhases(from scenario.Phase) []scenario.Phase {
	if !from.Valid() {
		return nil
	}
	out := make([]scenario.Phase, 0, len(transitions[from])+1)
	out = append(out, from)
	out = append(out, transitions[from]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Initial returns the fixed initial phase of every scenario.
func Initial() scenario.Phase {
	return scenario.PhaseNormal
}
