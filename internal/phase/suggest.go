package phase

import "github.com/fyrsmithlabs/scenariod/internal/scenario"

// escalationTarget picks the most aggressive legal successor per phase,
// used when a high-severity inject warrants pushing the narrative forward.
var escalationTarget = map[scenario.Phase]scenario.Phase{
	scenario.PhaseNormal:        scenario.PhaseInitialAccess,
	scenario.PhaseInitialAccess: scenario.PhaseEscalation,
	scenario.PhaseEscalation:    scenario.PhaseExfiltration,
	scenario.PhaseLateral:       scenario.PhaseExfiltration,
	scenario.PhaseExfiltration:  scenario.PhaseContainment,
	scenario.PhaseContainment:   scenario.PhaseEscalation,
	scenario.PhaseRecovery:      scenario.PhaseNormal,
}

// advanceTarget is the default forward step taken once a phase has produced
// at least one inject.
var advanceTarget = map[scenario.Phase]scenario.Phase{
	scenario.PhaseNormal:        scenario.PhaseInitialAccess,
	scenario.PhaseInitialAccess: scenario.PhaseEscalation,
	scenario.PhaseEscalation:    scenario.PhaseLateral,
	scenario.PhaseLateral:       scenario.PhaseExfiltration,
	scenario.PhaseExfiltration:  scenario.PhaseContainment,
	scenario.PhaseContainment:   scenario.PhaseRecovery,
	scenario.PhaseRecovery:      scenario.PhaseNormal,
}

// SuggestNext proposes the phase for the next inject using a deterministic
// rule table:
//
//  1. High or Critical severity escalates toward the aggressive successor.
//  2. Low severity in the opening phases reads as a false positive and
//     falls back to Normal.
//  3. Once the current phase has produced an inject, advance forward.
//  4. Otherwise stay put and let the phase develop.
//
// The suggestion is advisory: every proposed transition is still checked by
// CanTransition during validation.
func SuggestNext(current scenario.Phase, injectCount int, severity scenario.Severity) scenario.Phase {
	if !current.Valid() {
		return Initial()
	}

	if severity == scenario.SeverityHigh || severity == scenario.SeverityCritical {
		if next, ok := escalationTarget[current]; ok && CanTransition(current, next) {
			return next
		}
	}

	if severity == scenario.SeverityLow &&
		(current == scenario.PhaseNormal || current == scenario.PhaseInitialAccess) {
		return scenario.PhaseNormal
	}

	if injectCount >= 1 {
		if next, ok := advanceTarget[current]; ok && CanTransition(current, next) {
			return next
		}
	}

	return current
}
