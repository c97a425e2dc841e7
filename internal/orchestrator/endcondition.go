package orchestrator

import (
	"strings"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// End-condition thresholds.
const (
	fatalCriticalRatio   = 0.6
	fatalSevereInjects   = 6
	victoryMinInjects    = 5
	victoryMinResponses  = 3
	victoryMinContain    = 2
	normalEndMinInjects  = 5
	requiredCleanInjects = 3
)

// EvaluateEnd classifies the run after a commit. Pure over its inputs: the
// scenario timeline, the snapshot taken after world-state mutation, and the
// resolved-decision counters. A terminal condition already set is returned
// unchanged; otherwise the only transitions are Continue to one of Fatal,
// Victory or NormalEnd, checked in that order.
func EvaluateEnd(s *scenario.Scenario, snap scenario.Snapshot, stats DecisionStats) scenario.EndCondition {
	if s.EndCondition.Terminal() {
		return s.EndCondition
	}

	if snap.CriticalRatioCompromised() > fatalCriticalRatio {
		return scenario.EndFatal
	}
	if s.CountSevereInjects() >= fatalSevereInjects && stats.CounterMeasures < 2 {
		return scenario.EndFatal
	}

	if s.CurrentPhase == scenario.PhaseRecovery &&
		stats.NonTrivialResponses >= victoryMinResponses &&
		len(s.Injects) >= victoryMinInjects {
		return scenario.EndVictory
	}
	if s.CurrentPhase == scenario.PhaseContainment &&
		stats.Containments >= victoryMinContain &&
		lastInjectsClean(s, requiredCleanInjects) {
		return scenario.EndVictory
	}

	if s.CurrentPhase == scenario.PhaseRecovery &&
		len(s.Injects) >= normalEndMinInjects &&
		len(snap.Compromised()) == 0 {
		return scenario.EndNormalEnd
	}

	return scenario.EndContinue
}

// compromiseMarkers are narrative fragments that indicate active attacker
// progress. The containment victory requires the recent timeline to be free
// of them.
var compromiseMarkers = []string{
	"compromis",
	"breach",
	"encrypt",
	"exfiltrat",
	"ransom",
	"malware",
}

func lastInjectsClean(s *scenario.Scenario, n int) bool {
	recent := s.RecentInjects(n)
	if len(recent) < n {
		return false
	}
	for _, in := range recent {
		lower := strings.ToLower(in.Content)
		for _, marker := range compromiseMarkers {
			if strings.Contains(lower, marker) {
				return false
			}
		}
	}
	return true
}
