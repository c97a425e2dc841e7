package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

func snapshotWith(statuses map[string]scenario.EntityStatus, critical map[string]bool) scenario.Snapshot {
	snap := scenario.Snapshot{}
	for id, st := range statuses {
		snap[id] = scenario.Entity{ID: id, Name: id, Status: st, Critical: critical[id]}
	}
	return snap
}

func scenarioWith(phase scenario.Phase, injects []scenario.Inject) *scenario.Scenario {
	s := scenario.New(scenario.TypeRansomware)
	s.CurrentPhase = phase
	s.Injects = injects
	return s
}

func repeatInjects(n int, sev scenario.Severity, content string) []scenario.Inject {
	out := make([]scenario.Inject, n)
	for i := range out {
		out[i] = scenario.Inject{Severity: sev, Content: content}
	}
	return out
}

func TestEvaluateEnd(t *testing.T) {
	cleanContent := "The team reviews firewall rules and confirms normal operations."
	dirtyContent := "The attacker encrypts the finance file server."

	tests := []struct {
		name    string
		scn     *scenario.Scenario
		snap    scenario.Snapshot
		stats   DecisionStats
		want    scenario.EndCondition
	}{
		{
			name: "continue on quiet start",
			scn:  scenarioWith(scenario.PhaseNormal, repeatInjects(1, scenario.SeverityLow, cleanContent)),
			snap: snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityActive}, nil),
			want: scenario.EndContinue,
		},
		{
			name: "fatal when most critical entities are compromised",
			scn:  scenarioWith(scenario.PhaseExfiltration, repeatInjects(2, scenario.SeverityHigh, dirtyContent)),
			snap: snapshotWith(
				map[string]scenario.EntityStatus{
					"a": scenario.EntityCompromised,
					"b": scenario.EntityEncrypted,
					"c": scenario.EntityActive,
				},
				map[string]bool{"a": true, "b": true, "c": true},
			),
			want: scenario.EndFatal,
		},
		{
			name:  "fatal on sustained severe injects without counter-measures",
			scn:   scenarioWith(scenario.PhaseEscalation, repeatInjects(6, scenario.SeverityHigh, dirtyContent)),
			snap:  snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityActive}, nil),
			stats: DecisionStats{CounterMeasures: 1},
			want:  scenario.EndFatal,
		},
		{
			name:  "not fatal when counter-measures were taken",
			scn:   scenarioWith(scenario.PhaseEscalation, repeatInjects(6, scenario.SeverityHigh, cleanContent)),
			snap:  snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityActive}, nil),
			stats: DecisionStats{CounterMeasures: 2},
			want:  scenario.EndContinue,
		},
		{
			name:  "victory in recovery with enough responses",
			scn:   scenarioWith(scenario.PhaseRecovery, repeatInjects(5, scenario.SeverityMedium, cleanContent)),
			snap:  snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityCompromised}, nil),
			stats: DecisionStats{NonTrivialResponses: 3},
			want:  scenario.EndVictory,
		},
		{
			name:  "victory in containment with a clean recent timeline",
			scn:   scenarioWith(scenario.PhaseContainment, repeatInjects(4, scenario.SeverityMedium, cleanContent)),
			snap:  snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityIsolated}, nil),
			stats: DecisionStats{Containments: 2},
			want:  scenario.EndVictory,
		},
		{
			name:  "no containment victory while attacker progress shows",
			scn:   scenarioWith(scenario.PhaseContainment, repeatInjects(4, scenario.SeverityMedium, dirtyContent)),
			snap:  snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityIsolated}, nil),
			stats: DecisionStats{Containments: 2},
			want:  scenario.EndContinue,
		},
		{
			name: "normal end in recovery with nothing compromised",
			scn:  scenarioWith(scenario.PhaseRecovery, repeatInjects(5, scenario.SeverityLow, cleanContent)),
			snap: snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityActive}, nil),
			want: scenario.EndNormalEnd,
		},
		{
			name: "recovery with compromised entities keeps going",
			scn:  scenarioWith(scenario.PhaseRecovery, repeatInjects(5, scenario.SeverityLow, cleanContent)),
			snap: snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityCompromised}, nil),
			want: scenario.EndContinue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateEnd(tt.scn, tt.snap, tt.stats))
		})
	}
}

func TestEvaluateEnd_TerminalIsSticky(t *testing.T) {
	scn := scenarioWith(scenario.PhaseRecovery, repeatInjects(5, scenario.SeverityLow, "all clear"))
	scn.EndCondition = scenario.EndFatal

	snap := snapshotWith(map[string]scenario.EntityStatus{"a": scenario.EntityActive}, nil)
	got := EvaluateEnd(scn, snap, DecisionStats{NonTrivialResponses: 5})
	assert.Equal(t, scenario.EndFatal, got)
}
