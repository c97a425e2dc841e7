package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

func TestCanTransition_ForwardEdges(t *testing.T) {
	tests := []struct {
		from, to scenario.Phase
		want     bool
	}{
		{scenario.PhaseNormal, scenario.PhaseInitialAccess, true},
		{scenario.PhaseInitialAccess, scenario.PhaseEscalation, true},
		{scenario.PhaseEscalation, scenario.PhaseExfiltration, true},
		{scenario.PhaseLateral, scenario.PhaseExfiltration, true},
		{scenario.PhaseExfiltration, scenario.PhaseContainment, true},
		{scenario.PhaseContainment, scenario.PhaseRecovery, true},

		// skipping ahead is not legal
		{scenario.PhaseNormal, scenario.PhaseExfiltration, false},
		{scenario.PhaseNormal, scenario.PhaseRecovery, false},
		{scenario.PhaseInitialAccess, scenario.PhaseExfiltration, false},
		{scenario.PhaseExfiltration, scenario.PhaseNormal, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestCanTransition_BackEdges(t *testing.T) {
	// containment may re-escalate
	assert.True(t, CanTransition(scenario.PhaseContainment, scenario.PhaseEscalation))
	// recovery returns to normal
	assert.True(t, CanTransition(scenario.PhaseRecovery, scenario.PhaseNormal))
	// false positive de-escalation
	assert.True(t, CanTransition(scenario.PhaseInitialAccess, scenario.PhaseNormal))
}

func TestCanTransition_SamePhase(t *testing.T) {
	for _, p := range scenario.AllPhases() {
		assert.True(t, CanTransition(p, p), "%s -> %s", p, p)
	}
}

func TestCanTransition_UnknownPhase(t *testing.T) {
	assert.False(t, CanTransition(scenario.Phase("bogus"), scenario.PhaseNormal))
	assert.False(t, CanTransition(scenario.PhaseNormal, scenario.Phase("bogus")))
}

func TestCanTransition_Deterministic(t *testing.T) {
	// derived purely from the static table: repeated calls never diverge
	for i := 0; i < 3; i++ {
		assert.True(t, CanTransition(scenario.PhaseContainment, scenario.PhaseEscalation))
		assert.False(t, CanTransition(scenario.PhaseNormal, scenario.PhaseRecovery))
	}
}

func TestNextPhases(t *testing.T) {
	next := NextPhases(scenario.PhaseContainment)
	assert.ElementsMatch(t, []scenario.Phase{
		scenario.PhaseContainment,
		scenario.PhaseRecovery,
		scenario.PhaseEscalation,
	}, next)

	assert.Nil(t, NextPhases(scenario.Phase("bogus")))
}

func TestNextPhases_AllLegal(t *testing.T) {
	for _, p := range scenario.AllPhases() {
		for _, next := range NextPhases(p) {
			assert.True(t, CanTransition(p, next), "%s -> %s", p, next)
		}
	}
}

func TestSuggestNext_Escalation(t *testing.T) {
	got := SuggestNext(scenario.PhaseInitialAccess, 0, scenario.SeverityCritical)
	assert.Equal(t, scenario.PhaseEscalation, got)

	got = SuggestNext(scenario.PhaseEscalation, 2, scenario.SeverityHigh)
	assert.Equal(t, scenario.PhaseExfiltration, got)
}

func TestSuggestNext_LowSeverityFalsePositive(t *testing.T) {
	got := SuggestNext(scenario.PhaseInitialAccess, 1, scenario.SeverityLow)
	assert.Equal(t, scenario.PhaseNormal, got)

	got = SuggestNext(scenario.PhaseNormal, 0, scenario.SeverityLow)
	assert.Equal(t, scenario.PhaseNormal, got)
}

func TestSuggestNext_AdvanceAfterFirstInject(t *testing.T) {
	assert.Equal(t, scenario.PhaseInitialAccess,
		SuggestNext(scenario.PhaseNormal, 1, scenario.SeverityMedium))

	// phase not yet developed: stay
	assert.Equal(t, scenario.PhaseEscalation,
		SuggestNext(scenario.PhaseEscalation, 0, scenario.SeverityMedium))
}

func TestSuggestNext_AlwaysLegal(t *testing.T) {
	severities := []scenario.Severity{
		scenario.SeverityLow, scenario.SeverityMedium,
		scenario.SeverityHigh, scenario.SeverityCritical,
	}
	for _, p := range scenario.AllPhases() {
		for _, sev := range severities {
			for _, count := range []int{0, 1, 4} {
				next := SuggestNext(p, count, sev)
				assert.True(t, CanTransition(p, next),
					"suggestion %s -> %s (count=%d sev=%s)", p, next, count, sev)
			}
		}
	}
}

func TestInitial(t *testing.T) {
	assert.Equal(t, scenario.PhaseNormal, Initial())
}
