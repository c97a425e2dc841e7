package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

func draftInject(offset string, phase scenario.Phase, technique string, entities ...string) scenario.Inject {
	return scenario.Inject{
		ID:               "inj-test",
		TimeOffset:       offset,
		Phase:            phase,
		TechniqueID:      technique,
		AffectedEntities: entities,
		Content:          "suspicious authentication activity observed on the domain controller",
	}
}

func TestScore_EmptyHistory(t *testing.T) {
	e := NewEngine()
	draft := draftInject("T+00:00:10", scenario.PhaseInitialAccess, "PHISH-T1566", "ws-1")

	m := e.Score(draft, nil, nil)

	assert.Equal(t, 1.0, m.Logical)
	assert.Equal(t, 1.0, m.Causal)
	assert.Equal(t, 1.0, m.Compliance)
	assert.Equal(t, 1.0, m.Temporal)
	assert.Equal(t, 1.0, m.Asset)
	assert.InDelta(t, 1.0, m.Overall, 1e-9)
}

func TestScore_OverallInRange(t *testing.T) {
	e := NewEngine()
	history := []scenario.Inject{
		draftInject("T+00:01:00", scenario.PhaseInitialAccess, "PHISH-T1566", "ws-1"),
	}
	drafts := []scenario.Inject{
		draftInject("T+00:00:30", scenario.PhaseNormal, "EXFIL-T1041", "x-9"),
		draftInject("T+00:02:00", scenario.PhaseEscalation, "", "ws-1"),
		{ID: "empty"},
	}
	for i, d := range drafts {
		m := e.Score(d, history, nil)
		assert.GreaterOrEqual(t, m.Overall, 0.0, "draft %d", i)
		assert.LessOrEqual(t, m.Overall, 1.0, "draft %d", i)
		assert.LessOrEqual(t, m.Confidence.Lower, m.Overall, "draft %d", i)
		assert.GreaterOrEqual(t, m.Confidence.Upper, m.Overall, "draft %d", i)
	}
}

func TestLogicalScore_Deductions(t *testing.T) {
	history := []scenario.Inject{
		{
			TimeOffset:       "T+00:02:00",
			Phase:            scenario.PhaseEscalation,
			AffectedEntities: []string{"srv-1", "srv-2"},
			Content:          "attacker escalated privileges on srv-1 using stolen credentials",
		},
	}

	// shares entities, overlapping narrative, later, same phase: no deductions
	clean := scenario.Inject{
		TimeOffset:       "T+00:03:00",
		Phase:            scenario.PhaseEscalation,
		AffectedEntities: []string{"srv-1"},
		Content:          "attacker used stolen credentials to create a persistence mechanism on srv-1",
	}
	assert.InDelta(t, 1.0, logicalScore(clean, history), 1e-9)

	// disjoint entities, disjoint narrative, earlier offset, earlier phase
	broken := scenario.Inject{
		TimeOffset:       "T+00:01:00",
		Phase:            scenario.PhaseNormal,
		AffectedEntities: []string{"other-9"},
		Content:          "routine backup completed",
	}
	assert.InDelta(t, 0.0, logicalScore(broken, history), 1e-9)
}

func TestCausalScore(t *testing.T) {
	// no technique id: fixed default
	assert.Equal(t, causalDefault,
		causalScore(scenario.Inject{Phase: scenario.PhaseNormal}))

	// compatible pair: full score
	assert.InDelta(t, 1.0,
		causalScore(scenario.Inject{Phase: scenario.PhaseExfiltration, TechniqueID: "EXFIL-T1041"}), 1e-9)

	// incompatible and impossible: both deductions apply
	assert.InDelta(t, 1.0-deductTechniquePhase-deductImpossibleSequence,
		causalScore(scenario.Inject{Phase: scenario.PhaseNormal, TechniqueID: "EXFIL-T1041"}), 1e-9)
}

func TestComplianceScore(t *testing.T) {
	assert.Equal(t, 1.0, complianceScore(nil))

	full := []ComplianceResult{{Standard: "nis2", Met: []string{"a", "b"}}}
	assert.InDelta(t, 1.0, complianceScore(full), 1e-9)

	half := []ComplianceResult{{Standard: "nis2", Met: []string{"a"}, Missing: []string{"b"}}}
	assert.InDelta(t, 0.3+0.7*0.5, complianceScore(half), 1e-9)

	none := []ComplianceResult{{Standard: "nis2", Missing: []string{"a", "b"}}}
	assert.InDelta(t, 0.3, complianceScore(none), 1e-9)
}

func TestTemporalScore(t *testing.T) {
	history := []scenario.Inject{{TimeOffset: "T+00:00:10"}}

	assert.Equal(t, 1.0, temporalScore(scenario.Inject{TimeOffset: "T+00:00:11"}, history))
	assert.Equal(t, 0.8, temporalScore(scenario.Inject{TimeOffset: "T+00:00:10"}, history))
	assert.Equal(t, 0.0, temporalScore(scenario.Inject{TimeOffset: "T+00:00:05"}, history))
	assert.Equal(t, 1.0, temporalScore(scenario.Inject{TimeOffset: "T+00:00:05"}, nil))
}

func TestAssetScore(t *testing.T) {
	history := []scenario.Inject{
		{AffectedEntities: []string{"a", "b"}},
		{AffectedEntities: []string{"b", "c"}},
	}

	// {a,b} vs union {a,b,c}
	got := assetScore(scenario.Inject{AffectedEntities: []string{"a", "b"}}, history)
	assert.InDelta(t, 2.0/3.0, got, 1e-9)

	// disjoint
	got = assetScore(scenario.Inject{AffectedEntities: []string{"z"}}, history)
	assert.InDelta(t, 0.0, got, 1e-9)

	assert.Equal(t, 1.0, assetScore(scenario.Inject{}, nil))
}

func TestConfidenceInterval(t *testing.T) {
	// fewer than two samples: zero width
	ci := confidenceInterval(0.8, 1)
	assert.Equal(t, 0.8, ci.Lower)
	assert.Equal(t, 0.8, ci.Upper)

	ci = confidenceInterval(0.8, 25)
	assert.Less(t, ci.Lower, 0.8)
	assert.Greater(t, ci.Upper, 0.8)
	assert.GreaterOrEqual(t, ci.Lower, 0.0)
	assert.LessOrEqual(t, ci.Upper, 1.0)
}

func TestSignificance(t *testing.T) {
	flat := []float64{0.8, 0.8, 0.8, 0.8}
	p, sig := significance(0.8, flat)
	assert.Equal(t, 0.5, p)
	assert.False(t, sig)

	// flat window, clear break
	p, sig = significance(0.2, flat)
	assert.Equal(t, 0.05, p)
	assert.True(t, sig)

	// varied window, outlier breaks the trend
	varied := []float64{0.78, 0.82, 0.80, 0.79, 0.81}
	p, sig = significance(0.2, varied)
	assert.Equal(t, 0.05, p)
	assert.True(t, sig)

	// within trend
	_, sig = significance(0.80, varied)
	assert.False(t, sig)

	// too little history
	p, sig = significance(0.1, []float64{0.9})
	assert.Equal(t, 0.5, p)
	assert.False(t, sig)
}

func TestEngine_HistoryRingBuffer(t *testing.T) {
	e := NewEngine()
	for i := 0; i < maxHistory+20; i++ {
		e.Score(draftInject(fmt.Sprintf("T+00:%02d:%02d", i/60, i%60),
			scenario.PhaseInitialAccess, "PHISH-T1566", "ws-1"), nil, nil)
	}
	require.Equal(t, maxHistory, e.HistoryLen())
}
