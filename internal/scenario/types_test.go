package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InitialState(t *testing.T) {
	s := New(TypeRansomware)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, TypeRansomware, s.Type)
	assert.Equal(t, PhaseNormal, s.CurrentPhase)
	assert.Equal(t, EndContinue, s.EndCondition)
	assert.Empty(t, s.Injects)
	assert.Equal(t, 0, s.Iteration)
}

func TestScenario_LatestOffset(t *testing.T) {
	s := New(TypePhishing)
	assert.Equal(t, 0, s.LatestOffset())

	s.Injects = append(s.Injects,
		Inject{TimeOffset: "T+00:00:10"},
		Inject{TimeOffset: "T+00:01:00"},
	)
	assert.Equal(t, 60, s.LatestOffset())
}

func TestScenario_RecentInjects(t *testing.T) {
	s := New(TypePhishing)
	for i := 0; i < 5; i++ {
		s.Injects = append(s.Injects, Inject{ID: string(rune('a' + i))})
	}

	recent := s.RecentInjects(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "e", recent[2].ID)

	assert.Len(t, s.RecentInjects(10), 5)
	assert.Nil(t, s.RecentInjects(0))
}

func TestScenario_CountSevereInjects(t *testing.T) {
	s := New(TypeRansomware)
	s.Injects = []Inject{
		{Severity: SeverityLow},
		{Severity: SeverityHigh},
		{Severity: SeverityCritical},
		{Severity: SeverityMedium},
	}
	assert.Equal(t, 2, s.CountSevereInjects())
}

func TestSnapshot_CriticalRatioCompromised(t *testing.T) {
	snap := Snapshot{
		"dc-1":  {ID: "dc-1", Critical: true, Status: EntityCompromised},
		"db-1":  {ID: "db-1", Critical: true, Status: EntityActive},
		"ws-1":  {ID: "ws-1", Critical: false, Status: EntityCompromised},
		"fs-1":  {ID: "fs-1", Critical: true, Status: EntityEncrypted},
		"mail1": {ID: "mail1", Critical: false, Status: EntityActive},
	}
	assert.InDelta(t, 2.0/3.0, snap.CriticalRatioCompromised(), 1e-9)

	assert.Zero(t, Snapshot{}.CriticalRatioCompromised())
}

func TestSnapshot_Clone_NoAliasing(t *testing.T) {
	snap := Snapshot{"a-1": {ID: "a-1", Status: EntityActive}}
	clone := snap.Clone()
	clone["a-1"] = Entity{ID: "a-1", Status: EntityCompromised}

	assert.Equal(t, EntityActive, snap["a-1"].Status)
}

func TestEndCondition_Terminal(t *testing.T) {
	assert.False(t, EndContinue.Terminal())
	assert.True(t, EndFatal.Terminal())
	assert.True(t, EndVictory.Terminal())
	assert.True(t, EndNormalEnd.Terminal())
}

func TestDecision_ResolveOnce(t *testing.T) {
	s := New(TypeRansomware)
	d := NewDecision(s, Snapshot{}, []DecisionOption{
		{ID: "isolate", Category: CategoryContainment},
		{ID: "wait", Category: CategoryObserve, Trivial: true},
	})

	require.True(t, d.Resolve("isolate", ""))
	require.NotNil(t, d.Resolved)
	assert.Equal(t, "isolate", d.Resolved.OptionID)

	// consumed once; a second resolution is rejected
	assert.False(t, d.Resolve("wait", ""))
	assert.Equal(t, "isolate", d.Resolved.OptionID)
}

func TestDecision_ResolveUnknownOption(t *testing.T) {
	s := New(TypeRansomware)
	d := NewDecision(s, Snapshot{}, []DecisionOption{{ID: "isolate"}})
	assert.False(t, d.Resolve("nope", ""))
	assert.Nil(t, d.Resolved)
}

func TestTechniqueTables(t *testing.T) {
	// listed impossible sequence blocks regardless of suffix
	assert.True(t, ImpossibleSequence("EXFIL", PhaseNormal))
	assert.True(t, ImpossibleSequence("EXFIL-T1041", PhaseNormal))
	assert.False(t, ImpossibleSequence("EXFIL", PhaseExfiltration))

	assert.True(t, TechniqueCompatible("EXFIL-T1041", PhaseExfiltration))
	assert.False(t, TechniqueCompatible("EXFIL-T1041", PhaseContainment))

	// unknown families are not penalized
	assert.True(t, TechniqueCompatible("MYSTERY-1", PhaseNormal))
	assert.False(t, ImpossibleSequence("MYSTERY-1", PhaseNormal))
}
