package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/scenariod/internal/critic"
	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
	"github.com/fyrsmithlabs/scenariod/internal/worldstate"
)

// fakeReviewer returns scripted verdicts in order, repeating the last one.
type fakeReviewer struct {
	verdicts []critic.Verdict
	calls    int
	requests []critic.Request
}

func (f *fakeReviewer) Review(_ context.Context, req critic.Request) critic.Verdict {
	f.requests = append(f.requests, req)
	i := f.calls
	if i >= len(f.verdicts) {
		i = len(f.verdicts) - 1
	}
	f.calls++
	return f.verdicts[i]
}

func validVerdict() critic.Verdict {
	return critic.Verdict{
		IsValid:  true,
		SchemaOK: true, FSMOK: true, StateOK: true, TemporalOK: true,
		LogicalOK:       true,
		ComplianceOK:    true,
		SemanticChecked: true,
	}
}

func invalidVerdict(msg string) critic.Verdict {
	return critic.Verdict{
		SchemaOK: true, FSMOK: true, StateOK: true, TemporalOK: true,
		Errors:      []critic.Issue{{Kind: critic.KindSemantic, Severity: critic.SeverityHard, Message: msg}},
		Explanation: msg,
	}
}

// staticTechniques serves a fixed candidate list.
type staticTechniques struct{ techniques []scenario.Technique }

func (s staticTechniques) TechniquesForPhase(context.Context, scenario.Phase, int) []scenario.Technique {
	return s.techniques
}

// recordingOracle wraps the stub and keeps every draft request.
type recordingOracle struct {
	*oracle.Stub
	draftRequests []oracle.DraftRequest
}

func (r *recordingOracle) Draft(ctx context.Context, req oracle.DraftRequest) (oracle.DraftResult, error) {
	r.draftRequests = append(r.draftRequests, req)
	return r.Stub.Draft(ctx, req)
}

func newTestStore(t *testing.T) *worldstate.Store {
	t.Helper()
	entities, deps := worldstate.DefaultTopology()
	return worldstate.NewStore(entities, deps, nil)
}

func newTestOrchestrator(t *testing.T, cfg Config, reviewer Reviewer, o oracle.Oracle) *Orchestrator {
	t.Helper()
	orch, err := New(cfg, scenario.New(scenario.TypePhishing), Deps{
		Oracle:     o,
		Critic:     reviewer,
		Techniques: staticTechniques{techniques: []scenario.Technique{{ID: "RECON-T1595", Name: "Active Scanning"}}},
		World:      newTestStore(t),
	})
	require.NoError(t, err)
	return orch
}

func TestStep_CommitsValidDraft(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	orch := newTestOrchestrator(t, Config{}, reviewer, oracle.NewStub())

	require.NoError(t, orch.Step(context.Background()))

	scn := orch.Scenario()
	require.Len(t, scn.Injects, 1)
	assert.Equal(t, scenario.StatusAccepted, scn.Injects[0].Status)
	assert.False(t, scn.Injects[0].ForceAccepted)
	assert.Equal(t, 1, scn.Iteration)
	assert.Equal(t, StatusRunning, orch.Status())
	assert.Equal(t, 1, reviewer.calls)
}

// Three straight semantic failures exhaust the refine budget; the third
// attempt is accepted anyway, flagged, with the violations fed back into
// attempts two and three.
func TestStep_ForceAcceptAfterRefineBudget(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{
		invalidVerdict("narrative contradicts the timeline"),
		invalidVerdict("narrative still contradicts the timeline"),
		invalidVerdict("narrative contradicts the timeline a third time"),
	}}
	recOracle := &recordingOracle{Stub: oracle.NewStub()}
	orch := newTestOrchestrator(t, Config{RefineBudget: 2}, reviewer, recOracle)

	require.NoError(t, orch.Step(context.Background()))

	scn := orch.Scenario()
	require.Len(t, scn.Injects, 1)
	assert.True(t, scn.Injects[0].ForceAccepted)
	assert.Equal(t, scenario.StatusAccepted, scn.Injects[0].Status)
	assert.Equal(t, 3, reviewer.calls)

	require.Len(t, recOracle.draftRequests, 3)
	assert.Nil(t, recOracle.draftRequests[0].Feedback)
	require.NotNil(t, recOracle.draftRequests[1].Feedback)
	assert.Contains(t, recOracle.draftRequests[1].Feedback.Errors[0], "contradicts the timeline")
	require.NotNil(t, recOracle.draftRequests[2].Feedback)
}

func TestStep_RefineSucceedsWithinBudget(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{
		invalidVerdict("first attempt rejected"),
		validVerdict(),
	}}
	orch := newTestOrchestrator(t, Config{RefineBudget: 2}, reviewer, oracle.NewStub())

	require.NoError(t, orch.Step(context.Background()))

	scn := orch.Scenario()
	require.Len(t, scn.Injects, 1)
	assert.False(t, scn.Injects[0].ForceAccepted)
	assert.Equal(t, 2, reviewer.calls)
}

func TestStep_ContextCancelled(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	orch := newTestOrchestrator(t, Config{}, reviewer, oracle.NewStub())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := orch.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, orch.Scenario().Injects)
}

func TestRun_StopsAtIterationCeiling(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	orch := newTestOrchestrator(t, Config{MaxIterations: 2}, reviewer, oracle.NewStub())

	scn, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusFinished, orch.Status())
	assert.Len(t, scn.Injects, 2)
	assert.Contains(t, orch.StopReason(), "max iterations")
	// a ceiling stop is not a scenario end condition
	assert.Equal(t, scenario.EndContinue, scn.EndCondition)
}

func TestRun_SuspendsOnDecisionInterval(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	orch := newTestOrchestrator(t, Config{Interactive: true, DecisionInterval: 3}, reviewer, oracle.NewStub())

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuspended, orch.Status())
	require.Len(t, orch.Scenario().Injects, 3)

	d := orch.PendingDecision()
	require.NotNil(t, d)
	assert.NotEmpty(t, d.Options)
	assert.Equal(t, orch.Scenario().ID, d.ScenarioID)
	assert.NotEmpty(t, d.Situation.RecentInjects)

	// stepping while suspended is refused
	assert.ErrorIs(t, orch.Step(context.Background()), ErrSuspended)
}

func TestResume_AppliesDeclaredImpactFirst(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	store := newTestStore(t)
	orch, err := New(Config{Interactive: true, DecisionInterval: 1}, scenario.New(scenario.TypePhishing), Deps{
		Oracle:     oracle.NewStub(),
		Critic:     reviewer,
		Techniques: staticTechniques{},
		World:      store,
	})
	require.NoError(t, err)

	_, err = orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, orch.Status())

	d := orch.PendingDecision()
	require.NotNil(t, d)

	var isolate *scenario.DecisionOption
	for i := range d.Options {
		if d.Options[i].Category == scenario.CategoryContainment {
			isolate = &d.Options[i]
		}
	}
	require.NotNil(t, isolate, "a containment option must be offered")
	require.NotEmpty(t, isolate.Impact)

	require.NoError(t, orch.Resume(context.Background(), isolate.ID, "cutting it off"))

	assert.Equal(t, StatusRunning, orch.Status())
	assert.Nil(t, orch.PendingDecision())

	target := isolate.Impact[0].EntityID
	assert.Equal(t, scenario.EntityIsolated, store.Snapshot()[target].Status)

	stats := orch.Stats()
	assert.Equal(t, 1, stats.Containments)
	assert.Equal(t, 1, stats.NonTrivialResponses)
}

func TestResume_RejectsUnknownOption(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	orch := newTestOrchestrator(t, Config{Interactive: true, DecisionInterval: 1}, reviewer, oracle.NewStub())

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, orch.Status())

	assert.Error(t, orch.Resume(context.Background(), "no-such-option", ""))
	assert.Equal(t, StatusSuspended, orch.Status())
}

func TestResume_WithoutPendingDecision(t *testing.T) {
	reviewer := &fakeReviewer{verdicts: []critic.Verdict{validVerdict()}}
	orch := newTestOrchestrator(t, Config{}, reviewer, oracle.NewStub())

	assert.ErrorIs(t, orch.Resume(context.Background(), "observe", ""), ErrNotSuspended)
}

func TestSelectTechnique(t *testing.T) {
	candidates := []scenario.Technique{
		{ID: "EXFIL-T1041", Name: "Exfiltration Over C2"},
		{ID: "RECON-T1595", Name: "Active Scanning"},
	}
	// exfil is a tabled impossible sequence in the normal phase
	got := selectTechnique(candidates, scenario.PhaseNormal)
	assert.Equal(t, "RECON-T1595", got.ID)

	// nothing fits: fall back to the first candidate
	got = selectTechnique(candidates[:1], scenario.PhaseNormal)
	assert.Equal(t, "EXFIL-T1041", got.ID)

	assert.Empty(t, selectTechnique(nil, scenario.PhaseNormal).ID)
}

func TestStatusForInject(t *testing.T) {
	base := scenario.Inject{Phase: scenario.PhaseEscalation}

	base.Severity = scenario.SeverityCritical
	assert.Equal(t, scenario.EntityEncrypted, statusForInject(base, scenario.TypeRansomware))
	assert.Equal(t, scenario.EntityCompromised, statusForInject(base, scenario.TypePhishing))

	base.Severity = scenario.SeverityLow
	assert.Empty(t, string(statusForInject(base, scenario.TypePhishing)))

	contain := scenario.Inject{Phase: scenario.PhaseContainment, Severity: scenario.SeverityHigh}
	assert.Equal(t, scenario.EntityIsolated, statusForInject(contain, scenario.TypePhishing))

	recover := scenario.Inject{Phase: scenario.PhaseRecovery, Severity: scenario.SeverityMedium}
	assert.Equal(t, scenario.EntityActive, statusForInject(recover, scenario.TypePhishing))
}
