package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/audit"
	"github.com/fyrsmithlabs/scenariod/internal/critic"
	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/phase"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

var (
	// ErrSuspended is returned by Step while a decision is pending.
	ErrSuspended = errors.New("orchestrator: run suspended on a pending decision")

	// ErrFinished is returned by Step after the run ended.
	ErrFinished = errors.New("orchestrator: run finished")

	// ErrNotSuspended is returned by Resume when no decision is pending.
	ErrNotSuspended = errors.New("orchestrator: no pending decision")
)

// Deps are the collaborators one orchestrator instance drives. Oracle,
// Critic, Techniques and World are required; Audit, Metrics and Logger
// default to no-ops.
type Deps struct {
	Oracle     oracle.Oracle
	Critic     Reviewer
	Techniques TechniqueSource
	World      StateStore
	Audit      *audit.Log
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Orchestrator drives one scenario run through the fixed pipeline. It is
// single-threaded by design: Step, Resume and Run must not be called
// concurrently. Multiple runs are multiple instances.
type Orchestrator struct {
	cfg        Config
	scn        *scenario.Scenario
	oracle     oracle.Oracle
	critic     Reviewer
	techniques TechniqueSource
	world      StateStore
	auditLog   *audit.Log
	metrics    *Metrics
	logger     *zap.Logger

	status     RunStatus
	stopReason string
	pending    *scenario.Decision

	stats                 DecisionStats
	decidedPhases         map[scenario.Phase]bool
	acceptedSinceDecision int
	steps                 int
	errCount              int
}

// New creates an orchestrator for the given scenario.
func New(cfg Config, scn *scenario.Scenario, deps Deps) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if scn == nil {
		return nil, errors.New("orchestrator: scenario is required")
	}
	if deps.Oracle == nil || deps.Critic == nil || deps.Techniques == nil || deps.World == nil {
		return nil, errors.New("orchestrator: oracle, critic, techniques and world are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:           cfg,
		scn:           scn,
		oracle:        deps.Oracle,
		critic:        deps.Critic,
		techniques:    deps.Techniques,
		world:         deps.World,
		auditLog:      deps.Audit,
		metrics:       deps.Metrics,
		logger:        deps.Logger.With(zap.String("scenario_id", scn.ID)),
		status:        StatusRunning,
		decidedPhases: map[scenario.Phase]bool{},
	}, nil
}

// Status returns the current run status.
func (o *Orchestrator) Status() RunStatus { return o.status }

// StopReason explains a ceiling-forced end; empty otherwise.
func (o *Orchestrator) StopReason() string { return o.stopReason }

// Scenario exposes the run's scenario. Callers must treat it as read-only.
func (o *Orchestrator) Scenario() *scenario.Scenario { return o.scn }

// PendingDecision returns the decision blocking the run, or nil.
func (o *Orchestrator) PendingDecision() *scenario.Decision { return o.pending }

// Stats returns the resolved-decision counters.
func (o *Orchestrator) Stats() DecisionStats { return o.stats }

// Run steps the pipeline until the scenario ends, a decision suspends it,
// or the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*scenario.Scenario, error) {
	for o.status == StatusRunning {
		if err := o.Step(ctx); err != nil {
			return o.scn, err
		}
	}
	return o.scn, nil
}

// Step executes one full pipeline iteration. Oracle failures are counted
// and skipped, not returned; only context cancellation and invalid states
// produce an error.
func (o *Orchestrator) Step(ctx context.Context) error {
	switch o.status {
	case StatusSuspended:
		return ErrSuspended
	case StatusFinished:
		return ErrFinished
	}
	if reason := o.ceilingReached(); reason != "" {
		o.finishAtCeiling(reason)
		return nil
	}

	if err := o.stageBoundary(ctx, StageSnapshot); err != nil {
		return err
	}
	snap := o.world.Snapshot()

	if err := o.stageBoundary(ctx, StagePlan); err != nil {
		return err
	}
	plan := o.plan(ctx, snap)

	if err := o.stageBoundary(ctx, StageRetrieve); err != nil {
		return err
	}
	candidates := o.techniques.TechniquesForPhase(ctx, plan.SuggestedPhase, o.cfg.RetrieveK)

	if err := o.stageBoundary(ctx, StageSelectAction); err != nil {
		return err
	}
	tech := selectTechnique(candidates, plan.SuggestedPhase)

	draft, verdict, forced, err := o.draftAndValidate(ctx, snap, plan, tech)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.errCount++
		o.metrics.OracleFailures.Inc()
		o.logger.Warn("iteration skipped after oracle failure",
			zap.Int("iteration", o.scn.Iteration), zap.Error(err))
		return nil
	}

	if err := o.stageBoundary(ctx, StageCommit); err != nil {
		return err
	}
	o.commit(draft, verdict, forced, snap)
	return nil
}

// Resume resolves the pending decision and unblocks the run. The option's
// declared impact mutates world state before anything else happens.
func (o *Orchestrator) Resume(ctx context.Context, optionID, notes string) error {
	if o.status != StatusSuspended || o.pending == nil {
		return ErrNotSuspended
	}
	opt := o.pending.Option(optionID)
	if opt == nil {
		return fmt.Errorf("orchestrator: unknown option %q", optionID)
	}
	if !o.pending.Resolve(optionID, notes) {
		return fmt.Errorf("orchestrator: decision %s already resolved", o.pending.ID)
	}

	for _, imp := range opt.Impact {
		if err := o.world.UpdateStatus(imp.EntityID, imp.NewStatus, "decision:"+o.pending.ID); err != nil {
			o.logger.Warn("decision impact not applied",
				zap.String("entity_id", imp.EntityID), zap.Error(err))
		}
	}
	o.recordResolution(opt)
	o.appendAudit(audit.Record{
		Kind:       audit.KindDecision,
		ScenarioID: o.scn.ID,
		Iteration:  o.scn.Iteration,
		Detail: map[string]string{
			"decision_id": o.pending.ID,
			"option_id":   opt.ID,
			"category":    string(opt.Category),
			"notes":       notes,
		},
	})

	o.logger.Info("decision resolved",
		zap.String("decision_id", o.pending.ID),
		zap.String("option_id", opt.ID))
	o.pending = nil
	o.status = StatusRunning
	o.metrics.OpenDecisions.Dec()
	return nil
}

// plan asks the oracle for a narrative direction and degrades to the FSM
// suggestion when the oracle fails or proposes an illegal phase.
func (o *Orchestrator) plan(ctx context.Context, snap scenario.Snapshot) oracle.Plan {
	cur := o.scn.CurrentPhase
	fallbackPhase := phase.SuggestNext(cur, o.scn.InjectsInPhase(cur), lastSeverity(o.scn))

	p, err := o.oracle.Plan(ctx, oracle.PlanRequest{
		ScenarioType:  o.scn.Type,
		Phase:         cur,
		Iteration:     o.scn.Iteration,
		RecentInjects: o.scn.RecentInjects(3),
		Snapshot:      snap,
	})
	if err != nil {
		o.errCount++
		o.metrics.OracleFailures.Inc()
		o.logger.Warn("plan stage degraded to phase suggestion", zap.Error(err))
		return oracle.Plan{
			Direction:      "continue the current narrative thread",
			SuggestedPhase: fallbackPhase,
		}
	}
	if !p.SuggestedPhase.Valid() || !phase.CanTransition(cur, p.SuggestedPhase) {
		o.logger.Debug("oracle phase suggestion overridden",
			zap.String("suggested", string(p.SuggestedPhase)),
			zap.String("used", string(fallbackPhase)))
		p.SuggestedPhase = fallbackPhase
	}
	return p
}

// draftAndValidate runs the refine loop: draft, validate, feed violations
// back, and force-accept once the budget is exhausted.
func (o *Orchestrator) draftAndValidate(ctx context.Context, snap scenario.Snapshot, plan oracle.Plan, tech scenario.Technique) (scenario.Inject, critic.Verdict, bool, error) {
	maxAttempts := o.cfg.RefineBudget + 1
	var feedback *oracle.Feedback

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := o.stageBoundary(ctx, StageDraft); err != nil {
			return scenario.Inject{}, critic.Verdict{}, false, err
		}
		res, err := o.oracle.Draft(ctx, oracle.DraftRequest{
			ScenarioType:  o.scn.Type,
			Phase:         plan.SuggestedPhase,
			Plan:          plan,
			Technique:     tech,
			LatestOffset:  scenario.FormatOffset(o.scn.LatestOffset()),
			RecentInjects: o.scn.RecentInjects(3),
			Snapshot:      snap,
			Feedback:      feedback,
		})
		if err != nil {
			return scenario.Inject{}, critic.Verdict{}, false, fmt.Errorf("draft attempt %d: %w", attempt, err)
		}
		draft := res.Inject

		if err := o.stageBoundary(ctx, StageValidate); err != nil {
			return scenario.Inject{}, critic.Verdict{}, false, err
		}
		verdict := o.critic.Review(ctx, critic.Request{
			Draft:        draft,
			CurrentPhase: o.scn.CurrentPhase,
			History:      o.scn.Injects,
			Snapshot:     snap,
		})
		o.auditAttempt(attempt, draft, verdict, snap)

		if verdict.IsValid {
			return draft, verdict, false, nil
		}
		if attempt < maxAttempts {
			o.metrics.Refines.Inc()
			feedback = &oracle.Feedback{
				Errors:   verdict.ErrorMessages(),
				Warnings: verdict.WarningMessages(),
			}
			o.logger.Debug("draft rejected, refining",
				zap.Int("attempt", attempt),
				zap.String("explanation", verdict.Explanation))
			continue
		}

		// Budget exhausted: accept anyway, flagged. The timeline keeps
		// moving; the audit trail and the flag carry the failure.
		o.metrics.ForceAccepts.Inc()
		o.logger.Warn("refine budget exhausted, force-accepting draft",
			zap.String("inject_id", draft.ID),
			zap.String("explanation", verdict.Explanation))
		draft.ForceAccepted = true
		return draft, verdict, true, nil
	}
	return scenario.Inject{}, critic.Verdict{}, false, errors.New("unreachable: refine loop exited")
}

// commit promotes the draft, mutates world state with cascading impact,
// evaluates the end condition and arms the decision trigger.
func (o *Orchestrator) commit(draft scenario.Inject, verdict critic.Verdict, forced bool, snap scenario.Snapshot) {
	draft.Status = scenario.StatusAccepted
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	o.scn.Injects = append(o.scn.Injects, draft)
	o.scn.CurrentPhase = draft.Phase
	o.scn.Iteration++

	if status := statusForInject(draft, o.scn.Type); status != "" {
		for _, id := range draft.AffectedEntities {
			impact := o.world.ComputeCascadingImpact(id, status, o.cfg.CascadeDepth)
			if err := o.world.ApplyImpact(id, status, impact, "inject:"+draft.ID); err != nil {
				o.logger.Warn("world-state update failed",
					zap.String("entity_id", id), zap.Error(err))
			}
		}
	}

	o.auditFinal(draft, verdict, forced, snap)
	o.metrics.Iterations.Inc()
	result := "valid"
	if forced {
		result = "force_accepted"
	}
	o.metrics.Verdicts.WithLabelValues(result).Inc()
	o.metrics.QualityScore.Observe(verdict.Metrics.Overall)

	after := o.world.Snapshot()
	if cond := EvaluateEnd(o.scn, after, o.stats); cond.Terminal() {
		o.scn.EndCondition = cond
		o.status = StatusFinished
		o.logger.Info("scenario ended",
			zap.String("end_condition", string(cond)),
			zap.Int("injects", len(o.scn.Injects)))
		o.appendAudit(audit.Record{
			Kind:       audit.KindRunEnd,
			ScenarioID: o.scn.ID,
			Iteration:  o.scn.Iteration,
			Snapshot:   after,
			Detail:     map[string]string{"end_condition": string(cond)},
		})
		return
	}

	o.acceptedSinceDecision++
	if o.shouldTriggerDecision() {
		o.suspend(draft, after)
	}
}

func (o *Orchestrator) suspend(committed scenario.Inject, snap scenario.Snapshot) {
	o.pending = scenario.NewDecision(o.scn, snap, buildOptions(committed, snap))
	o.decidedPhases[o.scn.CurrentPhase] = true
	o.acceptedSinceDecision = 0
	o.status = StatusSuspended
	o.metrics.OpenDecisions.Inc()
	o.logger.Info("run suspended on decision",
		zap.String("decision_id", o.pending.ID),
		zap.String("phase", string(o.scn.CurrentPhase)))
}

func (o *Orchestrator) ceilingReached() string {
	switch {
	case o.scn.Iteration >= o.cfg.MaxIterations:
		return fmt.Sprintf("max iterations (%d) reached", o.cfg.MaxIterations)
	case o.steps >= o.cfg.MaxSteps:
		return fmt.Sprintf("max pipeline steps (%d) reached", o.cfg.MaxSteps)
	case o.errCount >= o.cfg.MaxErrors:
		return fmt.Sprintf("max accumulated errors (%d) reached", o.cfg.MaxErrors)
	}
	return ""
}

func (o *Orchestrator) finishAtCeiling(reason string) {
	o.status = StatusFinished
	o.stopReason = reason
	o.logger.Warn("run ended at hard ceiling", zap.String("reason", reason))
	o.appendAudit(audit.Record{
		Kind:       audit.KindRunEnd,
		ScenarioID: o.scn.ID,
		Iteration:  o.scn.Iteration,
		Detail:     map[string]string{"ceiling": reason},
	})
}

func (o *Orchestrator) stageBoundary(ctx context.Context, st Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.steps++
	o.logger.Debug("stage", zap.String("stage", string(st)), zap.Int("iteration", o.scn.Iteration))
	return nil
}

func (o *Orchestrator) auditAttempt(attempt int, draft scenario.Inject, verdict critic.Verdict, snap scenario.Snapshot) {
	raw, err := json.Marshal(verdict)
	if err != nil {
		raw = nil
	}
	o.appendAudit(audit.Record{
		Kind:       audit.KindDraftAttempt,
		ScenarioID: o.scn.ID,
		Iteration:  o.scn.Iteration,
		Attempt:    attempt,
		Draft:      &draft,
		Verdict:    raw,
		OracleRaw:  verdict.OracleRaw,
		Snapshot:   snap,
	})
}

func (o *Orchestrator) auditFinal(draft scenario.Inject, verdict critic.Verdict, forced bool, snap scenario.Snapshot) {
	raw, err := json.Marshal(verdict)
	if err != nil {
		raw = nil
	}
	rec := audit.Record{
		Kind:       audit.KindFinalVerdict,
		ScenarioID: o.scn.ID,
		Iteration:  o.scn.Iteration,
		Draft:      &draft,
		Verdict:    raw,
		OracleRaw:  verdict.OracleRaw,
		Snapshot:   snap,
	}
	if forced {
		rec.Detail = map[string]string{"force_accepted": "true"}
	}
	o.appendAudit(rec)
}

func (o *Orchestrator) appendAudit(rec audit.Record) {
	if o.auditLog == nil {
		return
	}
	o.auditLog.Append(rec)
}

// selectTechnique picks the first candidate that is compatible with the
// target phase and not a tabled impossible sequence, falling back to the
// first candidate, then to no technique at all.
func selectTechnique(candidates []scenario.Technique, target scenario.Phase) scenario.Technique {
	for _, t := range candidates {
		if scenario.TechniqueCompatible(t.ID, target) && !scenario.ImpossibleSequence(t.ID, target) {
			return t
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return scenario.Technique{}
}

// statusForInject maps a committed inject to the entity status it imposes
// on its affected entities. Containment isolates, recovery restores,
// attack-phase injects impair by severity. Low severity leaves state alone.
func statusForInject(in scenario.Inject, typ scenario.Type) scenario.EntityStatus {
	switch in.Phase {
	case scenario.PhaseContainment:
		return scenario.EntityIsolated
	case scenario.PhaseRecovery:
		return scenario.EntityActive
	}
	switch in.Severity {
	case scenario.SeverityCritical:
		if typ == scenario.TypeRansomware {
			return scenario.EntityEncrypted
		}
		return scenario.EntityCompromised
	case scenario.SeverityHigh:
		return scenario.EntityCompromised
	case scenario.SeverityMedium:
		return scenario.EntityDegraded
	}
	return ""
}

func lastSeverity(s *scenario.Scenario) scenario.Severity {
	recent := s.RecentInjects(1)
	if len(recent) == 0 {
		return scenario.SeverityLow
	}
	return recent[0].Severity
}
