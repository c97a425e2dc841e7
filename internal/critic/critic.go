package critic

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
	"github.com/fyrsmithlabs/scenariod/internal/scoring"
)

// Config tunes the critic.
type Config struct {
	// HistoryTail bounds how many accepted injects ride along on the
	// semantic oracle call. Default: 5.
	HistoryTail int `koanf:"history_tail"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.HistoryTail == 0 {
		c.HistoryTail = 5
	}
}

// Critic validates drafts. One critic instance serves one pipeline; its
// scoring engine's history is owned here and passed explicitly.
type Critic struct {
	cfg       Config
	oracle    oracle.Oracle
	scorer    *scoring.Engine
	standards map[string]StandardValidator
	logger    *zap.Logger
}

// New creates a critic. The oracle may be nil, in which case the semantic
// layer is skipped with a recorded warning.
func New(cfg Config, o oracle.Oracle, scorer *scoring.Engine, logger *zap.Logger) *Critic {
	cfg.ApplyDefaults()
	if scorer == nil {
		scorer = scoring.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{
		cfg:       cfg,
		oracle:    o,
		scorer:    scorer,
		standards: map[string]StandardValidator{},
		logger:    logger,
	}
}

// RegisterStandard adds a compliance standard to the registry. Registering
// the same name twice replaces the earlier validator.
func (c *Critic) RegisterStandard(v StandardValidator) {
	c.standards[v.Name()] = v
}

// Request carries everything one validation needs. Snapshot must be the
// snapshot taken immediately before this validation.
type Request struct {
	Draft        scenario.Inject
	CurrentPhase scenario.Phase
	History      []scenario.Inject
	Snapshot     scenario.Snapshot
}

// Review runs both validation phases and returns the verdict. Phase A is
// pure over (draft, snapshot, history): running it twice on the same input
// yields the same sub-verdicts.
func (c *Critic) Review(ctx context.Context, req Request) Verdict {
	v := Verdict{
		SchemaOK:     true,
		FSMOK:        true,
		StateOK:      true,
		TemporalOK:   true,
		LogicalOK:    true,
		ComplianceOK: true,
	}

	collect := func(issues []Issue) {
		errs, warns := split(issues)
		v.Errors = append(v.Errors, errs...)
		v.Warnings = append(v.Warnings, warns...)
	}

	// Phase A: symbolic layers, ordered, short-circuiting on hard fail.
	shortCircuited := false
	schemaIssues := checkSchema(req.Draft)
	collect(schemaIssues)
	if hasHard(schemaIssues) {
		v.SchemaOK = false
		shortCircuited = true
	}
	if !shortCircuited {
		if issues := checkFSM(req.Draft, req.CurrentPhase); len(issues) > 0 {
			collect(issues)
			v.FSMOK = false
			shortCircuited = true
		}
	}
	if !shortCircuited {
		issues := checkState(req.Draft, req.Snapshot, lastInjects(req.History, 3))
		collect(issues)
		if hasHard(issues) {
			v.StateOK = false
			shortCircuited = true
		}
	}
	if !shortCircuited {
		issues := checkTemporal(req.Draft, latestOffset(req.History))
		collect(issues)
		if hasHard(issues) {
			v.TemporalOK = false
			shortCircuited = true
		}
	}

	// Compliance is local and cheap; evaluated for every attempt so the
	// gaps reach the audit log even when Phase A already failed.
	complianceResults := c.evaluateStandards(req.Draft)
	for _, res := range complianceResults {
		for _, miss := range res.Missing {
			v.Warnings = append(v.Warnings, Issue{
				Kind:     KindCompliance,
				Severity: SeveritySoft,
				Message:  fmt.Sprintf("%s: requirement not met: %s", res.Standard, miss),
			})
		}
	}

	// Phase B: semantic check, only when every symbolic layer passed.
	if !shortCircuited {
		c.semanticPhase(ctx, req, &v)
	}

	// Scoring runs unconditionally, independent of the verdict.
	v.Metrics = c.scorer.Score(req.Draft, req.History, complianceResults)
	switch {
	case v.Metrics.Overall < scoring.ThresholdHard:
		v.Errors = append(v.Errors, Issue{
			Kind:     KindQuality,
			Severity: SeverityHard,
			Message:  fmt.Sprintf("overall quality %.2f below acceptance threshold %.2f", v.Metrics.Overall, scoring.ThresholdHard),
		})
	case v.Metrics.Overall < scoring.ThresholdWarn:
		v.Warnings = append(v.Warnings, Issue{
			Kind:     KindQuality,
			Severity: SeveritySoft,
			Message:  fmt.Sprintf("overall quality %.2f below target %.2f", v.Metrics.Overall, scoring.ThresholdWarn),
		})
	}

	v.IsValid = v.SchemaOK && v.FSMOK && v.StateOK && v.TemporalOK &&
		v.LogicalOK && !v.CausalBlocking

	if !v.IsValid {
		if msgs := v.ErrorMessages(); len(msgs) > 0 {
			v.Explanation = joinNonEmpty(msgs)
		}
		if v.Explanation == "" {
			v.Explanation = v.synthesizeExplanation()
		}
	}
	return v
}

// semanticPhase calls the oracle and applies post-processing: causal
// downgrade against the impossible-sequence table and the false-positive
// reclassification filter.
func (c *Critic) semanticPhase(ctx context.Context, req Request, v *Verdict) {
	// the impossible-sequence table overrides the oracle in both
	// directions, so it is applied before and independent of the call
	if scenario.ImpossibleSequence(req.Draft.TechniqueID, req.Draft.Phase) {
		v.CausalBlocking = true
		v.Errors = append(v.Errors, Issue{
			Kind:     KindCausal,
			Severity: SeverityHard,
			Message: fmt.Sprintf("technique %q cannot occur in phase %q: listed impossible sequence",
				req.Draft.TechniqueID, req.Draft.Phase),
		})
	}

	if c.oracle == nil {
		v.Warnings = append(v.Warnings, Issue{
			Kind:     KindOracle,
			Severity: SeveritySoft,
			Message:  "no oracle configured; semantic checks skipped",
		})
		return
	}

	res, err := c.oracle.Verify(ctx, oracle.VerifyRequest{
		Draft:               req.Draft,
		History:             lastInjects(req.History, c.cfg.HistoryTail),
		Snapshot:            req.Snapshot,
		ComplianceChecklist: c.checklist(),
	})
	v.OracleRaw = res.Raw

	if err != nil {
		// degraded, never fatal: conservative defaults keep the draft
		// alive and the gap is recorded
		msg := "oracle unavailable; semantic checks degraded to defaults"
		if _, ok := oracle.AsParseError(err); ok {
			msg = "oracle response not parseable; semantic checks degraded to defaults"
		}
		c.logger.Warn("semantic phase degraded", zap.Error(err))
		v.Warnings = append(v.Warnings, Issue{Kind: KindOracle, Severity: SeveritySoft, Message: msg})
		return
	}

	v.SemanticChecked = true

	keptErrors, reclassified := reclassifyOracleErrors(res.Errors)
	for _, w := range reclassified {
		v.Warnings = append(v.Warnings, Issue{
			Kind:     KindSemantic,
			Severity: SeveritySoft,
			Message:  "reclassified known false positive: " + w,
		})
	}
	for _, w := range res.Warnings {
		v.Warnings = append(v.Warnings, Issue{Kind: KindSemantic, Severity: SeveritySoft, Message: w})
	}

	if !res.LogicalConsistency {
		v.LogicalOK = false
		if len(keptErrors) == 0 {
			keptErrors = []string{"oracle judged the draft logically inconsistent with the accepted timeline"}
		}
		for _, e := range keptErrors {
			v.Errors = append(v.Errors, Issue{Kind: KindSemantic, Severity: SeverityHard, Message: e})
		}
	} else {
		// complaints without a failing flag stay advisory
		for _, e := range keptErrors {
			v.Warnings = append(v.Warnings, Issue{Kind: KindSemantic, Severity: SeveritySoft, Message: e})
		}
	}

	if !res.CausalValidity && !v.CausalBlocking {
		// downgraded: only the impossible-sequence table blocks
		v.Warnings = append(v.Warnings, Issue{
			Kind:     KindCausal,
			Severity: SeveritySoft,
			Message:  "oracle doubts causal validity; not in the impossible-sequence table, downgraded to warning",
		})
	}

	if !res.Compliance {
		v.ComplianceOK = false
		v.Warnings = append(v.Warnings, Issue{
			Kind:     KindCompliance,
			Severity: SeveritySoft,
			Message:  "oracle reports compliance checklist gaps",
		})
	}
}

func (c *Critic) evaluateStandards(draft scenario.Inject) []scoring.ComplianceResult {
	if len(c.standards) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.standards))
	for name := range c.standards {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]scoring.ComplianceResult, 0, len(names))
	for _, name := range names {
		out = append(out, c.standards[name].Evaluate(draft))
	}
	return out
}

func (c *Critic) checklist() []string {
	var out []string
	names := make([]string, 0, len(c.standards))
	for name := range c.standards {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, c.standards[name].Checklist()...)
	}
	return out
}

func lastInjects(injects []scenario.Inject, n int) []scenario.Inject {
	if len(injects) <= n {
		return injects
	}
	return injects[len(injects)-n:]
}

func latestOffset(history []scenario.Inject) int {
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].OffsetMinutes()
}

func joinNonEmpty(msgs []string) string {
	out := ""
	for _, m := range msgs {
		if m == "" {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += m
	}
	return out
}
