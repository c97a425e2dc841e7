package critic

import (
	"strings"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
	"github.com/fyrsmithlabs/scenariod/internal/scoring"
)

// StandardValidator evaluates one compliance standard against a draft.
// Standards register on the critic by name; an empty registry means no
// compliance checks at all, not scattered conditionals.
type StandardValidator interface {
	// Name identifies the standard (e.g. "incident-reporting").
	Name() string

	// Checklist lists the requirement descriptions, for oracle context.
	Checklist() []string

	// Evaluate reports which requirements the draft meets and misses.
	Evaluate(draft scenario.Inject) scoring.ComplianceResult
}

// ReportingStandard is the built-in standard: an inject must be traceable
// for the after-action report. It checks that severity is graded, affected
// entities are enumerated, and a reporting tag is present on severe events.
type ReportingStandard struct{}

var _ StandardValidator = ReportingStandard{}

// Name implements StandardValidator.
func (ReportingStandard) Name() string { return "incident-reporting" }

// Checklist implements StandardValidator.
func (ReportingStandard) Checklist() []string {
	return []string{
		"severity is graded",
		"affected entities are enumerated",
		"high and critical events carry a compliance reporting tag",
	}
}

// Evaluate implements StandardValidator.
func (ReportingStandard) Evaluate(draft scenario.Inject) scoring.ComplianceResult {
	res := scoring.ComplianceResult{Standard: "incident-reporting"}
	mark := func(requirement string, ok bool) {
		if ok {
			res.Met = append(res.Met, requirement)
		} else {
			res.Missing = append(res.Missing, requirement)
		}
	}

	mark("severity graded", draft.Severity.Valid())
	mark("affected entities enumerated", len(draft.AffectedEntities) > 0)

	severe := draft.Severity == scenario.SeverityHigh || draft.Severity == scenario.SeverityCritical
	if severe {
		mark("reporting tag on severe event", strings.TrimSpace(draft.ComplianceTag) != "")
	}
	return res
}
