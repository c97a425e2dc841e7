package scoring

import (
	"strings"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Logical deduction weights.
const (
	deductEntityContinuity  = 0.3
	deductNarrativeOverlap  = 0.3
	deductPhaseMonotonic    = 0.2
	deductTemporalMonotonic = 0.2
)

// Causal deduction weights.
const (
	deductTechniquePhase     = 0.5
	deductImpossibleSequence = 0.3
	weightFeasibility        = 0.2
)

// techniqueFeasibility is a fixed constant: the catalog carries no
// per-technique feasibility data, so the feasibility component always
// contributes its full weight. Kept explicit so the weight accounting
// sums to 1.
const techniqueFeasibility = 1.0

// causalDefault applies when a draft carries no technique id at all.
const causalDefault = 0.5

// narrativeOverlapFloor is the minimum word-set Jaccard against the recent
// accepted injects below which the narrative reads as discontinuous.
const narrativeOverlapFloor = 0.05

// logicalScore measures narrative coherence via weighted deductions,
// floored at 0.
func logicalScore(draft scenario.Inject, history []scenario.Inject) float64 {
	deduction := 0.0
	recent := lastN(history, 3)

	if len(recent) > 0 {
		if len(intersect(draft.AffectedEntities, entitiesOf(recent))) == 0 {
			deduction += deductEntityContinuity
		}
		if wordOverlap(draft.Content, recent) < narrativeOverlapFloor {
			deduction += deductNarrativeOverlap
		}
	}

	if len(history) > 0 {
		prev := history[len(history)-1]
		if phaseIndex(draft.Phase) < phaseIndex(prev.Phase) {
			deduction += deductPhaseMonotonic
		}
		if draft.OffsetMinutes() < prev.OffsetMinutes() {
			deduction += deductTemporalMonotonic
		}
	}

	if deduction > 1 {
		deduction = 1
	}
	return 1 - deduction
}

// causalScore measures technique plausibility from the static tables.
func causalScore(draft scenario.Inject) float64 {
	if strings.TrimSpace(draft.TechniqueID) == "" {
		return causalDefault
	}

	deduction := weightFeasibility * (1 - techniqueFeasibility)
	if !scenario.TechniqueCompatible(draft.TechniqueID, draft.Phase) {
		deduction += deductTechniquePhase
	}
	if scenario.ImpossibleSequence(draft.TechniqueID, draft.Phase) {
		deduction += deductImpossibleSequence
	}

	if deduction > 1 {
		deduction = 1
	}
	return 1 - deduction
}

// complianceScore averages per-standard coverage. Each standard scores
// 0.3 + 0.7*ratio once any requirement is met, a flat 0.3 when none are,
// and 1.0 when it has no applicable requirements. No standards configured
// scores 1.0.
func complianceScore(results []ComplianceResult) float64 {
	if len(results) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, r := range results {
		total := len(r.Met) + len(r.Missing)
		switch {
		case total == 0:
			sum += 1.0
		case len(r.Met) == 0:
			sum += 0.3
		default:
			ratio := float64(len(r.Met)) / float64(total)
			sum += 0.3 + 0.7*ratio
		}
	}
	return sum / float64(len(results))
}

// temporalScore compares the draft offset against the latest accepted one:
// strictly later 1.0, equal 0.8, earlier 0.0. Empty history scores 1.0.
func temporalScore(draft scenario.Inject, history []scenario.Inject) float64 {
	if len(history) == 0 {
		return 1.0
	}
	latest := history[len(history)-1].OffsetMinutes()
	switch current := draft.OffsetMinutes(); {
	case current > latest:
		return 1.0
	case current == latest:
		return 0.8
	default:
		return 0.0
	}
}

// assetScore is the Jaccard similarity between the draft's entities and the
// union of all previously accepted injects' entities. No prior history
// scores 1.0.
func assetScore(draft scenario.Inject, history []scenario.Inject) float64 {
	if len(history) == 0 {
		return 1.0
	}
	previous := entitiesOf(history)
	current := toSet(draft.AffectedEntities)
	if len(previous) == 0 && len(current) == 0 {
		return 1.0
	}

	inter := 0
	for id := range current {
		if previous[id] {
			inter++
		}
	}
	union := len(previous) + len(current) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

func phaseIndex(p scenario.Phase) int {
	for i, known := range scenario.AllPhases() {
		if known == p {
			return i
		}
	}
	return -1
}

func lastN(injects []scenario.Inject, n int) []scenario.Inject {
	if len(injects) <= n {
		return injects
	}
	return injects[len(injects)-n:]
}

func entitiesOf(injects []scenario.Inject) map[string]bool {
	set := map[string]bool{}
	for _, in := range injects {
		for _, id := range in.AffectedEntities {
			set[id] = true
		}
	}
	return set
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func intersect(ids []string, set map[string]bool) []string {
	var out []string
	for _, id := range ids {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

// wordOverlap computes the Jaccard similarity between the draft's word set
// and the combined word set of the given injects. Words shorter than four
// characters are ignored to keep stop words from inflating overlap.
func wordOverlap(content string, injects []scenario.Inject) float64 {
	current := wordSet(content)
	previous := map[string]bool{}
	for _, in := range injects {
		for w := range wordSet(in.Content) {
			previous[w] = true
		}
	}
	if len(current) == 0 || len(previous) == 0 {
		return 0
	}

	inter := 0
	for w := range current {
		if previous[w] {
			inter++
		}
	}
	union := len(current) + len(previous) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) >= 4 {
			set[w] = true
		}
	}
	return set
}
