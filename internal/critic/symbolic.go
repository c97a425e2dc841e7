package critic

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/scenariod/internal/phase"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// maxContentLength caps inject narrative text before a warning fires.
const maxContentLength = 4000

// largeJumpMinutes is the forward jump past the latest accepted offset
// beyond which the temporal layer warns.
const largeJumpMinutes = 24 * 60

// checkSchema validates required fields and ranges. Failures are hard.
func checkSchema(draft scenario.Inject) []Issue {
	var issues []Issue
	hard := func(msg string) {
		issues = append(issues, Issue{Kind: KindSchema, Severity: SeverityHard, Message: msg})
	}

	if strings.TrimSpace(draft.TimeOffset) == "" {
		hard("draft has no time offset")
	}
	if !draft.Phase.Valid() {
		hard(fmt.Sprintf("draft phase %q is not a known phase", draft.Phase))
	}
	if strings.TrimSpace(draft.Content) == "" {
		hard("draft has no narrative content")
	}
	if !draft.Severity.Valid() {
		hard(fmt.Sprintf("draft severity %q is not a known severity", draft.Severity))
	}
	if len(draft.Content) > maxContentLength {
		issues = append(issues, Issue{
			Kind:     KindSchema,
			Severity: SeveritySoft,
			Message:  fmt.Sprintf("narrative content is unusually long (%d chars)", len(draft.Content)),
		})
	}
	return issues
}

// checkFSM validates the draft's phase transition against the scenario's
// current phase. Failure is hard.
func checkFSM(draft scenario.Inject, current scenario.Phase) []Issue {
	if phase.CanTransition(current, draft.Phase) {
		return nil
	}
	return []Issue{{
		Kind:     KindFSM,
		Severity: SeverityHard,
		Message: fmt.Sprintf("phase transition %s -> %s is not legal; legal next phases: %v",
			current, draft.Phase, phase.NextPhases(current)),
	}}
}

// checkState validates entity references against the snapshot taken for
// this validation.
//
//   - unknown entity id: hard, the message names the id and the available ids
//   - id match with a differing display name: warning only
//   - referencing an impaired entity as if active: warning
//   - zero entity overlap with the last three accepted injects: warning
func checkState(draft scenario.Inject, snap scenario.Snapshot, recent []scenario.Inject) []Issue {
	var issues []Issue

	for _, id := range draft.AffectedEntities {
		e, ok := snap[id]
		if !ok {
			issues = append(issues, Issue{
				Kind:     KindState,
				Severity: SeverityHard,
				Message: fmt.Sprintf("entity %q does not exist in the current world state; available entities: %s",
					id, strings.Join(snap.IDs(), ", ")),
			})
			continue
		}
		if e.Status.Impaired() && mentionsAsActive(draft.Content, e) {
			issues = append(issues, Issue{
				Kind:     KindState,
				Severity: SeveritySoft,
				Message:  fmt.Sprintf("entity %q is %s but the narrative treats it as operational", id, e.Status),
			})
		}
		if e.Name != "" && strings.Contains(draft.Content, id) && nameMismatch(draft.Content, e) {
			issues = append(issues, Issue{
				Kind:     KindState,
				Severity: SeveritySoft,
				Message:  fmt.Sprintf("entity %q is referenced under a name other than %q", id, e.Name),
			})
		}
	}

	if len(recent) > 0 && len(draft.AffectedEntities) > 0 {
		prev := map[string]bool{}
		for _, in := range recent {
			for _, id := range in.AffectedEntities {
				prev[id] = true
			}
		}
		if len(prev) > 0 {
			overlap := false
			for _, id := range draft.AffectedEntities {
				if prev[id] {
					overlap = true
					break
				}
			}
			if !overlap {
				issues = append(issues, Issue{
					Kind:     KindState,
					Severity: SeveritySoft,
					Message:  "draft introduces entities with no overlap with the last three accepted injects",
				})
			}
		}
	}
	return issues
}

// checkTemporal enforces non-decreasing offsets across the accepted
// sequence. Going backwards is hard; a jump of more than a day warns.
func checkTemporal(draft scenario.Inject, latestOffset int) []Issue {
	current := draft.OffsetMinutes()
	if current < latestOffset {
		return []Issue{{
			Kind:     KindTemporal,
			Severity: SeverityHard,
			Message: fmt.Sprintf("draft offset %s (%d min) is earlier than the latest accepted offset %s",
				draft.TimeOffset, current, scenario.FormatOffset(latestOffset)),
		}}
	}
	if current-latestOffset > largeJumpMinutes {
		return []Issue{{
			Kind:     KindTemporal,
			Severity: SeveritySoft,
			Message: fmt.Sprintf("draft jumps %s ahead of the previous event",
				scenario.FormatOffset(current-latestOffset)),
		}}
	}
	return nil
}

// mentionsAsActive is a heuristic: the narrative names the entity together
// with operational language even though the world state says otherwise.
var activeMarkers = []string{"running", "operational", "responds", "available", "active", "online", "working normally"}

func mentionsAsActive(content string, e scenario.Entity) bool {
	lower := strings.ToLower(content)
	if !strings.Contains(lower, strings.ToLower(e.ID)) && !strings.Contains(lower, strings.ToLower(e.Name)) {
		return false
	}
	for _, marker := range activeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// nameMismatch reports an id referenced alongside a different display name:
// the id appears in the text but the configured name does not.
func nameMismatch(content string, e scenario.Entity) bool {
	return !strings.Contains(strings.ToLower(content), strings.ToLower(e.Name))
}

func hasHard(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityHard {
			return true
		}
	}
	return false
}

func split(issues []Issue) (errors, warnings []Issue) {
	for _, is := range issues {
		if is.Severity == SeverityHard {
			errors = append(errors, is)
		} else {
			warnings = append(warnings, is)
		}
	}
	return errors, warnings
}
