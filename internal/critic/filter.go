package critic

import "regexp"

// The oracle has a short list of known bad habits: complaint shapes that
// flag perfectly valid drafts. reclassifyOracleErrors is the one place
// those are handled — a pure filter over the raw complaint strings with an
// explicit rule list, so each rule is independently testable.

type reclassifyRule struct {
	// name documents what oracle habit the rule neutralizes.
	name    string
	pattern *regexp.Regexp
}

var falsePositiveRules = []reclassifyRule{
	{
		// the oracle dislikes an entity appearing as both id and alias
		// ("fs-01" vs "the finance file server") in one narrative
		name:    "id-and-alias-reference",
		pattern: regexp.MustCompile(`(?i)referred to (?:by )?both .*(?:id|identifier|alias|name)`),
	},
	{
		name:    "alias-inconsistency",
		pattern: regexp.MustCompile(`(?i)inconsistent(?:ly)? (?:naming|referenced|named).*(?:entity|asset|host)`),
	},
	{
		// offsets are relative by design; wall-clock complaints are noise
		name:    "relative-timestamp-complaint",
		pattern: regexp.MustCompile(`(?i)(?:timestamp|time offset) .*(?:absolute|wall.?clock|real.?world)`),
	},
	{
		// severity grading is the scenario designer's call, not the oracle's
		name:    "severity-second-guessing",
		pattern: regexp.MustCompile(`(?i)severity (?:seems|appears|might be) (?:too|overly) (?:high|low)`),
	},
}

// reclassifyOracleErrors splits raw oracle complaints into kept errors and
// reclassified warnings. A complaint matching any false-positive rule is
// downgraded to a warning; everything else stays an error.
func reclassifyOracleErrors(complaints []string) (errors, warnings []string) {
	for _, c := range complaints {
		if matchesFalsePositive(c) {
			warnings = append(warnings, c)
			continue
		}
		errors = append(errors, c)
	}
	return errors, warnings
}

func matchesFalsePositive(complaint string) bool {
	for _, rule := range falsePositiveRules {
		if rule.pattern.MatchString(complaint) {
			return true
		}
	}
	return false
}
