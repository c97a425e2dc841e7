package scenario

import (
	"fmt"
	"regexp"
	"strconv"
)

// Time offsets use the wire format T+DD:HH:MM, measured from scenario start.
// Comparison always happens on the parsed minute value.

var offsetPattern = regexp.MustCompile(`^T\+(\d{1,3}):(\d{1,2}):(\d{1,2})$`)

// ParseOffset converts a T+DD:HH:MM offset to integer minutes.
//
// Malformed offsets parse to 0. This is a documented lenient fallback, not
// an error: a draft with a garbled offset competes against the latest
// accepted offset and loses in the temporal check instead of crashing the
// pipeline.
func ParseOffset(s string) int {
	m := offsetPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	days, _ := strconv.Atoi(m[1])
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 23 || minutes > 59 {
		return 0
	}
	return days*24*60 + hours*60 + minutes
}

// FormatOffset renders minutes since scenario start as T+DD:HH:MM.
// Negative values clamp to T+00:00:00.
func FormatOffset(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	days := minutes / (24 * 60)
	rem := minutes % (24 * 60)
	return fmt.Sprintf("T+%02d:%02d:%02d", days, rem/60, rem%60)
}
