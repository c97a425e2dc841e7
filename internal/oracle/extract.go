package oracle

import (
	"errors"
	"strings"
)

// ErrNoJSON reports text without any balanced JSON object.
var ErrNoJSON = errors.New("no balanced JSON object in response")

// ExtractJSON returns the first balanced {...} span in the text.
//
// The scan is string- and escape-aware: braces inside JSON strings do not
// count toward nesting. Generative responses routinely wrap the object in
// prose or markdown fences, so the extractor ignores everything outside the
// first balanced span.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}
