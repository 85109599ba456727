package chain

import (
	"regexp"
	"strings"
)

// rolePhrase captures the role description after a leading "You are a/an"
// or "As a/an" phrase, up to the first comma, period, or line break.
var rolePhrase = regexp.MustCompile(`(?i)^\s*(?:you are an?|as an?)\s+([^,.\n]+)`)

// maxRoleWords caps how much of the phrase becomes the label.
const maxRoleWords = 4

// RoleLabel derives a snake_case step name from the leading role phrase of
// an original (pre-resolution) template. It returns "" when no role phrase
// is found; callers fall back to a positional step name. This is a
// best-effort text heuristic, isolated here so it can be swapped for an
// explicit caller-supplied label without touching orchestration logic.
func RoleLabel(template string) string {
	m := rolePhrase.FindStringSubmatch(template)
	if m == nil {
		return ""
	}

	var words []string
	for _, word := range strings.Fields(strings.ToLower(m[1])) {
		var b strings.Builder
		for _, r := range word {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			words = append(words, b.String())
		}
		if len(words) == maxRoleWords {
			break
		}
	}

	return strings.Join(words, "_")
}

// ExpectsStructured reports whether a step template signals an expectation
// of structured output: the literal substring "JSON" anywhere in the
// template. The heuristic is fragile but kept verbatim for compatibility
// with existing template libraries.
func ExpectsStructured(template string) bool {
	return strings.Contains(template, "JSON")
}
