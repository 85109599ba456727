// Package coerce extracts structured data from free-form backend responses.
// Coercion is best-effort and never fails: text that yields no parseable
// JSON comes back unchanged as a plain-text result.
package coerce

import (
	"encoding/json"
	"strings"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// Coerce attempts to recover a structured value from a raw backend response.
// It handles markdown code fences, leading/trailing prose around the JSON,
// and truncated output missing closing braces. When nothing parses, the
// original text is returned unchanged as a text result.
func Coerce(raw string) models.Result {
	candidate := extractFenced(raw)

	slice, ok := sliceToSpan(candidate)
	if !ok {
		return models.TextResult(raw)
	}

	var v any
	if err := json.Unmarshal([]byte(slice), &v); err == nil {
		return models.StructuredResult(v)
	}

	// Truncated model output commonly drops trailing closers. Balance the
	// open/close counts and retry the parse once.
	repaired := repair(slice)
	if repaired != slice {
		if err := json.Unmarshal([]byte(repaired), &v); err == nil {
			return models.StructuredResult(v)
		}
	}

	return models.TextResult(raw)
}

// extractFenced returns the interior of the first triple-backtick fence,
// tolerating an optional "json" language tag and a missing closing fence.
// Text without a fence is returned as-is.
func extractFenced(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}

	rest := s[start+3:]
	if tagged := strings.TrimPrefix(rest, "json"); tagged != rest {
		rest = tagged
	}

	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// sliceToSpan trims the candidate to the span between the first opening
// brace/bracket and the last matching closer. A candidate with no opener
// has no JSON to recover. A missing closer keeps the tail so repair can
// balance it.
func sliceToSpan(s string) (string, bool) {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closer := byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return "", false
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s[start:], true
	}
	return s[start : end+1], true
}

// repair appends the minimum closers needed to balance unclosed braces,
// brackets, and string literals. Already-balanced input is returned as-is.
func repair(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) == 0 && !inString {
		return s
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
