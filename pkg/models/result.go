// Package models defines the shared value types for chain execution:
// step results, token usage, and execution traces.
package models

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of one chain step: either a structured value parsed
// from the backend's response, or the raw response text when no structured
// data was recoverable. The two cases are deliberately interchangeable for
// template references; String and Field work on both.
type Result struct {
	structured bool
	value      any
	text       string
}

// StructuredResult wraps a parsed JSON value (object, array, or scalar).
func StructuredResult(v any) Result {
	return Result{structured: true, value: v}
}

// TextResult wraps a plain-text response.
func TextResult(s string) Result {
	return Result{text: s}
}

// IsStructured reports whether the result holds parsed data.
func (r Result) IsStructured() bool {
	return r.structured
}

// Value returns the parsed value for structured results and the raw text
// for text results.
func (r Result) Value() any {
	if r.structured {
		return r.value
	}
	return r.text
}

// String returns the inline form of the result: compact JSON for structured
// values, the raw text otherwise.
func (r Result) String() string {
	if !r.structured {
		return r.text
	}
	b, err := json.Marshal(r.value)
	if err != nil {
		return fmt.Sprintf("%v", r.value)
	}
	return string(b)
}

// Field looks up a top-level field of a structured object result.
// The second return is false when the result is not an object or the
// field is absent.
func (r Result) Field(name string) (any, bool) {
	if !r.structured {
		return nil, false
	}
	obj, ok := r.value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[name]
	return v, ok
}

// InlineValue renders an arbitrary value the way results are inlined into
// templates: strings verbatim, everything else as compact JSON.
func InlineValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
