// Package resolve turns step templates into concrete backend requests.
// It substitutes artifact references, caller variables, and prior-step
// outputs in a fixed pass order, degrading missing references to visible
// markers instead of failing the run.
package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/coerce"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// ArtifactLookup fetches previously persisted artifact data by topic and
// name. The data is whatever was saved: a parsed JSON value or a string.
type ArtifactLookup func(topic, name string) (any, bool)

var artifactRef = regexp.MustCompile(`\{\{artifact:([^:{}]+):([^:{}]+)\}\}`)

// NotFoundMarker is appended to artifact placeholders whose lookup failed,
// keeping the run alive with the miss visible in the trace.
const NotFoundMarker = " [NOT FOUND]"

// Resolve rewrites a step template into a concrete request. It returns the
// request and the artifact keys that were consulted. Resolution never
// fails: unknown artifacts keep their placeholder with a NOT FOUND suffix,
// unused variables are ignored, and unextractable history fields fall back
// to the whole prior result's string form.
//
// Passes run in a fixed order over the already-rewritten string so that
// substituted text is never re-read as a new placeholder class: artifacts,
// then variables, then history back-references starting at the most recent
// offset, so text inlined for a deeper reference is never re-matched by a
// shallower one.
func Resolve(template string, vars map[string]string, history []models.Result, lookup ArtifactLookup) (string, []string) {
	out := template
	var usedKeys []string

	out = artifactRef.ReplaceAllStringFunc(out, func(match string) string {
		parts := artifactRef.FindStringSubmatch(match)
		topic, name := parts[1], parts[2]
		if lookup != nil {
			if data, ok := lookup(topic, name); ok {
				usedKeys = append(usedKeys, topic+":"+name)
				return models.InlineValue(data)
			}
		}
		return match + NotFoundMarker
	})

	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}

	for j := 1; j <= len(history); j++ {
		prior := history[len(history)-j]

		dotted := regexp.MustCompile(fmt.Sprintf(`\{\{output\[-%d\]\.(\w+)\}\}`, j))
		out = dotted.ReplaceAllStringFunc(out, func(match string) string {
			field := dotted.FindStringSubmatch(match)[1]
			return fieldInline(prior, field)
		})

		out = strings.ReplaceAll(out, fmt.Sprintf("{{output[-%d]}}", j), prior.String())
	}

	return out, usedKeys
}

// fieldInline extracts a named field from a prior result. Textual results
// that themselves parse as structured data are coerced first. When the
// result is not an object or the field is absent, the whole result's
// string form stands in for the placeholder.
func fieldInline(r models.Result, field string) string {
	target := r
	if !target.IsStructured() {
		target = coerce.Coerce(r.String())
	}
	if v, ok := target.Field(field); ok {
		return models.InlineValue(v)
	}
	return r.String()
}
