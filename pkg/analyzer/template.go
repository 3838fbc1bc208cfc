// Package analyzer extracts dependencies from prompt templates and arranges
// a plan's tasks into topologically-ordered, parallel-safe batches.
package analyzer

import (
	"regexp"
)

// variableRef matches {{ identifier }}, permitting whitespace around the
// identifier inside the braces.
var variableRef = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

const (
	// ReservedUserRequest refers to the original user request.
	ReservedUserRequest = "user_request"
	// ReservedPrevOutput refers to the output of the authored-order
	// predecessor task.
	ReservedPrevOutput = "prev_output"
)

// ExtractVariableNames returns the set of distinct identifiers referenced as
// {{name}} in template. Order and duplicates are insignificant.
func ExtractVariableNames(template string) map[string]struct{} {
	matches := variableRef.FindAllStringSubmatch(template, -1)
	names := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		names[m[1]] = struct{}{}
	}
	return names
}

// Render replaces every {{ name }} occurrence in template with the
// stringified value from variables, or the empty string if name is absent.
func Render(template string, variables map[string]string) string {
	return variableRef.ReplaceAllStringFunc(template, func(match string) string {
		sub := variableRef.FindStringSubmatch(match)
		name := sub[1]
		if v, ok := variables[name]; ok {
			return v
		}
		return ""
	})
}
