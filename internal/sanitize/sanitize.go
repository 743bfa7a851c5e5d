// Package sanitize provides project identifier sanitization and path validation.
//
// Project identifiers become part of session file names, so they are reduced
// to a filesystem-safe alphabet: ASCII letters, digits, '.', '_' and '-'.
package sanitize

import (
	"strings"
)

// DefaultProjectID is used when sanitization produces an empty result.
const DefaultProjectID = "default"

// ProjectID sanitizes a raw project identifier.
//
// Rules applied:
//   - Trims surrounding whitespace
//   - Replaces every character outside [A-Za-z0-9._-] with '_'
//   - Returns DefaultProjectID if the result would be empty
//
// Examples:
//
//	"my project" -> "my_project"
//	"api/v2"     -> "api_v2"
//	"  "         -> "default"
//
// ProjectID is idempotent: ProjectID(ProjectID(x)) == ProjectID(x).
func ProjectID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultProjectID
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if isProjectRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isProjectRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
