package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already safe",
			input:    "my-project_1.0",
			expected: "my-project_1.0",
		},
		{
			name:     "case preserved",
			input:    "MyProject",
			expected: "MyProject",
		},
		{
			name:     "spaces replaced",
			input:    "my project",
			expected: "my_project",
		},
		{
			name:     "slashes replaced",
			input:    "org/repo",
			expected: "org_repo",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  api  ",
			expected: "api",
		},
		{
			name:     "every unsafe char replaced individually",
			input:    "a!@#b",
			expected: "a___b",
		},
		{
			name:     "non-ascii replaced per rune",
			input:    "café",
			expected: "caf_",
		},
		{
			name:     "empty string",
			input:    "",
			expected: DefaultProjectID,
		},
		{
			name:     "whitespace only",
			input:    " \t\n ",
			expected: DefaultProjectID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProjectID(tt.input))
		})
	}
}

func TestProjectID_Idempotent(t *testing.T) {
	inputs := []string{"", "plain", "with space", "a/b\\c", "ünïcödé", "  x  ", strings.Repeat("?", 10)}
	for _, in := range inputs {
		once := ProjectID(in)
		assert.Equal(t, once, ProjectID(once), "input %q", in)
	}
}

func TestProjectID_OnlySafeAlphabet(t *testing.T) {
	out := ProjectID("Ω≈ç√∫ proj/../etc:passwd")
	for _, r := range out {
		assert.True(t, isProjectRune(r), "unexpected rune %q in %q", r, out)
	}
}
