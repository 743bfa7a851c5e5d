package mcp

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

func baseArgs() map[string]any {
	return map[string]any{
		"thought":             "Define scope",
		"thought_number":      float64(1),
		"total_thoughts":      float64(3),
		"next_thought_needed": true,
	}
}

func TestParseProcessArgs_Basic(t *testing.T) {
	raw := baseArgs()
	raw["stage"] = "Scoping"
	raw["tags"] = []any{"api", "design"}
	raw["risk_level"] = "HIGH"
	raw["confidence_score"] = 0.9
	raw["project_id"] = "alpha"

	args, err := parseProcessArgs(raw)
	require.NoError(t, err)

	assert.Equal(t, "Define scope", args.Params.Content)
	assert.Equal(t, 1, args.Params.Number)
	assert.Equal(t, 3, args.Params.Total)
	assert.True(t, args.Params.NextNeeded)
	assert.Equal(t, thought.StageScoping, args.Params.Stage)
	assert.Equal(t, []string{"api", "design"}, args.Params.Tags)
	assert.Equal(t, thought.RiskHigh, args.Params.Risk)
	require.NotNil(t, args.Params.Confidence)
	assert.InDelta(t, 0.9, *args.Params.Confidence, 1e-9)
	assert.Equal(t, "alpha", args.ProjectID)
}

func TestParseProcessArgs_Defaults(t *testing.T) {
	args, err := parseProcessArgs(baseArgs())
	require.NoError(t, err)

	assert.Equal(t, thought.StageImplementation, args.Params.Stage)
	assert.Equal(t, thought.RiskMedium, args.Params.Risk)
	assert.Nil(t, args.Params.Confidence)
	assert.Nil(t, args.Params.Tags)
	assert.Empty(t, args.ProjectID)
}

func TestParseProcessArgs_LegacyPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{
			name: "top-level camelCase",
			raw: map[string]any{
				"thought":           "x",
				"thoughtNumber":     float64(2),
				"totalThoughts":     float64(4),
				"nextThoughtNeeded": true,
				"filesTouched":      []any{"a.go"},
				"projectId":         "legacy",
			},
		},
		{
			name: "legacy_kwargs object",
			raw: map[string]any{
				"thought": "x",
				"legacy_kwargs": map[string]any{
					"thoughtNumber":     float64(2),
					"totalThoughts":     float64(4),
					"nextThoughtNeeded": true,
					"filesTouched":      []any{"a.go"},
					"projectId":         "legacy",
				},
			},
		},
		{
			name: "extra_kwargs JSON string",
			raw: map[string]any{
				"thought":      "x",
				"extra_kwargs": `{"thoughtNumber": 2, "totalThoughts": "4", "nextThoughtNeeded": "yes", "filesTouched": "a.go", "projectId": "legacy"}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseProcessArgs(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, 2, args.Params.Number)
			assert.Equal(t, 4, args.Params.Total)
			assert.True(t, args.Params.NextNeeded)
			assert.Equal(t, []string{"a.go"}, args.Params.FilesTouched)
			assert.Equal(t, "legacy", args.ProjectID)
		})
	}
}

func TestParseProcessArgs_SnakeCaseWins(t *testing.T) {
	raw := baseArgs()
	raw["thoughtNumber"] = float64(9)
	raw["legacy_kwargs"] = map[string]any{"totalThoughts": float64(9)}

	args, err := parseProcessArgs(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, args.Params.Number)
	assert.Equal(t, 3, args.Params.Total)
}

func TestParseProcessArgs_NullFallsBackToAlias(t *testing.T) {
	raw := baseArgs()
	raw["thought_number"] = nil
	raw["thoughtNumber"] = float64(2)

	args, err := parseProcessArgs(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, args.Params.Number)
}

func TestParseProcessArgs_MissingRequired(t *testing.T) {
	for _, key := range []string{"thought_number", "total_thoughts", "next_thought_needed"} {
		t.Run(key, func(t *testing.T) {
			raw := baseArgs()
			delete(raw, key)
			_, err := parseProcessArgs(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingArgument)
			assert.ErrorIs(t, err, thought.ErrValidation)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestParseProcessArgs_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{name: "fractional number", key: "thought_number", val: 1.5},
		{name: "word number", key: "total_thoughts", val: "three"},
		{name: "plus-signed number", key: "thought_number", val: "+1"},
		{name: "bool word", key: "next_thought_needed", val: "maybe"},
		{name: "object bool", key: "next_thought_needed", val: map[string]any{}},
		{name: "numeric thought", key: "thought", val: float64(7)},
		{name: "numeric stage", key: "stage", val: float64(1)},
		{name: "unknown stage", key: "stage", val: "deploy"},
		{name: "unknown risk", key: "risk_level", val: "extreme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseArgs()
			raw[tt.key] = tt.val
			_, err := parseProcessArgs(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, thought.ErrValidation)
		})
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{float64(3), 3},
		{3, 3},
		{json.Number("12"), 12},
		{" 7 ", 7},
		{"-2", -2},
	}
	for _, tt := range tests {
		got, err := intArg("n", tt.in)
		require.NoError(t, err, "input %#v", tt.in)
		require.NotNil(t, got)
		assert.Equal(t, tt.want, *got)
	}

	got, err := intArg("n", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBoolArg(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{float64(1), true},
		{float64(0), false},
		{"True", true},
		{"yes", true},
		{"Y", true},
		{"1", true},
		{"false", false},
		{"NO", false},
		{"n", false},
		{"0", false},
	}
	for _, tt := range tests {
		got, err := boolArg("b", tt.in)
		require.NoError(t, err, "input %#v", tt.in)
		require.NotNil(t, got)
		assert.Equal(t, tt.want, *got, "input %#v", tt.in)
	}
}

func TestFloatArg(t *testing.T) {
	f := floatArg("0.25")
	require.NotNil(t, f)
	assert.InDelta(t, 0.25, *f, 1e-9)

	f = floatArg(0.75)
	require.NotNil(t, f)
	assert.InDelta(t, 0.75, *f, 1e-9)

	f = floatArg("NaN")
	require.NotNil(t, f)
	assert.True(t, math.IsNaN(*f))

	assert.Nil(t, floatArg("high"))
	assert.Nil(t, floatArg(nil))
	assert.Nil(t, floatArg(true))
}

func TestListArg(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "array", in: []any{"a", "b"}, want: []string{"a", "b"}},
		{name: "mixed array", in: []any{"a", float64(2), true}, want: []string{"a", "2", "true"}},
		{name: "json array string", in: `["x.go", "y.go"]`, want: []string{"x.go", "y.go"}},
		{name: "comma separated", in: "a, b,c", want: []string{"a", "b", "c"}},
		{name: "semicolon separated", in: "a; b", want: []string{"a", "b"}},
		{name: "empty parts dropped", in: "a,,b, ", want: []string{"a", "b"}},
		{name: "single word", in: "solo", want: []string{"solo"}},
		{name: "blank string", in: "  ", want: nil},
		{name: "scalar number", in: float64(3), want: []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listArg(tt.in))
		})
	}
}

func TestMergePayload(t *testing.T) {
	dst := map[string]any{}
	mergePayload(dst, map[string]any{"a": 1})
	mergePayload(dst, `{"b": 2}`)
	mergePayload(dst, "not json")
	mergePayload(dst, float64(5))

	assert.Equal(t, map[string]any{"a": 1, "b": float64(2)}, dst)
}
