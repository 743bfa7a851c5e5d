package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// Argument errors wrap thought.ErrValidation so callers can treat them like
// any other invalid input.
var (
	ErrMissingArgument = fmt.Errorf("%w: missing argument", thought.ErrValidation)
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", thought.ErrValidation)
)

// Payload keys that carry nested camelCase arguments from older clients.
const (
	keyLegacyKwargs = "legacy_kwargs"
	keyExtraKwargs  = "extra_kwargs"
)

// legacyAliases lists the camelCase spellings accepted for each argument.
var legacyAliases = map[string][]string{
	"thought_number":         {"thoughtNumber"},
	"total_thoughts":         {"totalThoughts"},
	"next_thought_needed":    {"nextThoughtNeeded"},
	"tags":                   {"tags"},
	"axioms_used":            {"axiomsUsed"},
	"assumptions_challenged": {"assumptionsChallenged"},
	"files_touched":          {"filesTouched"},
	"tests_to_run":           {"testsToRun"},
	"dependencies":           {"dependencies"},
	"risk_level":             {"riskLevel"},
	"confidence_score":       {"confidenceScore"},
	"project_id":             {"projectId"},
}

// processArgumentKeys are the argument names process_thought declares.
var processArgumentKeys = map[string]bool{
	"thought":                true,
	"stage":                  true,
	"thought_number":         true,
	"total_thoughts":         true,
	"next_thought_needed":    true,
	"tags":                   true,
	"axioms_used":            true,
	"assumptions_challenged": true,
	"files_touched":          true,
	"tests_to_run":           true,
	"dependencies":           true,
	"risk_level":             true,
	"confidence_score":       true,
	"project_id":             true,
	keyLegacyKwargs:          true,
	keyExtraKwargs:           true,
}

var listSeparator = regexp.MustCompile(`[,;]`)

// processArgs is a normalized process_thought payload.
type processArgs struct {
	Params    thought.Params
	ProjectID string
}

// parseProcessArgs normalizes a raw process_thought payload.
//
// Each argument is taken from its snake_case key; when that is absent or
// null, the camelCase alias is looked up in the merged legacy payload:
// legacy_kwargs, then extra_kwargs (each an object or a JSON string), then
// any undeclared top-level keys. Numeric strings, boolean words and
// delimited lists are coerced to their typed form.
func parseProcessArgs(raw map[string]any) (processArgs, error) {
	legacy := make(map[string]any)
	mergePayload(legacy, raw[keyLegacyKwargs])
	mergePayload(legacy, raw[keyExtraKwargs])
	for k, v := range raw {
		if !processArgumentKeys[k] {
			legacy[k] = v
		}
	}

	get := func(key string) any {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
		for _, alias := range legacyAliases[key] {
			if v, ok := legacy[alias]; ok {
				return v
			}
		}
		return nil
	}

	var out processArgs
	var err error

	if out.Params.Content, err = stringArg("thought", raw["thought"]); err != nil {
		return out, err
	}

	number, err := intArg("thought_number", get("thought_number"))
	if err != nil {
		return out, err
	}
	total, err := intArg("total_thoughts", get("total_thoughts"))
	if err != nil {
		return out, err
	}
	next, err := boolArg("next_thought_needed", get("next_thought_needed"))
	if err != nil {
		return out, err
	}
	switch {
	case number == nil:
		return out, fmt.Errorf("%w: thought_number is required", ErrMissingArgument)
	case total == nil:
		return out, fmt.Errorf("%w: total_thoughts is required", ErrMissingArgument)
	case next == nil:
		return out, fmt.Errorf("%w: next_thought_needed is required", ErrMissingArgument)
	}
	out.Params.Number, out.Params.Total, out.Params.NextNeeded = *number, *total, *next

	stage, err := stringArg("stage", raw["stage"])
	if err != nil {
		return out, err
	}
	if out.Params.Stage, err = thought.ParseStage(stage); err != nil {
		return out, err
	}

	risk, err := stringArg("risk_level", get("risk_level"))
	if err != nil {
		return out, err
	}
	if out.Params.Risk, err = thought.ParseRiskLevel(risk); err != nil {
		return out, err
	}

	out.Params.Confidence = floatArg(get("confidence_score"))

	out.Params.Tags = listArg(get("tags"))
	out.Params.AxiomsUsed = listArg(get("axioms_used"))
	out.Params.AssumptionsChallenged = listArg(get("assumptions_challenged"))
	out.Params.FilesTouched = listArg(get("files_touched"))
	out.Params.TestsToRun = listArg(get("tests_to_run"))
	out.Params.Dependencies = listArg(get("dependencies"))

	if out.ProjectID, err = stringArg("project_id", get("project_id")); err != nil {
		return out, err
	}
	return out, nil
}

// mergePayload copies an object, or a JSON string holding one, into dst.
// Anything else is ignored.
func mergePayload(dst map[string]any, src any) {
	switch v := src.(type) {
	case map[string]any:
		for k, val := range v {
			dst[k] = val
		}
	case string:
		var parsed map[string]any
		if json.Unmarshal([]byte(v), &parsed) == nil {
			mergePayload(dst, parsed)
		}
	}
}

func stringArg(name string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidArgument, name, v)
	}
}

// intArg accepts JSON numbers with no fractional part and strings of
// optionally signed decimal digits. Nil means absent.
func intArg(name string, v any) (*int, error) {
	var n int
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidArgument, name, x)
		}
		n = int(x)
	case int:
		n = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidArgument, name, x.String())
		}
		n = int(i)
	case string:
		t := strings.TrimSpace(x)
		i, err := strconv.Atoi(t)
		if err != nil || strings.HasPrefix(t, "+") {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidArgument, name, x)
		}
		n = i
	default:
		return nil, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidArgument, name, v)
	}
	return &n, nil
}

// boolArg accepts booleans, numbers (non-zero is true) and the words
// true/false, yes/no, y/n, 1/0 in any case.
func boolArg(name string, v any) (*bool, error) {
	var b bool
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		b = x
	case float64:
		b = x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes", "y":
			b = true
		case "false", "0", "no", "n":
			b = false
		default:
			return nil, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidArgument, name, x)
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidArgument, name, v)
	}
	return &b, nil
}

// floatArg returns nil for absent or unparseable values, which selects the
// default confidence.
func floatArg(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// listArg accepts arrays, strings holding a JSON array, and comma or
// semicolon separated strings. Other scalars become a single element.
func listArg(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, len(x))
		for i, item := range x {
			out[i] = scalarString(item)
		}
		return out
	case []string:
		return x
	case string:
		s := strings.TrimSpace(x)
		var parsed []any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			return listArg(parsed)
		}
		var out []string
		for _, part := range listSeparator.Split(s, -1) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return []string{scalarString(x)}
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
