package thought

import (
	"fmt"
	"strings"
)

// Stage is the workflow phase a thought belongs to.
type Stage string

// Canonical stages in pipeline order.
const (
	StageScoping        Stage = "Scoping"
	StageResearch       Stage = "Research & Spike"
	StageImplementation Stage = "Implementation"
	StageTesting        Stage = "Testing"
	StageReview         Stage = "Review"
)

var stageOrder = []Stage{
	StageScoping,
	StageResearch,
	StageImplementation,
	StageTesting,
	StageReview,
}

// stageAliases maps lowercase aliases to canonical stages. Lookups for
// canonical values go through the same table.
var stageAliases = map[string]Stage{
	"scoping":           StageScoping,
	"scope":             StageScoping,
	"requirements":      StageScoping,
	"planning (scope)":  StageScoping,
	"project scoping":   StageScoping,
	"research & spike":  StageResearch,
	"research":          StageResearch,
	"spike":             StageResearch,
	"spike/research":    StageResearch,
	"investigate":       StageResearch,
	"r&d":               StageResearch,
	"implementation":    StageImplementation,
	"implement":         StageImplementation,
	"build":             StageImplementation,
	"coding":            StageImplementation,
	"develop":           StageImplementation,
	"development":       StageImplementation,
	"plan":              StageImplementation,
	"planning":          StageImplementation,
	"testing":           StageTesting,
	"test":              StageTesting,
	"qa":                StageTesting,
	"validate":          StageTesting,
	"verification":      StageTesting,
	"review":            StageReview,
	"code review":       StageReview,
	"finalize":          StageReview,
	"ship":              StageReview,
	"pr review":         StageReview,
}

// Stages returns the canonical stages in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage resolves a stage name or alias, case-insensitively.
// Blank input resolves to StageImplementation.
func ParseStage(s string) (Stage, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return StageImplementation, nil
	}
	if stage, ok := stageAliases[key]; ok {
		return stage, nil
	}
	return "", fmt.Errorf("%w %q: valid stages are %s", ErrUnknownStage, s, stageList())
}

// Valid reports whether s is one of the canonical stages.
func (s Stage) Valid() bool {
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

func stageList() string {
	names := make([]string, len(stageOrder))
	for i, st := range stageOrder {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
