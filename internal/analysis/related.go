package analysis

import (
	"sort"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// DefaultMaxRelated is the number of related thoughts returned when the
// caller does not ask for a specific limit.
const DefaultMaxRelated = 3

// Relatedness weights.
const (
	sameStageScore  = 3
	sharedTagScore  = 1
	sharedFileScore = 2
	sharedDepScore  = 1
	sameRiskScore   = 1
)

type scored struct {
	score   int
	thought *thought.Thought
}

// FindRelated returns up to max thoughts from all that relate to target,
// most related first. target itself (matched by identifier) is never
// returned. A max of zero or less means DefaultMaxRelated.
func FindRelated(target *thought.Thought, all []*thought.Thought, max int) []*thought.Thought {
	if max <= 0 {
		max = DefaultMaxRelated
	}
	if target == nil {
		return []*thought.Thought{}
	}

	tags := toSet(target.Tags)
	files := toSet(target.FilesTouched)
	deps := toSet(target.Dependencies)

	candidates := make([]scored, 0, len(all))
	for _, t := range all {
		if t == nil || t.Equal(target) {
			continue
		}

		score := 0
		if t.Stage == target.Stage {
			score += sameStageScore
		}
		score += overlap(tags, t.Tags) * sharedTagScore
		score += overlap(files, t.FilesTouched) * sharedFileScore
		score += overlap(deps, t.Dependencies) * sharedDepScore
		if t.Risk == target.Risk {
			score += sameRiskScore
		}

		if score > 0 {
			candidates = append(candidates, scored{score: score, thought: t})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].thought.Number > candidates[j].thought.Number
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]*thought.Thought, len(candidates))
	for i, c := range candidates {
		out[i] = c.thought
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// overlap counts the distinct values of items present in set.
func overlap(set map[string]struct{}, items []string) int {
	if len(set) == 0 || len(items) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(items))
	n := 0
	for _, it := range items {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		if _, ok := set[it]; ok {
			n++
		}
	}
	return n
}
