package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

type opt func(p *thought.Params)

func withTags(tags ...string) opt   { return func(p *thought.Params) { p.Tags = tags } }
func withFiles(files ...string) opt { return func(p *thought.Params) { p.FilesTouched = files } }
func withDeps(deps ...string) opt   { return func(p *thought.Params) { p.Dependencies = deps } }
func withTests(tests ...string) opt { return func(p *thought.Params) { p.TestsToRun = tests } }
func withRisk(r thought.RiskLevel) opt {
	return func(p *thought.Params) { p.Risk = r }
}
func withConfidence(c float64) opt {
	return func(p *thought.Params) { p.Confidence = &c }
}
func withContent(s string) opt { return func(p *thought.Params) { p.Content = s } }

func mk(t *testing.T, number, total int, stage thought.Stage, opts ...opt) *thought.Thought {
	t.Helper()
	p := thought.Params{
		Content:    "a thought",
		Number:     number,
		Total:      total,
		NextNeeded: number < total,
		Stage:      stage,
	}
	for _, o := range opts {
		o(&p)
	}
	th, err := thought.New(p)
	require.NoError(t, err)
	return th
}

func numbers(ts []*thought.Thought) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.Number
	}
	return out
}
