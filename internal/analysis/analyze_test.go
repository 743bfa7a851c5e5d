package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

func TestAnalyze_Guidance(t *testing.T) {
	allStages := func(t *testing.T, total int) []*thought.Thought {
		var out []*thought.Thought
		for i, st := range thought.Stages() {
			out = append(out, mk(t, i+1, total, st))
		}
		return out
	}

	tests := []struct {
		name       string
		build      func(t *testing.T) (*thought.Thought, []*thought.Thought)
		wantNext   bool
		wantReason string
	}{
		{
			name: "reached total",
			build: func(t *testing.T) (*thought.Thought, []*thought.Thought) {
				th := mk(t, 3, 3, thought.StageScoping)
				return th, []*thought.Thought{th}
			},
			wantNext:   false,
			wantReason: ReasonReachedTotal,
		},
		{
			name: "review on final thought reports total",
			build: func(t *testing.T) (*thought.Thought, []*thought.Thought) {
				th := mk(t, 5, 5, thought.StageReview)
				return th, []*thought.Thought{th}
			},
			wantNext:   false,
			wantReason: ReasonReachedTotal,
		},
		{
			name: "review stage",
			build: func(t *testing.T) (*thought.Thought, []*thought.Thought) {
				th := mk(t, 2, 10, thought.StageReview)
				return th, []*thought.Thought{th}
			},
			wantNext:   false,
			wantReason: ReasonReviewComplete,
		},
		{
			name: "all stages covered past eighty percent",
			build: func(t *testing.T) (*thought.Thought, []*thought.Thought) {
				all := allStages(t, 10)
				th := mk(t, 8, 10, thought.StageTesting)
				return th, append(all, th)
			},
			wantNext:   false,
			wantReason: ReasonStagesCovered,
		},
		{
			name: "all stages covered below eighty percent",
			build: func(t *testing.T) (*thought.Thought, []*thought.Thought) {
				all := allStages(t, 10)
				th := mk(t, 7, 10, thought.StageTesting)
				return th, append(all, th)
			},
			wantNext:   true,
			wantReason: ReasonContinue,
		},
		{
			name: "pending stages",
			build: func(t *testing.T) (*thought.Thought, []*thought.Thought) {
				th := mk(t, 9, 10, thought.StageImplementation)
				return th, []*thought.Thought{th}
			},
			wantNext:   true,
			wantReason: ReasonContinue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, all := tt.build(t)
			got := Analyze(th, all).Guidance
			assert.Equal(t, tt.wantNext, got.RecommendedNextThoughtNeeded)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestAnalyze_MetadataAlerts(t *testing.T) {
	tests := []struct {
		name string
		th   func(t *testing.T) *thought.Thought
		want []string
	}{
		{
			name: "implementation without files",
			th:   func(t *testing.T) *thought.Thought { return mk(t, 1, 2, thought.StageImplementation) },
			want: []string{AlertMissingFiles},
		},
		{
			name: "implementation with files",
			th: func(t *testing.T) *thought.Thought {
				return mk(t, 1, 2, thought.StageImplementation, withFiles("a.go"))
			},
			want: []string{},
		},
		{
			name: "review without tests",
			th:   func(t *testing.T) *thought.Thought { return mk(t, 1, 2, thought.StageReview) },
			want: []string{AlertMissingTests},
		},
		{
			name: "high risk low confidence testing",
			th: func(t *testing.T) *thought.Thought {
				return mk(t, 1, 2, thought.StageTesting, withRisk(thought.RiskHigh), withConfidence(0.2))
			},
			want: []string{AlertMissingTests, AlertRiskConfidence},
		},
		{
			name: "high risk at threshold",
			th: func(t *testing.T) *thought.Thought {
				return mk(t, 1, 2, thought.StageScoping, withRisk(thought.RiskHigh), withConfidence(0.5))
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := tt.th(t)
			got := Analyze(th, []*thought.Thought{th}).ThoughtAnalysis.Analysis.MetadataAlerts
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze_Context(t *testing.T) {
	long := strings.Repeat("x", 150)
	first := mk(t, 1, 5, thought.StageImplementation, withContent(long), withDeps("db", "cache"), withFiles("a.go"))
	second := mk(t, 2, 5, thought.StageImplementation, withDeps("db"), withFiles("a.go"), withRisk(thought.RiskHigh))
	all := []*thought.Thought{first, second}

	a := Analyze(second, all)
	details := a.ThoughtAnalysis.Analysis

	assert.False(t, details.IsFirstInStage)
	assert.InDelta(t, 40.0, details.Progress, 1e-9)
	require.Len(t, details.RelatedThoughtSummaries, 1)
	assert.Equal(t, 1, details.RelatedThoughtsCount)
	assert.Equal(t, strings.Repeat("x", 100)+"...", details.RelatedThoughtSummaries[0].Snippet)
	assert.Equal(t, []string{"Scoping", "Research & Spike", "Testing", "Review"}, details.PendingStages)
	assert.Equal(t, 2, details.StageCoverage.Get(thought.StageImplementation))

	ctx := a.ThoughtAnalysis.Context
	assert.Equal(t, 2, ctx.ThoughtHistoryLength)
	assert.Equal(t, "Implementation", ctx.CurrentStage)
	assert.Equal(t, DependencySummary{Count: 2, Items: []string{"cache", "db"}}, ctx.ProjectDependencies)

	assert.False(t, a.Insights.TestingReady)
	assert.Equal(t, 1, a.Insights.HighRiskPendingTests)
}

func TestAnalyze_FirstInStage(t *testing.T) {
	th := mk(t, 1, 3, thought.StageScoping)
	a := Analyze(th, []*thought.Thought{th, mk(t, 2, 3, thought.StageResearch)})
	assert.True(t, a.ThoughtAnalysis.Analysis.IsFirstInStage)
}

func TestAnalyze_TestingReady(t *testing.T) {
	impl := mk(t, 3, 6, thought.StageImplementation)
	earlyTest := mk(t, 2, 6, thought.StageTesting)
	lateTest := mk(t, 4, 6, thought.StageTesting)

	assert.False(t, Analyze(earlyTest, []*thought.Thought{earlyTest}).Insights.TestingReady, "no implementation")
	assert.False(t, Analyze(impl, []*thought.Thought{earlyTest, impl}).Insights.TestingReady)
	assert.True(t, Analyze(lateTest, []*thought.Thought{earlyTest, impl, lateTest}).Insights.TestingReady)
}

func TestAnalyze_JSONShape(t *testing.T) {
	th := mk(t, 1, 2, thought.StageScoping, withTags("x"))
	data, err := json.Marshal(Analyze(th, []*thought.Thought{th}))
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw["thoughtAnalysis"], "currentThought")
	assert.Contains(t, raw["thoughtAnalysis"], "analysis")
	assert.Contains(t, raw["thoughtAnalysis"], "context")
	assert.Contains(t, raw["insights"], "testingReady")
	assert.Contains(t, raw["guidance"], "recommendedNextThoughtNeeded")
	assert.Equal(t, "Continue to next step.", raw["guidance"]["reason"])
}
