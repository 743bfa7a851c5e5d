package analysis

import (
	"time"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

const snippetLength = 100

// Guidance reasons.
const (
	ReasonReachedTotal   = "Reached total planned thoughts."
	ReasonReviewComplete = "Review stage complete."
	ReasonStagesCovered  = "Core stages covered; diminishing returns."
	ReasonContinue       = "Continue to next step."
)

// stopProgress is the progress percentage past which full stage coverage
// ends the loop.
const stopProgress = 80.0

// Metadata alerts.
const (
	AlertMissingFiles   = "Implementation thoughts should list filesTouched for traceability."
	AlertMissingTests   = "Capture testsToRun to keep testing expectations explicit."
	AlertRiskConfidence = "High-risk thought marked with low confidence; consider another research thought."
)

const lowConfidence = 0.5

// Analysis places one thought in the context of its history.
type Analysis struct {
	ThoughtAnalysis ThoughtAnalysis `json:"thoughtAnalysis"`
	Insights        Insights        `json:"insights"`
	Guidance        Guidance        `json:"guidance"`
}

// ThoughtAnalysis groups the per-thought findings.
type ThoughtAnalysis struct {
	CurrentThought CurrentThought `json:"currentThought"`
	Analysis       Details        `json:"analysis"`
	Context        Context        `json:"context"`
}

// CurrentThought echoes the analyzed thought.
type CurrentThought struct {
	ThoughtNumber     int      `json:"thoughtNumber"`
	TotalThoughts     int      `json:"totalThoughts"`
	NextThoughtNeeded bool     `json:"nextThoughtNeeded"`
	Stage             string   `json:"stage"`
	Tags              []string `json:"tags"`
	Timestamp         string   `json:"timestamp"`
}

// Details holds relatedness, progress and coverage.
type Details struct {
	RelatedThoughtsCount    int              `json:"relatedThoughtsCount"`
	RelatedThoughtSummaries []RelatedSummary `json:"relatedThoughtSummaries"`
	Progress                float64          `json:"progress"`
	IsFirstInStage          bool             `json:"isFirstInStage"`
	ConfidenceScore         float64          `json:"confidenceScore"`
	MetadataAlerts          []string         `json:"metadataAlerts"`
	StageCoverage           StageCounts      `json:"stageCoverage"`
	PendingStages           []string         `json:"pendingStages"`
}

// RelatedSummary is a short view of a related thought.
type RelatedSummary struct {
	ThoughtNumber int    `json:"thoughtNumber"`
	Stage         string `json:"stage"`
	Snippet       string `json:"snippet"`
}

// Context describes the history around the thought.
type Context struct {
	ThoughtHistoryLength int               `json:"thoughtHistoryLength"`
	CurrentStage         string            `json:"currentStage"`
	ProjectDependencies  DependencySummary `json:"projectDependencies"`
}

// DependencySummary lists the distinct dependencies of a history.
type DependencySummary struct {
	Count int      `json:"count"`
	Items []string `json:"items"`
}

// Insights are history-wide readiness signals.
type Insights struct {
	TestingReady         bool `json:"testingReady"`
	HighRiskPendingTests int  `json:"highRiskPendingTests"`
}

// Guidance recommends whether the agent should record another thought.
type Guidance struct {
	RecommendedNextThoughtNeeded bool   `json:"recommendedNextThoughtNeeded"`
	Reason                       string `json:"reason"`
}

// Analyze analyzes t within all. all is expected to already contain t.
func Analyze(t *thought.Thought, all []*thought.Thought) *Analysis {
	related := FindRelated(t, all, DefaultMaxRelated)
	summaries := make([]RelatedSummary, len(related))
	for i, r := range related {
		summaries[i] = RelatedSummary{
			ThoughtNumber: r.Number,
			Stage:         string(r.Stage),
			Snippet:       snippet(r.Content),
		}
	}

	sameStage := 0
	for _, o := range all {
		if o.Stage == t.Stage {
			sameStage++
		}
	}

	progress := float64(t.Number) / float64(t.Total) * 100
	coverage := countStages(all)
	pending := make([]string, 0, len(coverage))
	for _, c := range coverage {
		if c.Count == 0 {
			pending = append(pending, string(c.Stage))
		}
	}

	deps := distinctSorted(all, func(t *thought.Thought) []string { return t.Dependencies })

	return &Analysis{
		ThoughtAnalysis: ThoughtAnalysis{
			CurrentThought: CurrentThought{
				ThoughtNumber:     t.Number,
				TotalThoughts:     t.Total,
				NextThoughtNeeded: t.NextNeeded,
				Stage:             string(t.Stage),
				Tags:              append([]string{}, t.Tags...),
				Timestamp:         t.Timestamp.Format(time.RFC3339Nano),
			},
			Analysis: Details{
				RelatedThoughtsCount:    len(related),
				RelatedThoughtSummaries: summaries,
				Progress:                progress,
				IsFirstInStage:          sameStage <= 1,
				ConfidenceScore:         t.Confidence,
				MetadataAlerts:          metadataAlerts(t),
				StageCoverage:           coverage,
				PendingStages:           pending,
			},
			Context: Context{
				ThoughtHistoryLength: len(all),
				CurrentStage:         string(t.Stage),
				ProjectDependencies:  DependencySummary{Count: len(deps), Items: deps},
			},
		},
		Insights: Insights{
			TestingReady:         testingReady(all),
			HighRiskPendingTests: highRiskWithoutTests(all),
		},
		Guidance: guidance(t, len(pending), progress),
	}
}

// guidance applies the stop rules in order; the first match wins.
func guidance(t *thought.Thought, pending int, progress float64) (g Guidance) {
	defer func() {
		if recover() != nil {
			g = Guidance{RecommendedNextThoughtNeeded: true, Reason: ReasonContinue}
		}
	}()

	switch {
	case t.Number >= t.Total:
		return Guidance{Reason: ReasonReachedTotal}
	case t.Stage == thought.StageReview:
		return Guidance{Reason: ReasonReviewComplete}
	case pending == 0 && progress >= stopProgress:
		return Guidance{Reason: ReasonStagesCovered}
	}
	return Guidance{RecommendedNextThoughtNeeded: true, Reason: ReasonContinue}
}

func metadataAlerts(t *thought.Thought) []string {
	alerts := []string{}
	if t.Stage == thought.StageImplementation && len(t.FilesTouched) == 0 {
		alerts = append(alerts, AlertMissingFiles)
	}
	if (t.Stage == thought.StageTesting || t.Stage == thought.StageReview) && len(t.TestsToRun) == 0 {
		alerts = append(alerts, AlertMissingTests)
	}
	if t.Risk == thought.RiskHigh && t.Confidence < lowConfidence {
		alerts = append(alerts, AlertRiskConfidence)
	}
	return alerts
}

// testingReady reports whether some Testing thought is numbered at or
// after the last Implementation thought.
func testingReady(all []*thought.Thought) bool {
	lastImpl := 0
	for _, t := range all {
		if t.Stage == thought.StageImplementation && t.Number > lastImpl {
			lastImpl = t.Number
		}
	}
	if lastImpl == 0 {
		return false
	}
	for _, t := range all {
		if t.Stage == thought.StageTesting && t.Number >= lastImpl {
			return true
		}
	}
	return false
}

func highRiskWithoutTests(all []*thought.Thought) int {
	n := 0
	for _, t := range all {
		if t.Risk == thought.RiskHigh && len(t.TestsToRun) == 0 {
			n++
		}
	}
	return n
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}
