package analysis

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// EmptySummaryMessage is reported when there is nothing to summarize.
const EmptySummaryMessage = "No thoughts recorded yet"

const topTagLimit = 5

// SummaryStatus distinguishes the three summary outcomes.
type SummaryStatus int

const (
	// SummaryEmpty means the history had no thoughts.
	SummaryEmpty SummaryStatus = iota
	// SummaryOK means Summary holds the full aggregation.
	SummaryOK
	// SummaryDegraded means aggregation failed; only the thought count
	// and an error note are available.
	SummaryDegraded
)

// SummaryResult is the outcome of Summarize.
type SummaryResult struct {
	Status  SummaryStatus
	Summary *Summary

	// TotalThoughts and Error are set when Status is SummaryDegraded.
	TotalThoughts int
	Error         string
}

// Summary aggregates a thought history.
type Summary struct {
	TotalThoughts     int              `json:"totalThoughts"`
	Stages            StageCounts      `json:"stages"`
	Timeline          []TimelineEntry  `json:"timeline"`
	TopTags           []TagCount       `json:"topTags"`
	CompletionStatus  CompletionStatus `json:"completionStatus"`
	ConfidenceAverage float64          `json:"confidenceAverage"`
	FilesTouched      []string         `json:"filesTouched"`
	RiskProfile       RiskProfile      `json:"riskProfile"`
	DependencyMap     DependencyMap    `json:"dependencyMap"`
}

// TimelineEntry is one thought's position in the timeline.
type TimelineEntry struct {
	Number int    `json:"number"`
	Stage  string `json:"stage"`
}

// TagCount is a tag and how many times it was used.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CompletionStatus reports stage coverage and progress.
type CompletionStatus struct {
	HasAllStages    bool    `json:"hasAllStages"`
	PercentComplete float64 `json:"percentComplete"`
}

// RiskProfile counts thoughts per risk level.
type RiskProfile struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Degraded reports whether aggregation failed.
func (r SummaryResult) Degraded() bool {
	return r.Status == SummaryDegraded
}

// MarshalJSON encodes the result under a "summary" key: a message string
// when empty, the summary object when ok, or a count and error note when
// degraded.
func (r SummaryResult) MarshalJSON() ([]byte, error) {
	var body any
	switch r.Status {
	case SummaryEmpty:
		body = EmptySummaryMessage
	case SummaryOK:
		body = r.Summary
	default:
		body = struct {
			TotalThoughts int    `json:"totalThoughts"`
			Error         string `json:"error"`
		}{r.TotalThoughts, r.Error}
	}
	return json.Marshal(struct {
		Summary any `json:"summary"`
	}{body})
}

// Summarize aggregates thoughts. A failure during aggregation yields a
// degraded result instead of an error.
func Summarize(thoughts []*thought.Thought) (result SummaryResult) {
	if len(thoughts) == 0 {
		return SummaryResult{Status: SummaryEmpty}
	}

	defer func() {
		if r := recover(); r != nil {
			result = SummaryResult{
				Status:        SummaryDegraded,
				TotalThoughts: len(thoughts),
				Error:         fmt.Sprint(r),
			}
		}
	}()

	return SummaryResult{Status: SummaryOK, Summary: summarize(thoughts)}
}

func summarize(thoughts []*thought.Thought) *Summary {
	stages := countStages(thoughts)

	hasAll := true
	for _, c := range stages {
		if c.Count == 0 {
			hasAll = false
			break
		}
	}

	maxTotal := 0
	confidenceSum := 0.0
	for _, t := range thoughts {
		if t.Total > maxTotal {
			maxTotal = t.Total
		}
		confidenceSum += t.Confidence
	}
	percent := 0.0
	if maxTotal > 0 {
		percent = float64(len(thoughts)) / float64(maxTotal) * 100
	}

	return &Summary{
		TotalThoughts: len(thoughts),
		Stages:        stages,
		Timeline:      timeline(thoughts),
		TopTags:       topTags(thoughts, topTagLimit),
		CompletionStatus: CompletionStatus{
			HasAllStages:    hasAll,
			PercentComplete: percent,
		},
		ConfidenceAverage: confidenceSum / float64(len(thoughts)),
		FilesTouched:      distinctSorted(thoughts, func(t *thought.Thought) []string { return t.FilesTouched }),
		RiskProfile:       riskProfile(thoughts),
		DependencyMap:     dependencyMap(thoughts),
	}
}

func timeline(thoughts []*thought.Thought) []TimelineEntry {
	sorted := make([]*thought.Thought, len(thoughts))
	copy(sorted, thoughts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Number < sorted[j].Number
	})

	out := make([]TimelineEntry, len(sorted))
	for i, t := range sorted {
		out[i] = TimelineEntry{Number: t.Number, Stage: string(t.Stage)}
	}
	return out
}

// topTags returns the limit most frequent tags. Ties keep the order in
// which tags were first seen.
func topTags(thoughts []*thought.Thought, limit int) []TagCount {
	counts := make(map[string]int)
	var order []string
	for _, t := range thoughts {
		for _, tag := range t.Tags {
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	out := make([]TagCount, len(order))
	for i, tag := range order {
		out[i] = TagCount{Tag: tag, Count: counts[tag]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func riskProfile(thoughts []*thought.Thought) RiskProfile {
	var rp RiskProfile
	for _, t := range thoughts {
		switch t.Risk {
		case thought.RiskHigh:
			rp.High++
		case thought.RiskMedium:
			rp.Medium++
		case thought.RiskLow:
			rp.Low++
		}
	}
	return rp
}

func dependencyMap(thoughts []*thought.Thought) DependencyMap {
	idx := make(map[string]int)
	var out DependencyMap
	for _, t := range thoughts {
		for _, dep := range t.Dependencies {
			i, ok := idx[dep]
			if !ok {
				i = len(out)
				idx[dep] = i
				out = append(out, DependencyRefs{Dependency: dep})
			}
			out[i].Thoughts = append(out[i].Thoughts, t.Number)
		}
	}
	if out == nil {
		out = DependencyMap{}
	}
	return out
}

func distinctSorted(thoughts []*thought.Thought, field func(*thought.Thought) []string) []string {
	set := make(map[string]struct{})
	for _, t := range thoughts {
		for _, v := range field(t) {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
