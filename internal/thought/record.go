package thought

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// pythonISOLayout matches naive ISO timestamps without a zone offset,
// as written by older session files.
const pythonISOLayout = "2006-01-02T15:04:05.999999999"

// Record is the persisted and wire form of a Thought.
type Record struct {
	Thought               string   `json:"thought"`
	ThoughtNumber         int      `json:"thoughtNumber"`
	TotalThoughts         int      `json:"totalThoughts"`
	NextThoughtNeeded     bool     `json:"nextThoughtNeeded"`
	Stage                 string   `json:"stage"`
	Tags                  []string `json:"tags"`
	AxiomsUsed            []string `json:"axiomsUsed"`
	AssumptionsChallenged []string `json:"assumptionsChallenged"`
	FilesTouched          []string `json:"filesTouched"`
	TestsToRun            []string `json:"testsToRun"`
	Dependencies          []string `json:"dependencies"`
	RiskLevel             string   `json:"riskLevel"`
	ConfidenceScore       *float64 `json:"confidenceScore,omitempty"`
	Timestamp             string   `json:"timestamp"`
	ID                    string   `json:"id"`
}

// Record converts t to its persisted form.
func (t *Thought) Record() Record {
	confidence := t.Confidence
	return Record{
		Thought:               t.Content,
		ThoughtNumber:         t.Number,
		TotalThoughts:         t.Total,
		NextThoughtNeeded:     t.NextNeeded,
		Stage:                 string(t.Stage),
		Tags:                  cloneStrings(t.Tags),
		AxiomsUsed:            cloneStrings(t.AxiomsUsed),
		AssumptionsChallenged: cloneStrings(t.AssumptionsChallenged),
		FilesTouched:          cloneStrings(t.FilesTouched),
		TestsToRun:            cloneStrings(t.TestsToRun),
		Dependencies:          cloneStrings(t.Dependencies),
		RiskLevel:             string(t.Risk),
		ConfidenceScore:       &confidence,
		Timestamp:             t.Timestamp.Format(time.RFC3339Nano),
		ID:                    t.ID.String(),
	}
}

// FromRecord rebuilds a thought from its persisted form, keeping the stored
// identifier and timestamp. Stage and risk go through the same alias
// parsing as caller input, and every construction invariant applies.
// A missing or unparseable identifier is replaced with a fresh one and a
// missing timestamp with the current time.
func FromRecord(r Record) (*Thought, error) {
	stage, err := ParseStage(r.Stage)
	if err != nil {
		return nil, err
	}
	risk, err := ParseRiskLevel(r.RiskLevel)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
	}

	ts := time.Now().UTC()
	if r.Timestamp != "" {
		ts, err = parseTimestamp(r.Timestamp)
		if err != nil {
			return nil, err
		}
	}

	return build(Params{
		Content:               r.Thought,
		Number:                r.ThoughtNumber,
		Total:                 r.TotalThoughts,
		NextNeeded:            r.NextThoughtNeeded,
		Stage:                 stage,
		Tags:                  r.Tags,
		AxiomsUsed:            r.AxiomsUsed,
		AssumptionsChallenged: r.AssumptionsChallenged,
		FilesTouched:          r.FilesTouched,
		TestsToRun:            r.TestsToRun,
		Dependencies:          r.Dependencies,
		Risk:                  risk,
		Confidence:            r.ConfidenceScore,
	}, id, ts)
}

// MarshalJSON encodes t in its Record form.
func (t *Thought) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Record())
}

// UnmarshalJSON decodes a Record and validates it.
func (t *Thought) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	parsed, err := FromRecord(r)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(pythonISOLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrValidation, s)
	}
	return ts, nil
}
