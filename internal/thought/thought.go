package thought

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultConfidence is the confidence assigned when none is supplied.
const DefaultConfidence = 0.5

// Thought is a single recorded reasoning step. Values are immutable once
// constructed: the store only hands out clones, and nothing in this module
// mutates a Thought after New or FromRecord returns it.
type Thought struct {
	ID                    uuid.UUID
	Content               string
	Number                int
	Total                 int
	NextNeeded            bool
	Stage                 Stage
	Tags                  []string
	AxiomsUsed            []string
	AssumptionsChallenged []string
	FilesTouched          []string
	TestsToRun            []string
	Dependencies          []string
	Risk                  RiskLevel
	Confidence            float64
	Timestamp             time.Time
}

// Params holds the caller-supplied fields of a new thought.
type Params struct {
	Content    string
	Number     int
	Total      int
	NextNeeded bool

	// Stage defaults to StageImplementation when empty.
	Stage Stage

	Tags                  []string
	AxiomsUsed            []string
	AssumptionsChallenged []string
	FilesTouched          []string
	TestsToRun            []string
	Dependencies          []string

	// Risk defaults to RiskMedium when empty.
	Risk RiskLevel

	// Confidence defaults to DefaultConfidence when nil.
	Confidence *float64
}

// New validates p and returns a thought with a fresh identifier and the
// current timestamp.
func New(p Params) (*Thought, error) {
	return build(p, uuid.New(), time.Now().UTC())
}

func build(p Params, id uuid.UUID, ts time.Time) (*Thought, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, ErrEmptyContent
	}
	if p.Number < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidNumber, p.Number)
	}
	if p.Total < p.Number {
		return nil, fmt.Errorf("%w (got total %d, number %d)", ErrTotalBelowNumber, p.Total, p.Number)
	}

	stage := p.Stage
	if stage == "" {
		stage = StageImplementation
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("%w %q: valid stages are %s", ErrUnknownStage, stage, stageList())
	}

	risk := p.Risk
	if risk == "" {
		risk = RiskMedium
	}
	if !risk.Valid() {
		return nil, fmt.Errorf("%w '%s'. Choose from: low, medium, high", ErrUnknownRisk, risk)
	}

	confidence := DefaultConfidence
	if p.Confidence != nil {
		confidence = *p.Confidence
	}
	if !(confidence >= 0 && confidence <= 1) {
		return nil, fmt.Errorf("%w (got %g)", ErrConfidenceRange, confidence)
	}

	return &Thought{
		ID:                    id,
		Content:               p.Content,
		Number:                p.Number,
		Total:                 p.Total,
		NextNeeded:            p.NextNeeded,
		Stage:                 stage,
		Tags:                  cloneStrings(p.Tags),
		AxiomsUsed:            cloneStrings(p.AxiomsUsed),
		AssumptionsChallenged: cloneStrings(p.AssumptionsChallenged),
		FilesTouched:          cloneStrings(p.FilesTouched),
		TestsToRun:            cloneStrings(p.TestsToRun),
		Dependencies:          cloneStrings(p.Dependencies),
		Risk:                  risk,
		Confidence:            confidence,
		Timestamp:             ts,
	}, nil
}

// Equal reports whether t and other are the same record. Records are
// compared by identifier only.
func (t *Thought) Equal(other *Thought) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID
}

// Clone returns a deep copy of t.
func (t *Thought) Clone() *Thought {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = cloneStrings(t.Tags)
	c.AxiomsUsed = cloneStrings(t.AxiomsUsed)
	c.AssumptionsChallenged = cloneStrings(t.AssumptionsChallenged)
	c.FilesTouched = cloneStrings(t.FilesTouched)
	c.TestsToRun = cloneStrings(t.TestsToRun)
	c.Dependencies = cloneStrings(t.Dependencies)
	return &c
}

// CloneAll deep-copies a slice of thoughts.
func CloneAll(ts []*Thought) []*Thought {
	out := make([]*Thought, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// cloneStrings always returns a non-nil slice so records serialize lists
// as [] rather than null.
func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
