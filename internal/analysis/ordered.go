package analysis

import (
	"bytes"
	"encoding/json"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// StageCounts holds a count per stage in canonical pipeline order and
// encodes as a JSON object with keys in that order.
type StageCounts []StageCount

// StageCount is one entry of StageCounts.
type StageCount struct {
	Stage thought.Stage
	Count int
}

func countStages(thoughts []*thought.Thought) StageCounts {
	stages := thought.Stages()
	idx := make(map[thought.Stage]int, len(stages))
	out := make(StageCounts, len(stages))
	for i, st := range stages {
		idx[st] = i
		out[i] = StageCount{Stage: st}
	}
	for _, t := range thoughts {
		if i, ok := idx[t.Stage]; ok {
			out[i].Count++
		}
	}
	return out
}

// Get returns the count for stage.
func (sc StageCounts) Get(stage thought.Stage) int {
	for _, c := range sc {
		if c.Stage == stage {
			return c.Count
		}
	}
	return 0
}

// MarshalJSON encodes the counts as an ordered object.
func (sc StageCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range sc {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKV(&buf, string(c.Stage), c.Count); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DependencyMap maps each dependency to the thought numbers that declare
// it, keeping dependencies in first-appearance order.
type DependencyMap []DependencyRefs

// DependencyRefs is one entry of DependencyMap.
type DependencyRefs struct {
	Dependency string
	Thoughts   []int
}

// Get returns the thought numbers referencing dep.
func (dm DependencyMap) Get(dep string) []int {
	for _, d := range dm {
		if d.Dependency == dep {
			return d.Thoughts
		}
	}
	return nil
}

// MarshalJSON encodes the map as an ordered object.
func (dm DependencyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range dm {
		if i > 0 {
			buf.WriteByte(',')
		}
		refs := d.Thoughts
		if refs == nil {
			refs = []int{}
		}
		if err := writeKV(&buf, d.Dependency, refs); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKV(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
