package thought

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func validParams() Params {
	return Params{
		Content:    "Outline the API surface",
		Number:     1,
		Total:      3,
		NextNeeded: true,
		Stage:      StageScoping,
	}
}

func TestNew_Defaults(t *testing.T) {
	p := validParams()
	p.Stage = ""

	th, err := New(p)
	require.NoError(t, err)

	assert.NotEmpty(t, th.ID.String())
	assert.False(t, th.Timestamp.IsZero())
	assert.Equal(t, StageImplementation, th.Stage)
	assert.Equal(t, RiskMedium, th.Risk)
	assert.Equal(t, DefaultConfidence, th.Confidence)
	assert.NotNil(t, th.Tags)
	assert.Empty(t, th.Tags)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr error
	}{
		{
			name:    "empty content",
			mutate:  func(p *Params) { p.Content = "" },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "whitespace content",
			mutate:  func(p *Params) { p.Content = "  \n\t" },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "zero number",
			mutate:  func(p *Params) { p.Number = 0 },
			wantErr: ErrInvalidNumber,
		},
		{
			name:    "total below number",
			mutate:  func(p *Params) { p.Number = 5; p.Total = 4 },
			wantErr: ErrTotalBelowNumber,
		},
		{
			name:    "confidence above one",
			mutate:  func(p *Params) { p.Confidence = ptr(1.01) },
			wantErr: ErrConfidenceRange,
		},
		{
			name:    "confidence below zero",
			mutate:  func(p *Params) { p.Confidence = ptr(-0.1) },
			wantErr: ErrConfidenceRange,
		},
		{
			name:    "confidence NaN",
			mutate:  func(p *Params) { p.Confidence = ptr(math.NaN()) },
			wantErr: ErrConfidenceRange,
		},
		{
			name:    "confidence positive infinity",
			mutate:  func(p *Params) { p.Confidence = ptr(math.Inf(1)) },
			wantErr: ErrConfidenceRange,
		},
		{
			name:    "confidence negative infinity",
			mutate:  func(p *Params) { p.Confidence = ptr(math.Inf(-1)) },
			wantErr: ErrConfidenceRange,
		},
		{
			name:    "unknown stage",
			mutate:  func(p *Params) { p.Stage = "Deploy" },
			wantErr: ErrUnknownStage,
		},
		{
			name:    "unknown risk",
			mutate:  func(p *Params) { p.Risk = "extreme" },
			wantErr: ErrUnknownRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			th, err := New(p)
			require.Error(t, err)
			assert.Nil(t, th)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNew_BoundaryValues(t *testing.T) {
	p := validParams()
	p.Number = 3
	p.Total = 3
	p.Confidence = ptr(0)

	th, err := New(p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, th.Confidence)

	p.Confidence = ptr(1)
	th, err = New(p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, th.Confidence)
}

func TestNew_CopiesInputSlices(t *testing.T) {
	p := validParams()
	p.Tags = []string{"api"}

	th, err := New(p)
	require.NoError(t, err)

	p.Tags[0] = "changed"
	assert.Equal(t, []string{"api"}, th.Tags)
}

func TestNew_UniqueIdentifiers(t *testing.T) {
	a, err := New(validParams())
	require.NoError(t, err)
	b, err := New(validParams())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a.Clone()))
}

func TestClone_IsDeep(t *testing.T) {
	p := validParams()
	p.FilesTouched = []string{"main.go"}
	th, err := New(p)
	require.NoError(t, err)

	c := th.Clone()
	c.FilesTouched[0] = "other.go"
	c.Content = "mutated"

	assert.Equal(t, []string{"main.go"}, th.FilesTouched)
	assert.Equal(t, "Outline the API surface", th.Content)
}
