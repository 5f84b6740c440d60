package concept

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        Vector
		b        Vector
		expected float64
		delta    float64
	}{
		{
			name:     "identical vectors",
			a:        Vector{1, 0, 0},
			b:        Vector{1, 0, 0},
			expected: 1.0,
			delta:    1e-9,
		},
		{
			name:     "orthogonal vectors",
			a:        Vector{1, 0, 0},
			b:        Vector{0, 1, 0},
			expected: 0.0,
			delta:    1e-9,
		},
		{
			name:     "opposite vectors",
			a:        Vector{1, 0, 0},
			b:        Vector{-1, 0, 0},
			expected: -1.0,
			delta:    1e-9,
		},
		{
			name:     "45 degrees",
			a:        Vector{1, 1, 0},
			b:        Vector{1, 0, 0},
			expected: 0.7071,
			delta:    0.001,
		},
		{
			name:     "scale invariant",
			a:        Vector{2, 4, 6},
			b:        Vector{1, 2, 3},
			expected: 1.0,
			delta:    1e-9,
		},
		{
			name:     "zero vector",
			a:        Vector{0, 0, 0},
			b:        Vector{1, 2, 3},
			expected: 0.0,
			delta:    0,
		},
		{
			name:     "empty vectors",
			a:        Vector{},
			b:        Vector{},
			expected: 0.0,
			delta:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, sim, tt.delta)
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity(Vector{1, 0}, Vector{1, 0, 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVector_Normalize(t *testing.T) {
	v := Vector{3, 4, 0}
	n := v.Normalize()

	assert.InDelta(t, 1.0, n.Norm(), 1e-9)
	assert.InDelta(t, 0.6, n[0], 1e-9)
	assert.InDelta(t, 0.8, n[1], 1e-9)

	zero := Vector{0, 0}
	assert.Equal(t, zero, zero.Normalize())
}

func TestParseActionKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ActionKind
		wantErr bool
	}{
		{"curiosity", ActionCuriosity, false},
		{"Aesthetics", ActionAesthetics, false},
		{" verification ", ActionVerification, false},
		{"", ActionDefault, false},
		{"default", ActionDefault, false},
		{"telepathy", ActionDefault, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseActionKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConcept_CloneIsIndependent(t *testing.T) {
	c := New("Test", Vector{1, 2, 3}, 0.5, ActionDefault)
	clone := c.Clone()

	clone.Vector[0] = 99
	clone.State[0] = 0.1
	clone.Curiosity = 0.9

	assert.Equal(t, 1.0, c.Vector[0])
	assert.Equal(t, 1.0, c.State[0])
	assert.Equal(t, DefaultCuriosity, c.Curiosity)
	assert.Equal(t, 0.5, clone.Threshold())
}

func TestConcept_MarshalJSON(t *testing.T) {
	c := New("Curiosity", Vector{0.9, -0.2, 0.5}, 0.7, ActionCuriosity)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Curiosity", decoded["name"])
	assert.Equal(t, "curiosity", decoded["action"])
	assert.InDelta(t, 0.7, decoded["threshold"], 1e-9)
}

func TestEngine_FindBestMatch(t *testing.T) {
	engine := NewEngine(AuthorAll(DefaultSeeds()))

	t.Run("exact concept vector", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{0.9, -0.2, 0.5})
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "Curiosity", match.Name)
	})

	t.Run("aesthetics direction", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{0.2, 0.8, -0.1})
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "Aesthetics", match.Name)
	})

	t.Run("no concept above threshold", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{0, 0, -1})
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("zero query never matches", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{0, 0, 0})
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{1, 0})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Nil(t, match)
	})

	t.Run("NaN query never matches", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{math.NaN(), 0, 0})
		require.NoError(t, err)
		assert.Nil(t, match)

		match, err = engine.FindBestMatch(Vector{0.9, math.NaN(), 0.5})
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("infinite query never matches", func(t *testing.T) {
		match, err := engine.FindBestMatch(Vector{math.Inf(1), 0, 0})
		require.NoError(t, err)
		assert.Nil(t, match)
	})
}

func TestEngine_FindBestMatchScore(t *testing.T) {
	engine := NewEngine(AuthorAll(DefaultSeeds()))
	query := Vector{0.2, 0.8, -0.1}

	match, sim, err := engine.FindBestMatchScore(query)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Aesthetics", match.Name)

	want, err := match.Similarity(query)
	require.NoError(t, err)
	assert.InDelta(t, want, sim, 1e-12)

	match, sim, err = engine.FindBestMatchScore(Vector{0, 0, -1})
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Zero(t, sim)
}

func TestEngine_FindBestMatch_ThresholdIsStrict(t *testing.T) {
	engine := NewEngine([]Concept{
		New("Edge", Vector{1, 0}, 1.0, ActionDefault),
	})

	match, err := engine.FindBestMatch(Vector{1, 0})
	require.NoError(t, err)
	assert.Nil(t, match, "similarity equal to the threshold must not match")
}

func TestEngine_FindBestMatch_TieGoesToFirst(t *testing.T) {
	engine := NewEngine([]Concept{
		New("First", Vector{1, 1}, 0.5, ActionDefault),
		New("Second", Vector{2, 2}, 0.5, ActionDefault),
	})

	match, err := engine.FindBestMatch(Vector{1, 1})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "First", match.Name)
}

func TestEngine_FindBestMatch_ReturnsCopy(t *testing.T) {
	engine := NewEngine(AuthorAll(DefaultSeeds()))

	match, err := engine.FindBestMatch(Vector{0.9, -0.2, 0.5})
	require.NoError(t, err)
	require.NotNil(t, match)

	match.State = [2]float64{0.2, 0.2}
	match.Vector[0] = -5

	stored, ok := engine.Get("Curiosity")
	require.True(t, ok)
	assert.Equal(t, [2]float64{1, 0}, stored.State)
	assert.Equal(t, 0.9, stored.Vector[0])
}

func TestEngine_UpdateConceptAfterInteraction(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := created
	engine := NewEngine(AuthorAll(DefaultSeeds()), WithClock(func() time.Time { return now }))

	now = created.Add(time.Hour)
	require.True(t, engine.UpdateConceptAfterInteraction("Aesthetics"))
	assert.False(t, engine.UpdateConceptAfterInteraction("Missing"))

	got, ok := engine.Get("Aesthetics")
	require.True(t, ok)
	assert.Equal(t, now, got.LastInteraction)

	other, ok := engine.Get("Curiosity")
	require.True(t, ok)
	assert.Equal(t, created, other.LastInteraction)
}

func TestNewEngine_StampsAuthoredConcepts(t *testing.T) {
	created := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	kept := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	restored := Seed{Name: "Restored", Vector: Vector{0, 1, 0}, Threshold: 0.5}.Author()
	restored.LastInteraction = kept
	concepts := append(AuthorAll(DefaultSeeds()), restored)

	engine := NewEngine(concepts, WithClock(func() time.Time { return created }))

	for _, c := range engine.Concepts() {
		if c.Name == "Restored" {
			assert.Equal(t, kept, c.LastInteraction)
			continue
		}
		assert.Equal(t, created, c.LastInteraction, c.Name)
	}
	assert.True(t, concepts[0].LastInteraction.IsZero(), "the caller's concepts are not modified")
}

func TestEngine_Commit(t *testing.T) {
	engine := NewEngine(AuthorAll(DefaultSeeds()))
	before, _ := engine.Get("Verification")

	evolved := before.Clone()
	evolved.State = [2]float64{0.4, 0.6}
	evolved.Curiosity = 0.2
	evolved.LastInteraction = time.Time{}

	require.True(t, engine.Commit(evolved))

	after, _ := engine.Get("Verification")
	assert.Equal(t, [2]float64{0.4, 0.6}, after.State)
	assert.Equal(t, 0.2, after.Curiosity)
	assert.Equal(t, before.LastInteraction, after.LastInteraction)
	assert.Equal(t, before.Threshold(), after.Threshold())

	assert.False(t, engine.Commit(New("Unknown", Vector{1, 0, 0}, 0, ActionDefault)))
}

func TestEngine_OwnsItsConcepts(t *testing.T) {
	concepts := AuthorAll(DefaultSeeds())
	engine := NewEngine(concepts)

	concepts[0].Vector[0] = -1
	concepts[0].Name = "Renamed"

	got := engine.Concepts()
	require.Len(t, got, 3)
	assert.Equal(t, "Curiosity", got[0].Name)
	assert.Equal(t, 0.9, got[0].Vector[0])
	assert.Equal(t, 3, engine.Dimensions())
	assert.Equal(t, 3, engine.Len())
}

func TestSeed_Author(t *testing.T) {
	c := Seed{Name: "X", Vector: Vector{1, 0}, Threshold: 0.3, Curiosity: 0.9, Action: ActionAesthetics}.Author()

	assert.Equal(t, "X", c.Name)
	assert.Equal(t, 0.3, c.Threshold())
	assert.Equal(t, 0.9, c.Curiosity)
	assert.Equal(t, ActionAesthetics, c.Action)
	assert.Equal(t, [2]float64{1, 0}, c.State)

	d := Seed{Name: "Y", Vector: Vector{1, 0}}.Author()
	assert.Equal(t, DefaultCuriosity, d.Curiosity)
}
