package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_InMemoryStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := openTestStore(t, Options{})
	b := openTestStore(t, Options{})

	require.NoError(t, a.Record(ctx, &Interaction{Input: "only in a"}))

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Empty(t, a.Path())
}

func TestRecord_AssignsIDAndTime(t *testing.T) {
	fixed := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	s := openTestStore(t, Options{Now: func() time.Time { return fixed }})
	ctx := context.Background()

	in := &Interaction{Input: "hello"}
	require.NoError(t, s.Record(ctx, in))

	assert.NotEmpty(t, in.ID)
	assert.Equal(t, fixed, in.Time)

	got, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in.ID, got[0].ID)
	assert.True(t, fixed.Equal(got[0].Time))
}

func TestRecord_RoundTrip(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	in := &Interaction{
		ID:          "fixed-id",
		Time:        time.UnixMilli(1_700_000_000_000),
		Input:       "why do stars shine",
		Concept:     "Curiosity",
		Similarity:  0.93,
		Module:      "explorer",
		StateBefore: [2]float64{1, 0},
		StateAfter:  [2]float64{0.995, 0.004},
		Curiosity:   0.49,
		Response:    "researching",
		Reflection:  true,
	}
	require.NoError(t, s.Record(ctx, in))

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, in.ID, got[0].ID)
	assert.True(t, in.Time.Equal(got[0].Time))
	assert.Equal(t, in.Input, got[0].Input)
	assert.Equal(t, in.Concept, got[0].Concept)
	assert.Equal(t, in.Similarity, got[0].Similarity)
	assert.Equal(t, in.Module, got[0].Module)
	assert.Equal(t, in.StateBefore, got[0].StateBefore)
	assert.Equal(t, in.StateAfter, got[0].StateAfter)
	assert.Equal(t, in.Curiosity, got[0].Curiosity)
	assert.Equal(t, in.Response, got[0].Response)
	assert.True(t, got[0].Reflection)
	assert.True(t, got[0].Matched())
}

func TestRecord_DuplicateID(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &Interaction{ID: "dup", Input: "a"}))
	assert.Error(t, s.Record(ctx, &Interaction{ID: "dup", Input: "b"}))
}

func TestRecent_NewestFirst(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, &Interaction{Input: fmt.Sprintf("input-%d", i)}))
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "input-4", got[0].Input)
	assert.Equal(t, "input-2", got[2].Input)

	all, err := s.Recent(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStats(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	records := []Interaction{
		{Input: "a", Concept: "Curiosity", Module: "explorer"},
		{Input: "b", Concept: "Curiosity", Module: "explorer", Reflection: true},
		{Input: "c", Concept: "Aesthetics", Module: "artist"},
		{Input: "d"},
	}
	for i := range records {
		require.NoError(t, s.Record(ctx, &records[i]))
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.Matched)
	assert.Equal(t, int64(1), stats.Reflections)
	assert.Equal(t, map[string]int64{"Curiosity": 2, "Aesthetics": 1}, stats.ByConcept)
	assert.Equal(t, map[string]int64{"explorer": 2, "artist": 1}, stats.ByModule)
	assert.InDelta(t, 0.75, stats.MatchRate(), 1e-9)
}

func TestStats_Empty(t *testing.T) {
	s := openTestStore(t, Options{})

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, 0.0, stats.MatchRate())
	assert.Empty(t, stats.ByConcept)
}

func TestOpen_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	ctx := context.Background()

	s, err := Open(ctx, Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, &Interaction{Input: "remember me"}))
	require.NoError(t, s.Close())

	// reopening re-runs migrations without error
	s, err = Open(ctx, Options{Path: path})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "remember me", got[0].Input)
	assert.Equal(t, path, s.Path())
}

func TestClosed(t *testing.T) {
	s, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.ErrorIs(t, s.Record(ctx, &Interaction{Input: "x"}), ErrClosed)
	_, err = s.Recent(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Stats(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
