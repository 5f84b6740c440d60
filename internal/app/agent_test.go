package app

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rand/starweave/internal/concept"
	"github.com/rand/starweave/internal/config"
	"github.com/rand/starweave/internal/observability"
)

// keywordProvider embeds known words onto fixed vectors.
type keywordProvider struct {
	vectors map[string]concept.Vector
}

func (p keywordProvider) Embed(_ context.Context, texts []string) ([]concept.Vector, error) {
	out := make([]concept.Vector, len(texts))
	for i, text := range texts {
		v, ok := p.vectors[text]
		if !ok {
			v = concept.Vector{0, 0, -1}
		}
		out[i] = v
	}
	return out, nil
}

func (p keywordProvider) Dimensions() int { return 0 }
func (p keywordProvider) Model() string   { return "keywords" }

func testProvider() keywordProvider {
	return keywordProvider{vectors: map[string]concept.Vector{
		"curious": {0.9, -0.2, 0.5},
		"pretty":  {0.2, 0.8, -0.1},
		"proof":   {-0.3, 0.1, 0.9},
		"wander":  {1, 0, 0.5},
		"flat":    {1, 0},
	}}
}

// testClock is a settable clock. It starts slightly in the past so that
// anything still stamped with wall-clock time shows up as missing decay.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Add(-time.Minute)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestAgent(t *testing.T, mutate func(*config.Config), opts ...Option) (*Agent, *testClock) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Journal.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	clock := newTestClock()
	opts = append([]Option{
		WithProvider(testProvider()),
		WithClock(clock.Now),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)

	a, err := New(context.Background(), &cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, clock
}

func TestProcess_Match(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	res, err := a.Process(context.Background(), "  curious  ")
	require.NoError(t, err)

	assert.True(t, res.Matched())
	assert.Equal(t, "curious", res.Input)
	assert.Equal(t, "Curiosity", res.Concept)
	assert.Equal(t, concept.ActionCuriosity, res.Action)
	assert.InDelta(t, 1.0, res.Similarity, 1e-9)
	assert.Equal(t, [2]float64{1, 0}, res.StateBefore)
	// the curiosity boost pushes the pair to its bounds
	assert.Equal(t, [2]float64{1, 0}, res.StateAfter)
	assert.Equal(t, concept.DefaultCuriosity, res.Curiosity)
	assert.Contains(t, res.Response, "Curiosity matched")
	assert.Equal(t, "explorer", res.Module)
	assert.Equal(t, a.Prompt(), res.Prompt)
	assert.NotEmpty(t, res.ID)
	assert.Nil(t, res.CoCreation)
	assert.Nil(t, res.Reflection)
}

func TestProcess_SimilarityIsWinningScore(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	res, err := a.Process(context.Background(), "wander")
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, "Curiosity", res.Concept)

	want, err := concept.CosineSimilarity(concept.Vector{0.9, -0.2, 0.5}, concept.Vector{1, 0, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, want, res.Similarity, 1e-12)
	assert.Less(t, res.Similarity, 1.0)
}

func TestProcess_NoMatch(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	res, err := a.Process(context.Background(), "nothing here")
	require.NoError(t, err)

	assert.False(t, res.Matched())
	assert.Empty(t, res.Module)
	assert.Equal(t, "I have processed your input about 'nothing here'", res.Response)

	stats, err := a.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(0), stats.Matched)
}

func TestProcess_EmptyInput(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	_, err := a.Process(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestProcess_DimensionMismatch(t *testing.T) {
	reg := observability.NewRegistry()
	a, _ := newTestAgent(t, nil, WithRegistry(reg))

	_, err := a.Process(context.Background(), "flat")
	assert.ErrorIs(t, err, concept.ErrInvalidInput)
	assert.Equal(t, int64(1), reg.Snapshot().Counters[observability.MetricInvalidInputTotal])

	history, err := a.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProcess_DecayStartsAtAgentClock(t *testing.T) {
	a, clock := newTestAgent(t, nil)

	clock.Advance(time.Hour)
	res, err := a.Process(context.Background(), "curious")
	require.NoError(t, err)
	assert.InDelta(t, concept.DefaultCuriosity*math.Exp(-1), res.Curiosity, 1e-9)
}

func TestProcess_DecayUsesPreviousInteraction(t *testing.T) {
	a, clock := newTestAgent(t, nil)
	ctx := context.Background()

	_, err := a.Process(ctx, "curious")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	res, err := a.Process(ctx, "curious")
	require.NoError(t, err)

	assert.InDelta(t, concept.DefaultCuriosity*math.Exp(-1), res.Curiosity, 1e-9)

	// evolved state is committed to the top-level concept
	var curiosity concept.Concept
	for _, c := range a.Concepts() {
		if c.Name == "Curiosity" {
			curiosity = c
		}
	}
	assert.InDelta(t, res.Curiosity, curiosity.Curiosity, 1e-12)
	assert.Equal(t, clock.Now(), curiosity.LastInteraction)
}

func TestProcess_ModuleCopiesDoNotEvolve(t *testing.T) {
	a, clock := newTestAgent(t, nil)
	ctx := context.Background()

	_, err := a.Process(ctx, "curious")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	_, err = a.Process(ctx, "curious")
	require.NoError(t, err)

	explorer, ok := a.orchestrator.Module("explorer")
	require.True(t, ok)
	assert.Equal(t, concept.DefaultCuriosity, explorer.Concepts()[0].Curiosity)
}

func TestProcess_Reflection(t *testing.T) {
	a, _ := newTestAgent(t, func(cfg *config.Config) {
		cfg.Reflection.Interval = 2
		cfg.Reflection.History = 10
	})
	ctx := context.Background()

	res, err := a.Process(ctx, "curious")
	require.NoError(t, err)
	assert.Nil(t, res.Reflection)

	// unmatched input does not count towards a reflection
	res, err = a.Process(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, res.Reflection)

	res, err = a.Process(ctx, "pretty")
	require.NoError(t, err)
	require.NotNil(t, res.Reflection)
	assert.Equal(t, []string{"curious", "pretty"}, res.Reflection.Memory)
	assert.Len(t, res.Reflection.Concepts, 3)

	// the triggering interaction is already journaled
	assert.Equal(t, int64(3), res.Reflection.Stats.Total)
	assert.Equal(t, int64(2), res.Reflection.Stats.Matched)
	assert.Equal(t, int64(1), res.Reflection.Stats.Reflections)

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Reflections)
	assert.Equal(t, int64(1), a.Metrics().Snapshot().Counters[observability.MetricReflectionsTotal])
}

func TestProcess_AutoCoCreate(t *testing.T) {
	a, _ := newTestAgent(t, func(cfg *config.Config) {
		cfg.Orchestrator.AutoCoCreate = true
	})
	prompts := config.Default().Orchestrator.Prompts

	res, err := a.Process(context.Background(), "pretty")
	require.NoError(t, err)

	require.NotNil(t, res.CoCreation)
	assert.Equal(t, "artist", res.CoCreation.Primary)
	assert.Len(t, res.CoCreation.Suggestions, 2)
	assert.InDelta(t, 0.4, a.Propensity(), 1e-9)
	assert.Equal(t, prompts[1], res.Prompt)

	for _, m := range a.Modules() {
		if m.Name == "artist" {
			assert.Equal(t, 2, m.CoCreations)
		} else {
			assert.Equal(t, 1, m.CoCreations)
		}
	}
}

func TestCoCreate(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	ctx := context.Background()

	report := a.CoCreate(ctx, "analyst", " a new theory ")
	assert.True(t, report.OK())
	assert.Equal(t, "a new theory", report.Input)
	assert.Len(t, report.Suggestions, 2)

	reflection, err := a.Reflect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"explorer suggests Curiosity", "artist suggests Aesthetics"}, reflection.Memory)

	missing := a.CoCreate(ctx, "ghost", "boo")
	assert.False(t, missing.OK())
	assert.InDelta(t, 0.4, a.Propensity(), 1e-9)
}

func TestModules(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	assert.Equal(t, []ModuleInfo{
		{Name: "explorer", Concepts: []string{"Curiosity"}},
		{Name: "artist", Concepts: []string{"Aesthetics"}},
		{Name: "analyst", Concepts: []string{"Verification"}},
	}, a.Modules())
}

func TestHistory(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	ctx := context.Background()

	for _, input := range []string{"curious", "pretty", "proof"} {
		_, err := a.Process(ctx, input)
		require.NoError(t, err)
	}

	history, err := a.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "proof", history[0].Input)
	assert.Equal(t, "Verification", history[0].Concept)
	assert.Equal(t, "analyst", history[0].Module)
	assert.Equal(t, "pretty", history[1].Input)

	assert.InDelta(t, 1.0, a.Metrics().MatchRate(), 1e-9)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Concepts = nil

	_, err := New(context.Background(), &cfg, WithProvider(testProvider()))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_ProviderDimensionMismatch(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Enabled = false

	_, err := New(context.Background(), &cfg, WithProvider(wideProvider{}))
	assert.ErrorIs(t, err, concept.ErrInvalidInput)
}

type wideProvider struct{ keywordProvider }

func (wideProvider) Dimensions() int { return 768 }

func TestNew_PersistentJournal(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	ctx := context.Background()

	a, err := New(ctx, &cfg, WithProvider(testProvider()))
	require.NoError(t, err)
	_, err = a.Process(ctx, "curious")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(ctx, &cfg, WithProvider(testProvider()))
	require.NoError(t, err)
	defer b.Close()

	history, err := b.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "curious", history[0].Input)
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	a, _ := newTestAgent(t, nil, WithTracerProvider(tp))
	ctx := context.Background()

	_, err := a.Process(ctx, "curious")
	require.NoError(t, err)
	_, err = a.Process(ctx, "flat")
	require.Error(t, err)
	a.CoCreate(ctx, "ghost", "boo")

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "agent.process", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "Curiosity", attrs["starweave.concept"].AsString())
	assert.Equal(t, "explorer", attrs["starweave.module"].AsString())
	assert.Equal(t, int64(7), attrs["starweave.input.length"].AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "agent.process", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	assert.Equal(t, "agent.cocreate", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "ghost", spanAttrs(spans[2])["starweave.primary"].AsString())
}
