// Package app wires the starweave components into a single agent.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rand/starweave/internal/action"
	"github.com/rand/starweave/internal/agent"
	"github.com/rand/starweave/internal/concept"
	"github.com/rand/starweave/internal/config"
	"github.com/rand/starweave/internal/embeddings"
	"github.com/rand/starweave/internal/journal"
	"github.com/rand/starweave/internal/observability"
	"github.com/rand/starweave/internal/state"
)

// ErrEmptyInput is returned for blank input.
var ErrEmptyInput = errors.New("empty input")

// Agent processes text interactions: it embeds the input, matches it
// against the top-level concepts, evolves the matched concept, routes the
// input to a module and records the outcome.
type Agent struct {
	mu sync.Mutex

	cfg          *config.Config
	provider     embeddings.Provider
	engine       *concept.Engine
	updater      *state.Updater
	actions      *action.System
	orchestrator *agent.Orchestrator
	journal      *journal.Store
	ownsJournal  bool
	metrics      *observability.AgentMetrics
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type options struct {
	tracerProvider trace.TracerProvider

	logger   *slog.Logger
	provider embeddings.Provider
	registry *observability.Registry
	journal  *journal.Store
	now      func() time.Time
	rng      *rand.Rand
}

// Option is a functional option for Agent.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProvider replaces the configured embedding provider.
func WithProvider(p embeddings.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithRegistry sets the metrics registry.
func WithRegistry(r *observability.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithJournal uses an existing journal. The caller keeps ownership.
func WithJournal(j *journal.Store) Option {
	return func(o *options) {
		o.journal = j
	}
}

// WithClock sets the clock shared by the engines and the state updater.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithRand sets the random source for state drift.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// New builds an agent from the configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Agent, error) {
	o := options{
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		var err error
		if provider, err = embeddings.New(cfg.Embedding); err != nil {
			return nil, err
		}
	}

	concepts := concept.AuthorAll(cfg.Concepts)
	engine := concept.NewEngine(concepts, concept.WithClock(o.now))
	if dims := provider.Dimensions(); dims > 0 && dims != engine.Dimensions() {
		return nil, fmt.Errorf("%w: provider %s embeds %d dimensions, concepts have %d",
			concept.ErrInvalidInput, provider.Model(), dims, engine.Dimensions())
	}

	registry := o.registry
	if registry == nil {
		registry = observability.NewRegistry()
	}
	metrics := observability.NewAgentMetrics(registry)

	updaterOpts := []state.Option{
		state.WithReflectionInterval(cfg.Reflection.Interval),
		state.WithClock(o.now),
	}
	if o.rng != nil {
		updaterOpts = append(updaterOpts, state.WithRand(o.rng))
	}

	orchestrator := agent.NewOrchestrator(
		agent.WithPrompts(cfg.Orchestrator.Prompts),
		agent.WithPropensity(cfg.Orchestrator.Propensity),
		agent.WithLogger(o.logger),
		agent.WithMetrics(metrics),
	)
	for _, m := range cfg.Modules {
		seeds := cfg.ModuleSeeds(m)
		orchestrator.RegisterModule(agent.NewModule(m.Name, concept.AuthorAll(seeds), concept.WithClock(o.now)))
	}

	a := &Agent{
		cfg:          cfg,
		provider:     provider,
		engine:       engine,
		updater:      state.NewUpdater(updaterOpts...),
		actions:      action.NewSystem(),
		orchestrator: orchestrator,
		journal:      o.journal,
		metrics:      metrics,
		logger:       o.logger,
		tracer:       o.tracerProvider.Tracer(observability.TracerName),
		now:          o.now,
	}

	if a.journal == nil {
		path := ""
		if cfg.Journal.Enabled {
			path = cfg.JournalPath()
		}
		j, err := journal.Open(ctx, journal.Options{Path: path, Logger: o.logger, Now: o.now})
		if err != nil {
			return nil, err
		}
		a.journal = j
		a.ownsJournal = true
	}

	a.logger.Debug("agent ready",
		"concepts", engine.Len(),
		"modules", len(cfg.Modules),
		"provider", provider.Model(),
		"journal", a.journal.Path(),
	)
	return a, nil
}

// Process handles one interaction. A match is evolved in a copy: decay is
// measured against the previous interaction, the evolved state is committed
// to the top-level engine and only then is the interaction time refreshed.
// Inputs that match nothing get the default response. Dimension mismatches
// between the embedding and the concepts are returned as errors.
func (a *Agent) Process(ctx context.Context, input string) (res *Result, err error) {
	ctx, span := a.tracer.Start(ctx, "agent.process")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("starweave.concept", res.Concept),
				attribute.String("starweave.module", res.Module),
				attribute.Float64("starweave.similarity", res.Similarity),
				attribute.Bool("starweave.reflection", res.Reflection != nil),
			)
		}
		span.End()
	}()

	input = strings.TrimSpace(input)
	span.SetAttributes(attribute.Int("starweave.input.length", len(input)))
	if input == "" {
		return nil, ErrEmptyInput
	}

	vec, err := embeddings.EmbedOne(ctx, a.provider, input)
	if err != nil {
		return nil, fmt.Errorf("embed input: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	match, sim, err := a.engine.FindBestMatchScore(vec)
	if err != nil {
		a.metrics.RecordInvalidInput()
		return nil, fmt.Errorf("process input: %w", err)
	}

	res = &Result{Input: input, Time: a.now()}
	if match != nil {
		res.Concept = match.Name
		res.Action = match.Action
		res.Similarity = sim
		res.StateBefore = match.State
	}
	a.metrics.RecordMatch(res.Concept, match != nil, time.Since(start))

	route, err := a.orchestrator.RouteInput(vec)
	if err != nil {
		a.metrics.RecordInvalidInput()
		return nil, fmt.Errorf("route input: %w", err)
	}
	if route != nil {
		res.Module = route.Module
	}

	if match == nil {
		res.Response = action.Default(input)
		a.logger.Debug("no concept matched", "input", input, "module", res.Module)
	} else {
		evolved := *match
		a.updater.UpdateState(&evolved)
		a.engine.Commit(evolved)
		a.engine.UpdateConceptAfterInteraction(evolved.Name)

		res.StateAfter = evolved.State
		res.Curiosity = evolved.Curiosity
		res.Response = a.actions.Trigger(evolved, input)

		a.logger.Debug("concept matched",
			"concept", evolved.Name,
			"similarity", res.Similarity,
			"curiosity", evolved.Curiosity,
			"module", res.Module,
		)

		if a.cfg.Orchestrator.AutoCoCreate && res.Module != "" {
			report := a.coCreate(res.Module, input)
			res.CoCreation = &report
		}
	}
	reflecting := match != nil && a.updater.ShouldTriggerReflection()

	res.Prompt = a.orchestrator.GenerateProactivePrompt()

	// The interaction is journaled before reflecting so the reflection's
	// stats include it.
	entry := res.interaction()
	entry.Reflection = reflecting
	if err := a.journal.Record(ctx, entry); err != nil {
		a.logger.Warn("journal write failed", "error", err)
	} else {
		res.ID = entry.ID
	}

	if reflecting {
		reflection, err := a.reflect(ctx)
		if err != nil {
			return nil, err
		}
		res.Reflection = reflection
	}

	return res, nil
}

// CoCreate runs a co-creation round with the named primary module.
func (a *Agent) CoCreate(ctx context.Context, primary, input string) agent.CoCreationReport {
	_, span := a.tracer.Start(ctx, "agent.cocreate",
		trace.WithAttributes(attribute.String("starweave.primary", primary)))
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	report := a.coCreate(primary, strings.TrimSpace(input))
	span.SetAttributes(attribute.Int("starweave.suggestions", len(report.Suggestions)))
	if !report.OK() {
		span.SetStatus(codes.Error, report.Warning)
	}
	return report
}

// coCreate runs a round and keeps its suggestions in working memory.
func (a *Agent) coCreate(primary, input string) agent.CoCreationReport {
	report := a.orchestrator.CoCreate(primary, input)
	for _, s := range report.Suggestions {
		a.actions.Integrate(fmt.Sprintf("%s suggests %s", s.Module, s.Concept))
	}
	return report
}

// Reflect produces a reflection on demand without touching the counter.
func (a *Agent) Reflect(ctx context.Context) (*Reflection, error) {
	ctx, span := a.tracer.Start(ctx, "agent.reflect")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reflect(ctx)
}

func (a *Agent) reflect(ctx context.Context) (*Reflection, error) {
	stats, err := a.journal.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reflect: %w", err)
	}

	a.metrics.RecordReflection()
	r := &Reflection{
		Time:       a.now(),
		Memory:     a.actions.Recent(a.cfg.Reflection.History),
		Stats:      *stats,
		Propensity: a.orchestrator.Propensity(),
		Concepts:   a.engine.Concepts(),
	}
	a.logger.Info("reflection", "memory", len(r.Memory), "interactions", stats.Total)
	return r, nil
}

// Prompt returns the current proactive prompt.
func (a *Agent) Prompt() string {
	return a.orchestrator.GenerateProactivePrompt()
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	Name        string   `json:"name"`
	Concepts    []string `json:"concepts"`
	CoCreations int      `json:"co_creations"`
}

// Modules lists the registered modules in routing order.
func (a *Agent) Modules() []ModuleInfo {
	modules := a.orchestrator.Modules()
	out := make([]ModuleInfo, 0, len(modules))
	for _, m := range modules {
		info := ModuleInfo{Name: m.Name(), CoCreations: m.CoCreations()}
		for _, c := range m.Concepts() {
			info.Concepts = append(info.Concepts, c.Name)
		}
		out = append(out, info)
	}
	return out
}

// Concepts returns copies of the top-level concepts.
func (a *Agent) Concepts() []concept.Concept {
	return a.engine.Concepts()
}

// Propensity returns the orchestrator's propensity to co-create.
func (a *Agent) Propensity() float64 {
	return a.orchestrator.Propensity()
}

// Metrics returns the agent metrics.
func (a *Agent) Metrics() *observability.AgentMetrics {
	return a.metrics
}

// History returns up to n journal entries, newest first.
func (a *Agent) History(ctx context.Context, n int) ([]journal.Interaction, error) {
	return a.journal.Recent(ctx, n)
}

// Stats returns journal statistics.
func (a *Agent) Stats(ctx context.Context) (*journal.Stats, error) {
	return a.journal.Stats(ctx)
}

// Close releases the journal if the agent opened it.
func (a *Agent) Close() error {
	if a.ownsJournal {
		return a.journal.Close()
	}
	return nil
}
