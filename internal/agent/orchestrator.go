package agent

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rand/starweave/internal/concept"
	"github.com/rand/starweave/internal/observability"
)

const (
	// DefaultPropensity is the starting propensity to co-create.
	DefaultPropensity = 0.3

	// PropensityStep is added after every round that produced a suggestion.
	PropensityStep = 0.1

	// MaxPropensity caps the ratchet.
	MaxPropensity = 0.9
)

// DefaultPrompts are the proactive prompts, ordered from least to most
// co-creative.
func DefaultPrompts() []string {
	return []string{
		"What would happen if we combined these concepts?",
		"How might we approach this from a different perspective?",
		"What underlying patterns connect these ideas?",
	}
}

// Orchestrator owns a set of modules, routes queries to the best one and
// runs co-creation rounds between them.
type Orchestrator struct {
	mu sync.Mutex

	modules    map[string]*Module
	order      []string
	propensity float64
	prompts    []string

	logger  *slog.Logger
	metrics *observability.AgentMetrics
}

// OrchestratorOption is a functional option for Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPrompts replaces the proactive prompt list.
func WithPrompts(prompts []string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.prompts = append([]string(nil), prompts...)
	}
}

// WithPropensity sets the initial propensity, clamped to [0, MaxPropensity].
func WithPropensity(p float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.propensity = math.Min(MaxPropensity, math.Max(0, p))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.AgentMetrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator with no modules.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		modules:    make(map[string]*Module),
		propensity: DefaultPropensity,
		prompts:    DefaultPrompts(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics != nil {
		o.metrics.SetPropensity(o.propensity)
	}
	return o
}

// RegisterModule adds a module, replacing any module with the same name.
// A replaced module keeps its position in iteration order.
func (o *Orchestrator) RegisterModule(m *Module) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.modules[m.Name()]; !exists {
		o.order = append(o.order, m.Name())
	} else {
		o.logger.Debug("replacing module", "module", m.Name())
	}
	o.modules[m.Name()] = m
}

// Module returns the named module.
func (o *Orchestrator) Module(name string) (*Module, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.modules[name]
	return m, ok
}

// Modules returns the registered modules in iteration order.
func (o *Orchestrator) Modules() []*Module {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*Module, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.modules[name])
	}
	return out
}

// Propensity returns the current propensity to co-create.
func (o *Orchestrator) Propensity() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.propensity
}

// RouteResult is the outcome of routing a query.
type RouteResult struct {
	Module     string          `json:"module"`
	Concept    concept.Concept `json:"concept"`
	Similarity float64         `json:"similarity"`
}

// RouteInput runs the query through every module and returns the module
// whose match is most similar to the query, or nil if no module matched.
// Every module's ProcessInput runs, so routing refreshes module recency.
// Ties go to the module registered first.
func (o *Orchestrator) RouteInput(query concept.Vector) (*RouteResult, error) {
	start := time.Now()

	o.mu.Lock()
	defer o.mu.Unlock()

	var best *RouteResult
	for _, name := range o.order {
		match, err := o.modules[name].ProcessInput(query)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", name, err)
		}
		if match == nil {
			continue
		}

		sim, err := concept.CosineSimilarity(match.Vector, query)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", name, err)
		}
		if best == nil || sim > best.Similarity {
			best = &RouteResult{Module: name, Concept: *match, Similarity: sim}
		}
	}

	if o.metrics != nil {
		routed := ""
		if best != nil {
			routed = best.Module
		}
		o.metrics.RecordRoute(routed, time.Since(start))
	}

	return best, nil
}

// Suggestion is one peer module's contribution to a co-creation round.
type Suggestion struct {
	Module  string `json:"module"`
	Concept string `json:"concept"`
}

// CoCreationReport describes one co-creation round.
type CoCreationReport struct {
	Primary     string       `json:"primary"`
	Input       string       `json:"input"`
	Warning     string       `json:"warning,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Lines       []string     `json:"lines"`
	Propensity  float64      `json:"propensity"`
}

// OK reports whether the primary module existed.
func (r CoCreationReport) OK() bool {
	return r.Warning == ""
}

// String renders the report lines, one per line.
func (r CoCreationReport) String() string {
	var b strings.Builder
	for _, line := range r.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// CoCreate asks every module other than primary for a suggestion. Each
// suggestion counts as one co-creation for both the suggesting module and
// the primary. A round with at least one suggestion raises the propensity
// by PropensityStep, capped at MaxPropensity. An unknown primary yields a
// warning report and changes nothing.
func (o *Orchestrator) CoCreate(primary, input string) CoCreationReport {
	o.mu.Lock()
	defer o.mu.Unlock()

	report := CoCreationReport{Primary: primary, Input: input}

	primaryModule, ok := o.modules[primary]
	if !ok {
		report.Warning = fmt.Sprintf("primary module %q not found", primary)
		report.Lines = []string{"Warning: " + report.Warning}
		report.Propensity = o.propensity
		o.logger.Warn("co-creation skipped", "primary", primary)
		return report
	}

	report.Lines = append(report.Lines, fmt.Sprintf("Primary module '%s' processing: %s", primary, input))

	for _, name := range o.order {
		if name == primary {
			continue
		}
		peer := o.modules[name]
		suggestion := peer.SuggestConcept(primary)
		if suggestion == nil {
			continue
		}

		report.Suggestions = append(report.Suggestions, Suggestion{Module: name, Concept: suggestion.Name})
		report.Lines = append(report.Lines, fmt.Sprintf("Module '%s' suggests: %s", name, suggestion.Name))
		peer.RecordCoCreation()
		primaryModule.RecordCoCreation()
	}

	if len(report.Suggestions) > 0 {
		o.propensity = math.Min(o.propensity+PropensityStep, MaxPropensity)
	} else {
		report.Lines = append(report.Lines, "No co-creation suggestions available")
	}
	report.Propensity = o.propensity

	o.logger.Debug("co-creation round",
		"primary", primary,
		"suggestions", len(report.Suggestions),
		"propensity", o.propensity,
	)
	if o.metrics != nil {
		o.metrics.RecordCoCreation(len(report.Suggestions))
		o.metrics.SetPropensity(o.propensity)
	}

	return report
}

// GenerateProactivePrompt picks the prompt at floor(propensity * len),
// falling back to the first prompt when that index is out of range.
// Prompts shift towards the end of the list as propensity ratchets up.
func (o *Orchestrator) GenerateProactivePrompt() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.prompts) == 0 {
		return ""
	}
	idx := int(math.Floor(o.propensity * float64(len(o.prompts))))
	if idx < 0 || idx >= len(o.prompts) {
		return o.prompts[0]
	}
	return o.prompts[idx]
}
