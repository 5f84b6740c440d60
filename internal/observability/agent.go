package observability

import "time"

// Metric names for the agent.
const (
	MetricMatchesTotal      = "starweave_matches_total"
	MetricMissesTotal       = "starweave_misses_total"
	MetricMatchLatency      = "starweave_match_latency_seconds"
	MetricRoutesTotal       = "starweave_routes_total"
	MetricRouteLatency      = "starweave_route_latency_seconds"
	MetricCoCreationRounds  = "starweave_cocreation_rounds_total"
	MetricCoCreationIdeas   = "starweave_cocreation_suggestions_total"
	MetricCoCreationMisses  = "starweave_cocreation_empty_total"
	MetricReflectionsTotal  = "starweave_reflections_total"
	MetricPropensity        = "starweave_propensity"
	MetricInvalidInputTotal = "starweave_invalid_input_total"
)

// AgentMetrics provides convenient access to agent metrics.
type AgentMetrics struct {
	registry *Registry

	matches       *Counter
	misses        *Counter
	matchLatency  *Histogram
	routeLatency  *Histogram
	rounds        *Counter
	suggestions   *Counter
	emptyRounds   *Counter
	reflections   *Counter
	propensity    *Gauge
	invalidInputs *Counter
}

// NewAgentMetrics creates agent metrics using the given registry.
func NewAgentMetrics(registry *Registry) *AgentMetrics {
	if registry == nil {
		registry = defaultRegistry
	}

	return &AgentMetrics{
		registry:      registry,
		matches:       registry.Counter(MetricMatchesTotal, nil),
		misses:        registry.Counter(MetricMissesTotal, nil),
		matchLatency:  registry.Histogram(MetricMatchLatency, nil, DefaultBuckets),
		routeLatency:  registry.Histogram(MetricRouteLatency, nil, DefaultBuckets),
		rounds:        registry.Counter(MetricCoCreationRounds, nil),
		suggestions:   registry.Counter(MetricCoCreationIdeas, nil),
		emptyRounds:   registry.Counter(MetricCoCreationMisses, nil),
		reflections:   registry.Counter(MetricReflectionsTotal, nil),
		propensity:    registry.Gauge(MetricPropensity, nil),
		invalidInputs: registry.Counter(MetricInvalidInputTotal, nil),
	}
}

// RecordMatch records a top-level match attempt.
func (m *AgentMetrics) RecordMatch(concept string, matched bool, duration time.Duration) {
	m.matchLatency.Observe(duration.Seconds())
	if !matched {
		m.misses.Inc()
		return
	}
	m.matches.Inc()
	m.registry.Counter(MetricMatchesTotal, Labels{"concept": concept}).Inc()
}

// RecordRoute records a routing decision. An empty module means no module matched.
func (m *AgentMetrics) RecordRoute(module string, duration time.Duration) {
	m.routeLatency.Observe(duration.Seconds())
	if module == "" {
		module = "none"
	}
	m.registry.Counter(MetricRoutesTotal, Labels{"module": module}).Inc()
}

// RecordCoCreation records a co-creation round with its suggestion count.
func (m *AgentMetrics) RecordCoCreation(suggestions int) {
	m.rounds.Inc()
	if suggestions == 0 {
		m.emptyRounds.Inc()
		return
	}
	m.suggestions.Add(int64(suggestions))
}

// RecordReflection records a reflection checkpoint.
func (m *AgentMetrics) RecordReflection() {
	m.reflections.Inc()
}

// RecordInvalidInput records a rejected query.
func (m *AgentMetrics) RecordInvalidInput() {
	m.invalidInputs.Inc()
}

// SetPropensity publishes the current propensity to co-create.
func (m *AgentMetrics) SetPropensity(p float64) {
	m.propensity.Set(p)
}

// MatchRate returns matches / (matches + misses), or 0 with no attempts.
func (m *AgentMetrics) MatchRate() float64 {
	hits := m.matches.Value()
	total := hits + m.misses.Value()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Snapshot returns a snapshot of all metrics in the registry.
func (m *AgentMetrics) Snapshot() MetricsSnapshot {
	return m.registry.Snapshot()
}
