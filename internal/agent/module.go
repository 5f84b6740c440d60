// Package agent provides module agents and the orchestrator that routes
// queries between them and runs co-creation rounds.
package agent

import (
	"sync"

	"github.com/rand/starweave/internal/concept"
)

// Module wraps a named subset of concepts with its own similarity engine.
// Its concepts are private copies: evolution inside one module never
// reaches peers or the top-level engine.
type Module struct {
	mu          sync.Mutex
	name        string
	engine      *concept.Engine
	coCreations int
}

// NewModule creates a module over deep copies of the given concepts.
func NewModule(name string, concepts []concept.Concept, opts ...concept.EngineOption) *Module {
	return &Module{
		name:   name,
		engine: concept.NewEngine(concepts, opts...),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// ProcessInput matches the query against the module's own concepts.
// A match refreshes the recency of the matched local concept.
func (m *Module) ProcessInput(query concept.Vector) (*concept.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	match, err := m.engine.FindBestMatch(query)
	if err != nil {
		return nil, err
	}
	if match != nil {
		m.engine.UpdateConceptAfterInteraction(match.Name)
	}
	return match, nil
}

// SuggestConcept returns a copy of the local concept with the highest
// curiosity, or nil when the module is empty. The peer name is accepted for
// future peer-aware suggestions and is currently unused.
func (m *Module) SuggestConcept(_ string) *concept.Concept {
	m.mu.Lock()
	defer m.mu.Unlock()

	concepts := m.engine.Concepts()
	var best *concept.Concept
	for i := range concepts {
		if best == nil || concepts[i].Curiosity > best.Curiosity {
			best = &concepts[i]
		}
	}
	return best
}

// RecordCoCreation counts one successful co-creation.
func (m *Module) RecordCoCreation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coCreations++
}

// CoCreations returns the number of co-creations the module took part in.
func (m *Module) CoCreations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coCreations
}

// Concepts returns copies of the module's concepts.
func (m *Module) Concepts() []concept.Concept {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Concepts()
}
