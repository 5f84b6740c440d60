package concept

import (
	"fmt"
	"sync"
	"time"
)

// Engine owns a collection of concepts and finds the best thresholded match
// for a query vector.
type Engine struct {
	mu       sync.RWMutex
	concepts []Concept
	now      func() time.Time
}

// EngineOption is a functional option for Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used to stamp interactions.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over deep copies of the given concepts.
// Concepts without a LastInteraction are stamped with the engine's clock.
func NewEngine(concepts []Concept, opts ...EngineOption) *Engine {
	owned := make([]Concept, len(concepts))
	for i, c := range concepts {
		owned[i] = c.Clone()
	}

	e := &Engine{
		concepts: owned,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	created := e.now()
	for i := range e.concepts {
		if e.concepts[i].LastInteraction.IsZero() {
			e.concepts[i].LastInteraction = created
		}
	}
	return e
}

// FindBestMatch returns a copy of the concept with the highest similarity
// among those whose similarity strictly exceeds their own threshold.
// It returns nil when no concept passes. Ties go to the concept that comes
// first in the engine's order.
func (e *Engine) FindBestMatch(query Vector) (*Concept, error) {
	match, _, err := e.FindBestMatchScore(query)
	return match, err
}

// FindBestMatchScore is FindBestMatch that also returns the winning
// similarity. The score is 0 when nothing matches.
func (e *Engine) FindBestMatchScore(query Vector) (*Concept, float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var (
		best    *Concept
		bestSim float64
	)
	for i := range e.concepts {
		c := &e.concepts[i]
		sim, err := c.Similarity(query)
		if err != nil {
			return nil, 0, fmt.Errorf("match %s: %w", c.Name, err)
		}
		// NaN similarities never pass.
		if !(sim > c.threshold) {
			continue
		}
		if best == nil || sim > bestSim {
			best = c
			bestSim = sim
		}
	}

	if best == nil {
		return nil, 0, nil
	}
	match := best.Clone()
	return &match, bestSim, nil
}

// UpdateConceptAfterInteraction refreshes the last interaction time of the
// named concept. It reports whether the concept exists.
func (e *Engine) UpdateConceptAfterInteraction(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.concepts {
		if e.concepts[i].Name == name {
			e.concepts[i].LastInteraction = e.now()
			return true
		}
	}
	return false
}

// Commit copies the evolved state and curiosity of c into the engine's
// concept with the same name. Vector, threshold and recency are untouched.
func (e *Engine) Commit(c Concept) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.concepts {
		if e.concepts[i].Name == c.Name {
			e.concepts[i].State = c.State
			e.concepts[i].Curiosity = c.Curiosity
			return true
		}
	}
	return false
}

// Get returns a copy of the named concept.
func (e *Engine) Get(name string) (Concept, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, c := range e.concepts {
		if c.Name == name {
			return c.Clone(), true
		}
	}
	return Concept{}, false
}

// Concepts returns copies of all concepts in engine order.
func (e *Engine) Concepts() []Concept {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Concept, len(e.concepts))
	for i, c := range e.concepts {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of concepts.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.concepts)
}

// Dimensions returns the dimensionality of the first concept, or 0 for an
// empty engine.
func (e *Engine) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.concepts) == 0 {
		return 0
	}
	return len(e.concepts[0].Vector)
}
