package concept

import (
	"encoding/json"
	"time"
)

// Default initial state for freshly authored concepts.
const (
	DefaultCuriosity = 0.5
	MinCuriosity     = 0.1
	MaxCuriosity     = 1.0
)

// Concept is a named reference vector with a match threshold and a small
// amount of evolving state.
type Concept struct {
	Name   string
	Vector Vector
	Action ActionKind

	// State is the stochastic pair. Each component stays within [0, 1].
	State [2]float64

	// Curiosity stays within [MinCuriosity, MaxCuriosity] after updates.
	Curiosity float64

	// LastInteraction is the time of the last successful match.
	LastInteraction time.Time

	threshold float64
}

// New authors a concept. The threshold cannot be changed afterwards.
// State starts at [1, 0] with DefaultCuriosity and LastInteraction set to now.
func New(name string, vector Vector, threshold float64, action ActionKind) Concept {
	return Concept{
		Name:            name,
		Vector:          vector.Clone(),
		Action:          action,
		State:           [2]float64{1.0, 0.0},
		Curiosity:       DefaultCuriosity,
		LastInteraction: time.Now(),
		threshold:       threshold,
	}
}

// Threshold returns the minimum cosine similarity a query must strictly
// exceed for this concept to match.
func (c Concept) Threshold() float64 {
	return c.threshold
}

// Dimensions returns the length of the concept vector.
func (c Concept) Dimensions() int {
	return len(c.Vector)
}

// Clone returns a deep copy of c.
func (c Concept) Clone() Concept {
	out := c
	out.Vector = c.Vector.Clone()
	return out
}

// Similarity returns the cosine similarity between the concept and query.
func (c Concept) Similarity(query Vector) (float64, error) {
	return CosineSimilarity(c.Vector, query)
}

type conceptJSON struct {
	Name            string     `json:"name"`
	Vector          Vector     `json:"vector"`
	Action          ActionKind `json:"action"`
	Threshold       float64    `json:"threshold"`
	State           [2]float64 `json:"state"`
	Curiosity       float64    `json:"curiosity"`
	LastInteraction time.Time  `json:"last_interaction"`
}

// MarshalJSON includes the unexported threshold.
func (c Concept) MarshalJSON() ([]byte, error) {
	return json.Marshal(conceptJSON{
		Name:            c.Name,
		Vector:          c.Vector,
		Action:          c.Action,
		Threshold:       c.threshold,
		State:           c.State,
		Curiosity:       c.Curiosity,
		LastInteraction: c.LastInteraction,
	})
}
