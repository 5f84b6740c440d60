package concept

import "time"

// Seed describes a concept before it is authored into an engine.
type Seed struct {
	Name      string     `yaml:"name" json:"name"`
	Vector    Vector     `yaml:"vector" json:"vector"`
	Threshold float64    `yaml:"threshold" json:"threshold"`
	Curiosity float64    `yaml:"curiosity,omitempty" json:"curiosity,omitempty"`
	Action    ActionKind `yaml:"action,omitempty" json:"action,omitempty"`
}

// DefaultSeeds is the built-in concept set every run starts from.
func DefaultSeeds() []Seed {
	return []Seed{
		{Name: "Curiosity", Vector: Vector{0.9, -0.2, 0.5}, Threshold: 0.7, Action: ActionCuriosity},
		{Name: "Aesthetics", Vector: Vector{0.2, 0.8, -0.1}, Threshold: 0.65, Action: ActionAesthetics},
		{Name: "Verification", Vector: Vector{-0.3, 0.1, 0.9}, Threshold: 0.75, Action: ActionVerification},
	}
}

// Author builds a concept from the seed. LastInteraction is left zero so the
// engine that receives the concept stamps it with its own clock.
func (s Seed) Author() Concept {
	c := New(s.Name, s.Vector, s.Threshold, s.Action)
	c.LastInteraction = time.Time{}
	if s.Curiosity > 0 {
		c.Curiosity = s.Curiosity
	}
	return c
}

// AuthorAll builds concepts from seeds, preserving order.
func AuthorAll(seeds []Seed) []Concept {
	concepts := make([]Concept, 0, len(seeds))
	for _, s := range seeds {
		concepts = append(concepts, s.Author())
	}
	return concepts
}
