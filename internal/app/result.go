package app

import (
	"time"

	"github.com/rand/starweave/internal/agent"
	"github.com/rand/starweave/internal/concept"
	"github.com/rand/starweave/internal/journal"
)

// Result is the outcome of one processed interaction.
type Result struct {
	ID    string    `json:"id,omitempty"`
	Time  time.Time `json:"time"`
	Input string    `json:"input"`

	// Concept is empty when nothing matched.
	Concept     string             `json:"concept,omitempty"`
	Action      concept.ActionKind `json:"action"`
	Similarity  float64            `json:"similarity,omitempty"`
	StateBefore [2]float64         `json:"state_before"`
	StateAfter  [2]float64         `json:"state_after"`
	Curiosity   float64            `json:"curiosity,omitempty"`

	Response string `json:"response"`

	// Module is the module the input was routed to, if any.
	Module string `json:"module,omitempty"`

	CoCreation *agent.CoCreationReport `json:"co_creation,omitempty"`
	Reflection *Reflection             `json:"reflection,omitempty"`
	Prompt     string                  `json:"prompt,omitempty"`
}

// Matched reports whether a concept matched the input.
func (r *Result) Matched() bool {
	return r.Concept != ""
}

func (r *Result) interaction() *journal.Interaction {
	return &journal.Interaction{
		Time:        r.Time,
		Input:       r.Input,
		Concept:     r.Concept,
		Similarity:  r.Similarity,
		Module:      r.Module,
		StateBefore: r.StateBefore,
		StateAfter:  r.StateAfter,
		Curiosity:   r.Curiosity,
		Response:    r.Response,
		Reflection:  r.Reflection != nil,
	}
}

// Reflection is a checkpoint over recent activity.
type Reflection struct {
	Time       time.Time         `json:"time"`
	Memory     []string          `json:"memory"`
	Stats      journal.Stats     `json:"stats"`
	Propensity float64           `json:"propensity"`
	Concepts   []concept.Concept `json:"concepts"`
}
