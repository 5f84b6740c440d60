// Package action turns matched concepts into responses and keeps a bounded
// working memory of recent inputs.
package action

import (
	"fmt"
	"sync"

	"github.com/rand/starweave/internal/concept"
)

// DefaultCapacity is the working memory size.
const DefaultCapacity = 100

// DefaultResponse is returned for concepts without a specific action.
const DefaultResponse = "Standard response generated."

// System dispatches actions and holds the working memory ring.
type System struct {
	mu       sync.Mutex
	memory   []string
	start    int
	size     int
	capacity int
}

// Option is a functional option for System.
type Option func(*System)

// WithCapacity sets the working memory capacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(s *System) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewSystem creates an action system with an empty memory.
func NewSystem(opts ...Option) *System {
	s := &System{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.memory = make([]string, s.capacity)
	return s
}

// Trigger records the input and returns the response for the concept's
// action kind.
func (s *System) Trigger(c concept.Concept, input string) string {
	s.Integrate(input)
	return Respond(c.Action, input)
}

// Respond renders the response for an action kind without touching memory.
func Respond(kind concept.ActionKind, input string) string {
	switch kind {
	case concept.ActionCuriosity:
		return fmt.Sprintf("🔍 Curiosity matched. Researching deeper aspects of: %s", input)
	case concept.ActionAesthetics:
		return fmt.Sprintf("🎨 Aesthetics matched. Considering artistic interpretations for: %s", input)
	case concept.ActionVerification:
		return fmt.Sprintf("🔬 Verification matched. Cross-referencing facts about: %s", input)
	default:
		return DefaultResponse
	}
}

// Default is the response when no concept matched.
func Default(input string) string {
	return fmt.Sprintf("I have processed your input about '%s'", input)
}

// Integrate appends an entry, evicting the oldest once the memory is full.
func (s *System) Integrate(info string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size < s.capacity {
		s.memory[(s.start+s.size)%s.capacity] = info
		s.size++
		return
	}
	s.memory[s.start] = info
	s.start = (s.start + 1) % s.capacity
}

// Recent returns up to n of the newest entries, oldest first. A
// non-positive n returns the whole memory.
func (s *System) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > s.size {
		n = s.size
	}
	out := make([]string, 0, n)
	for i := s.size - n; i < s.size; i++ {
		out = append(out, s.memory[(s.start+i)%s.capacity])
	}
	return out
}

// Len returns the number of remembered entries.
func (s *System) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Capacity returns the memory capacity.
func (s *System) Capacity() int {
	return s.capacity
}
