// Package state evolves the mutable state of matched concepts.
package state

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/rand/starweave/internal/concept"
)

const (
	// DefaultReflectionInterval is the number of interactions between reflections.
	DefaultReflectionInterval = 5

	// DriftScale scales the uniform noise applied to each state component.
	DriftScale = 0.01

	// BoostFactor scales post-decay curiosity into the push-pull boost.
	BoostFactor = 0.1
)

// Updater applies time decay and stochastic drift to concept state, and
// counts interactions towards the next reflection.
type Updater struct {
	rng                *rand.Rand
	now                func() time.Time
	reflectionInterval int
	interactionCount   int
}

// Option is a functional option for Updater.
type Option func(*Updater)

// WithReflectionInterval sets how many interactions pass between reflections.
// Values <= 0 fall back to DefaultReflectionInterval.
func WithReflectionInterval(n int) Option {
	return func(u *Updater) {
		if n > 0 {
			u.reflectionInterval = n
		}
	}
}

// WithRand sets the random source used for drift.
func WithRand(rng *rand.Rand) Option {
	return func(u *Updater) {
		u.rng = rng
	}
}

// WithClock sets the clock used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

// NewUpdater creates a new updater.
func NewUpdater(opts ...Option) *Updater {
	u := &Updater{
		rng:                rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:                time.Now,
		reflectionInterval: DefaultReflectionInterval,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ReflectionInterval returns the configured reflection interval.
func (u *Updater) ReflectionInterval() int {
	return u.reflectionInterval
}

// UpdateState decays curiosity by the hours elapsed since the concept's last
// interaction, then drifts the stochastic pair in opposite directions by the
// curiosity boost plus a little uniform noise. All values are clamped
// afterwards. LastInteraction is left for the owning engine to refresh.
func (u *Updater) UpdateState(c *concept.Concept) {
	elapsed := u.now().Sub(c.LastInteraction)
	c.Curiosity *= DecayFactor(elapsed)

	boost := BoostFactor * c.Curiosity

	r0 := u.rng.Float64()
	r1 := u.rng.Float64()
	c.State[0] += DriftScale*(r0-0.5) + boost
	c.State[1] -= DriftScale*(r1-0.5) + boost

	c.State[0] = clamp(c.State[0], 0, 1)
	c.State[1] = clamp(c.State[1], 0, 1)
	c.Curiosity = clamp(c.Curiosity, concept.MinCuriosity, concept.MaxCuriosity)
}

// ShouldTriggerReflection counts one interaction and reports whether it
// completes a reflection interval. The counter resets when it fires.
func (u *Updater) ShouldTriggerReflection() bool {
	u.interactionCount++
	if u.interactionCount >= u.reflectionInterval {
		u.interactionCount = 0
		return true
	}
	return false
}

// DecayFactor returns exp(-hours). Non-positive durations do not decay.
func DecayFactor(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 1.0
	}
	return math.Exp(-elapsed.Hours())
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
