package config

import (
	"errors"
	"fmt"

	"github.com/rand/starweave/internal/concept"
)

// ErrInvalid marks configuration errors.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the configuration. Problems that prevent the agent from
// starting are returned as a joined error wrapping ErrInvalid; anything else
// is reported as a warning.
func (c *Config) Validate() (warnings []string, err error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if c.DataDir == "" {
		fail("data_dir is not set")
	}

	// Concepts
	if len(c.Concepts) == 0 {
		fail("no concepts configured")
	}
	dims := 0
	names := make(map[string]bool, len(c.Concepts))
	for i, s := range c.Concepts {
		if s.Name == "" {
			fail("concept %d has no name", i)
			continue
		}
		if names[s.Name] {
			fail("duplicate concept %q", s.Name)
		}
		names[s.Name] = true

		if len(s.Vector) == 0 {
			fail("concept %q has an empty vector", s.Name)
			continue
		}
		if dims == 0 {
			dims = len(s.Vector)
		} else if len(s.Vector) != dims {
			fail("concept %q has %d dimensions, want %d", s.Name, len(s.Vector), dims)
		}
		if s.Vector.Norm() == 0 {
			warn("Concept '%s' has a zero vector and will never match", s.Name)
		}
		if s.Threshold < -1 || s.Threshold > 1 {
			fail("concept %q threshold %.2f outside [-1, 1]", s.Name, s.Threshold)
		}
		if s.Curiosity != 0 && (s.Curiosity < concept.MinCuriosity || s.Curiosity > concept.MaxCuriosity) {
			fail("concept %q curiosity %.2f outside [%.1f, %.1f]", s.Name, s.Curiosity, concept.MinCuriosity, concept.MaxCuriosity)
		}
	}

	// Embedding
	switch c.Embedding.Provider {
	case ProviderLength:
		if dims != 0 && dims != 3 {
			fail("provider %q embeds 3 dimensions, concepts have %d", ProviderLength, dims)
		}
	case ProviderHTTP:
		if c.Embedding.BaseURL == "" {
			fail("provider %q requires embedding.base_url", ProviderHTTP)
		}
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			fail("provider %q requires embedding.api_key or %s", ProviderOpenAI, EnvOpenAIKey)
		}
	default:
		fail("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions > 0 && dims > 0 && c.Embedding.Dimensions != dims {
		fail("embedding.dimensions %d does not match concept dimensions %d", c.Embedding.Dimensions, dims)
	}
	if c.Embedding.CacheSize < 0 {
		fail("embedding.cache_size must not be negative")
	}
	if c.Embedding.BatchSize < 0 || c.Embedding.Concurrency < 0 {
		fail("embedding.batch_size and embedding.concurrency must not be negative")
	}

	// Modules
	if len(c.Modules) == 0 {
		warn("No modules configured; routing and co-creation are disabled")
	}
	modules := make(map[string]bool, len(c.Modules))
	for i, m := range c.Modules {
		if m.Name == "" {
			fail("module %d has no name", i)
			continue
		}
		if modules[m.Name] {
			warn("Module '%s' is defined more than once; the last definition wins", m.Name)
		}
		modules[m.Name] = true
		if len(m.Concepts) == 0 {
			warn("Module '%s' has no concepts and will never match or suggest", m.Name)
		}
		for _, name := range m.Concepts {
			if !names[name] {
				fail("module %q references unknown concept %q", m.Name, name)
			}
		}
	}

	// Orchestrator
	if c.Orchestrator.Propensity < 0 || c.Orchestrator.Propensity > 0.9 {
		fail("orchestrator.propensity %.2f outside [0, 0.9]", c.Orchestrator.Propensity)
	}
	if len(c.Orchestrator.Prompts) == 0 {
		fail("orchestrator.prompts is empty")
	}

	// Reflection
	if c.Reflection.Interval < 1 {
		fail("reflection.interval must be at least 1")
	}
	if c.Reflection.History < 0 {
		fail("reflection.history must not be negative")
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		fail("log rotation settings must not be negative")
	}

	if !c.Journal.Enabled {
		warn("Journal is disabled; history and stats are kept for this session only")
	}

	return warnings, errors.Join(errs...)
}
