// Package config loads and validates starweave configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rand/starweave/internal/concept"
)

// Embedding provider names.
const (
	ProviderLength = "length"
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// Config is the effective configuration after merging all sources.
type Config struct {
	// DataDir holds the user config file, the journal and logs.
	DataDir string `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug,omitempty" json:"debug,omitempty"`

	Log          Log            `yaml:"log,omitempty" json:"log,omitempty"`
	Embedding    Embedding      `yaml:"embedding,omitempty" json:"embedding,omitempty"`
	Concepts     []concept.Seed `yaml:"concepts,omitempty" json:"concepts,omitempty"`
	Modules      []Module       `yaml:"modules,omitempty" json:"modules,omitempty"`
	Orchestrator Orchestrator   `yaml:"orchestrator,omitempty" json:"orchestrator,omitempty"`
	Reflection   Reflection     `yaml:"reflection,omitempty" json:"reflection,omitempty"`
	Journal      Journal        `yaml:"journal,omitempty" json:"journal,omitempty"`
	Tracing      Tracing        `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// Log configures log output.
type Log struct {
	// File is the log file path. Empty logs to stderr. Relative paths are
	// resolved against the data directory.
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" json:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty"`
}

// Embedding configures the embedding provider.
type Embedding struct {
	// Provider is one of "length", "http" or "openai".
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`

	Model   string `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Dimensions must equal the concept vector length.
	Dimensions int `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`

	// CacheSize is the number of cached embeddings. Zero disables the cache.
	CacheSize int `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`

	APIKey    string        `yaml:"api_key,omitempty" json:"-"`
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RateLimit float64       `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`

	// BatchSize and Concurrency bound HTTP provider requests.
	BatchSize   int `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
}

// Module assigns concepts, by name, to a module agent.
type Module struct {
	Name     string   `yaml:"name" json:"name"`
	Concepts []string `yaml:"concepts" json:"concepts"`
}

// Orchestrator configures co-creation.
type Orchestrator struct {
	Propensity float64  `yaml:"propensity" json:"propensity"`
	Prompts    []string `yaml:"prompts,omitempty" json:"prompts,omitempty"`

	// AutoCoCreate runs a co-creation round with the routed module after
	// every matched interaction.
	AutoCoCreate bool `yaml:"auto_co_create,omitempty" json:"auto_co_create,omitempty"`
}

// Reflection configures the reflection checkpoint.
type Reflection struct {
	// Interval is the number of state updates between reflections.
	Interval int `yaml:"interval" json:"interval"`

	// History is the number of working memory entries a reflection shows.
	History int `yaml:"history" json:"history"`
}

// Journal configures the interaction journal.
type Journal struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the SQLite file. Empty uses <data_dir>/journal.db.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Tracing configures span export.
type Tracing struct {
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// File receives spans as JSON lines. Relative paths resolve against DataDir.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Log: Log{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Embedding: Embedding{
			Provider:   ProviderLength,
			Dimensions: 3,
			CacheSize:  1000,
			Timeout:    30 * time.Second,
			RateLimit:  10,
		},
		Concepts: concept.DefaultSeeds(),
		Modules: []Module{
			{Name: "explorer", Concepts: []string{"Curiosity"}},
			{Name: "artist", Concepts: []string{"Aesthetics"}},
			{Name: "analyst", Concepts: []string{"Verification"}},
		},
		Orchestrator: Orchestrator{
			Propensity: 0.3,
			Prompts: []string{
				"What would happen if we combined these concepts?",
				"How might we approach this from a different perspective?",
				"What underlying patterns connect these ideas?",
			},
		},
		Reflection: Reflection{
			Interval: 5,
			History:  5,
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}

// DefaultDataDir returns ~/.starweave, or .starweave when the home directory
// is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".starweave"
	}
	return filepath.Join(home, ".starweave")
}

// JournalPath returns the resolved journal database path.
func (c *Config) JournalPath() string {
	return c.resolve(c.Journal.Path, "journal.db")
}

// TracePath returns the resolved span output path.
func (c *Config) TracePath() string {
	return c.resolve(c.Tracing.File, "traces.jsonl")
}

// LogPath returns the resolved log file path, or "" for stderr.
func (c *Config) LogPath() string {
	if c.Log.File == "" {
		return ""
	}
	return c.resolve(c.Log.File, "")
}

func (c *Config) resolve(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// Seed returns the named concept seed.
func (c *Config) Seed(name string) (concept.Seed, bool) {
	for _, s := range c.Concepts {
		if s.Name == name {
			return s, true
		}
	}
	return concept.Seed{}, false
}

// ModuleSeeds returns the seeds assigned to m, skipping unknown names.
func (c *Config) ModuleSeeds(m Module) []concept.Seed {
	seeds := make([]concept.Seed, 0, len(m.Concepts))
	for _, name := range m.Concepts {
		if s, ok := c.Seed(name); ok {
			seeds = append(seeds, s)
		}
	}
	return seeds
}
