package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file configuration.
const (
	EnvDataDir           = "STARWEAVE_DATA_DIR"
	EnvEmbeddingProvider = "STARWEAVE_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "STARWEAVE_EMBEDDING_MODEL"
	EnvEmbeddingURL      = "STARWEAVE_EMBEDDING_URL"
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvDebug             = "DEBUG"
)

// Source is a configuration file location.
type Source struct {
	Name string
	Path string
}

// Sources returns the config file locations in order of precedence,
// highest first.
func Sources(cwd, dataDir string) []Source {
	return []Source{
		{Name: "Project config", Path: filepath.Join(cwd, ".starweave.yaml")},
		{Name: "Project config (alt)", Path: filepath.Join(cwd, ".starweave.yml")},
		{Name: "User config", Path: filepath.Join(dataDir, "config.yaml")},
	}
}

// Load builds the effective configuration. Files from Sources are merged over
// the defaults, lowest precedence first, then environment overrides apply.
// A .env file in cwd is loaded into the environment without replacing
// variables that are already set. A non-empty dataDir wins over every other
// data directory setting.
func Load(cwd, dataDir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if env := os.Getenv(EnvDataDir); env != "" {
		cfg.DataDir = env
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	sources := Sources(cwd, cfg.DataDir)
	for i := len(sources) - 1; i >= 0; i-- {
		if err := mergeFile(&cfg, sources[i].Path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	return &cfg, nil
}

// mergeFile decodes path over cfg. Keys absent from the file keep their
// current values; lists are replaced wholesale.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv(EnvEmbeddingURL); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
