package embeddings

import (
	"fmt"

	"github.com/rand/starweave/internal/config"
)

// New builds the provider described by cfg, wrapped in a cache when
// cfg.CacheSize is positive.
func New(cfg config.Embedding) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch cfg.Provider {
	case config.ProviderLength, "":
		p = NewLengthProvider()
	case config.ProviderHTTP:
		opts := []HTTPOption{
			WithBaseURL(cfg.BaseURL),
			WithDimensions(cfg.Dimensions),
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.RateLimit > 0 {
			opts = append(opts, WithRateLimit(cfg.RateLimit))
		}
		if cfg.BatchSize > 0 {
			opts = append(opts, WithBatchSize(cfg.BatchSize))
		}
		if cfg.Concurrency > 0 {
			opts = append(opts, WithConcurrency(cfg.Concurrency))
		}
		p, err = NewHTTPProvider(opts...)
	case config.ProviderOpenAI:
		opts := []OpenAIOption{
			WithOpenAIDimensions(cfg.Dimensions),
		}
		if cfg.APIKey != "" {
			opts = append(opts, WithOpenAIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.Model))
		}
		p, err = NewOpenAIProvider(opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	if cfg.CacheSize > 0 {
		return NewCachedProvider(p, WithCacheSize(cfg.CacheSize))
	}
	return p, nil
}
