package embeddings

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/rand/starweave/internal/concept"
)

const defaultCacheSize = 1000

// CachedProvider wraps a Provider with an LRU cache keyed by the xxh3 hash
// of each text.
type CachedProvider struct {
	provider Provider
	cache    *lru.Cache[uint64, concept.Vector]
	hits     atomic.Int64
	misses   atomic.Int64
}

// CachedProviderOption is a functional option for CachedProvider.
type CachedProviderOption func(*cachedConfig)

type cachedConfig struct {
	maxSize int
}

// WithCacheSize sets the maximum number of cached embeddings.
func WithCacheSize(size int) CachedProviderOption {
	return func(c *cachedConfig) {
		c.maxSize = size
	}
}

// NewCachedProvider wraps a provider with caching.
func NewCachedProvider(provider Provider, opts ...CachedProviderOption) (*CachedProvider, error) {
	cfg := cachedConfig{
		maxSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSize <= 0 {
		cfg.maxSize = defaultCacheSize
	}

	cache, err := lru.New[uint64, concept.Vector](cfg.maxSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}, nil
}

// Embed generates embeddings, using cached values when available.
// Cached vectors are returned as copies.
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([]concept.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([]concept.Vector, len(texts))
	var toEmbed []string
	var toEmbedIdx []int

	for i, text := range texts {
		if vec, ok := p.cache.Get(xxh3.HashString(text)); ok {
			results[i] = vec.Clone()
			p.hits.Add(1)
			continue
		}
		p.misses.Add(1)
		toEmbed = append(toEmbed, text)
		toEmbedIdx = append(toEmbedIdx, i)
	}

	if len(toEmbed) > 0 {
		vectors, err := p.provider.Embed(ctx, toEmbed)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(toEmbed) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(toEmbed), len(vectors))
		}

		for i, vec := range vectors {
			results[toEmbedIdx[i]] = vec
			p.cache.Add(xxh3.HashString(toEmbed[i]), vec.Clone())
		}
	}

	return results, nil
}

// Dimensions returns the embedding dimension.
func (p *CachedProvider) Dimensions() int {
	return p.provider.Dimensions()
}

// Model returns the model identifier.
func (p *CachedProvider) Model() string {
	return p.provider.Model()
}

// CacheStats returns cache hit and miss counts.
func (p *CachedProvider) CacheStats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Len returns the number of cached embeddings.
func (p *CachedProvider) Len() int {
	return p.cache.Len()
}
