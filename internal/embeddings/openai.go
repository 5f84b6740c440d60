package embeddings

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/rand/starweave/internal/concept"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIProvider generates embeddings with the OpenAI embeddings API. The
// dimensions parameter shortens the vectors to the concept space size.
type OpenAIProvider struct {
	client     openai.Client
	model      string
	dimensions int
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string // Required: OpenAI API key (or set OPENAI_API_KEY env var)
	BaseURL    string // Optional API base URL for compatible servers
	Model      string // Default: text-embedding-3-small
	Dimensions int    // Requested vector length; 0 keeps the model default
	MaxRetries int
}

// OpenAIOption is a functional option for OpenAIProvider.
type OpenAIOption func(*OpenAIConfig)

// WithOpenAIKey sets the API key.
func WithOpenAIKey(key string) OpenAIOption {
	return func(c *OpenAIConfig) {
		c.APIKey = key
	}
}

// WithOpenAIBaseURL points the client at an OpenAI-compatible server.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *OpenAIConfig) {
		c.BaseURL = url
	}
}

// WithOpenAIModel sets the embedding model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAIConfig) {
		c.Model = model
	}
}

// WithOpenAIDimensions sets the requested vector length.
func WithOpenAIDimensions(n int) OpenAIOption {
	return func(c *OpenAIConfig) {
		c.Dimensions = n
	}
}

// WithOpenAIMaxRetries sets the client retry budget.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(c *OpenAIConfig) {
		c.MaxRetries = n
	}
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(opts ...OpenAIOption) (*OpenAIProvider, error) {
	cfg := OpenAIConfig{
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:      defaultOpenAIModel,
		MaxRetries: 2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.APIKey == "" {
		return nil, errors.New("openai API key required: set OPENAI_API_KEY or embedding.api_key")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client:     openai.NewClient(reqOpts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates embeddings for the given texts.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([]concept.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(p.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if p.dimensions > 0 {
		params.Dimensions = openai.Int(int64(p.dimensions))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embed request: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([]concept.Vector, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", idx)
		}
		vectors[idx] = concept.Vector(d.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding %d: %w", i, ErrEmptyResponse)
		}
	}

	if err := checkDimensions(vectors, p.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the requested embedding dimension.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Model returns the model identifier.
func (p *OpenAIProvider) Model() string {
	return p.model
}
