package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rand/starweave/internal/concept"
)

const (
	defaultHTTPURL     = "http://127.0.0.1:11435"
	defaultHTTPModel   = "local"
	defaultHTTPTimeout = 30 * time.Second
	defaultRateLimit   = 10.0 // requests per second
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// HTTPProvider generates embeddings with a self-hosted embedding server that
// accepts POST /embed {"input": [...]} and answers {"data": [{"embedding", "index"}]}.
type HTTPProvider struct {
	baseURL     string
	model       string
	dimensions  int
	batchSize   int
	concurrency int
	httpClient  *http.Client
	rateLimit   *rate.Limiter
}

// HTTPConfig configures the HTTP provider.
type HTTPConfig struct {
	BaseURL    string        // Server URL (default: http://127.0.0.1:11435)
	Model      string        // Model name reported by Model()
	Dimensions int           // Expected vector length; 0 disables the check
	Timeout    time.Duration // HTTP timeout (default: 30s)
	RateLimit  float64       // Requests per second (default: 10)

	BatchSize   int // Texts per request (default: 64)
	Concurrency int // Concurrent requests for large inputs (default: 4)
}

// HTTPOption is a functional option for HTTPProvider.
type HTTPOption func(*HTTPConfig)

// WithBaseURL sets the server URL.
func WithBaseURL(url string) HTTPOption {
	return func(c *HTTPConfig) {
		c.BaseURL = url
	}
}

// WithModel sets the model name.
func WithModel(model string) HTTPOption {
	return func(c *HTTPConfig) {
		c.Model = model
	}
}

// WithDimensions sets the expected vector length.
func WithDimensions(n int) HTTPOption {
	return func(c *HTTPConfig) {
		c.Dimensions = n
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPConfig) {
		c.Timeout = d
	}
}

// WithRateLimit sets the rate limit in requests per second.
func WithRateLimit(rps float64) HTTPOption {
	return func(c *HTTPConfig) {
		c.RateLimit = rps
	}
}

// WithBatchSize sets the number of texts sent per request.
func WithBatchSize(n int) HTTPOption {
	return func(c *HTTPConfig) {
		c.BatchSize = n
	}
}

// WithConcurrency sets how many batch requests may be in flight at once.
func WithConcurrency(n int) HTTPOption {
	return func(c *HTTPConfig) {
		c.Concurrency = n
	}
}

// NewHTTPProvider creates a new HTTP embedding provider.
func NewHTTPProvider(opts ...HTTPOption) (*HTTPProvider, error) {
	cfg := HTTPConfig{
		BaseURL:     defaultHTTPURL,
		Model:       defaultHTTPModel,
		Timeout:     defaultHTTPTimeout,
		RateLimit:   defaultRateLimit,
		BatchSize:   defaultBatchSize,
		Concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("embedding server URL required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &HTTPProvider{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}, nil
}

// Embed generates embeddings for the given texts. Inputs larger than the
// batch size are split into batches sent concurrently.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([]concept.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= p.batchSize {
		return p.embedBatch(ctx, texts)
	}

	vectors := make([]concept.Vector, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		g.Go(func() error {
			batch, err := p.embedBatch(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (p *HTTPProvider) embedBatch(ctx context.Context, texts []string) ([]concept.Vector, error) {
	if err := p.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(httpRequest{Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding server error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	vectors := make([]concept.Vector, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
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

// Dimensions returns the embedding dimension.
func (p *HTTPProvider) Dimensions() int {
	return p.dimensions
}

// Model returns the model identifier.
func (p *HTTPProvider) Model() string {
	return p.model
}

type httpRequest struct {
	Input []string `json:"input"`
}

type httpResponse struct {
	Data []struct {
		Embedding concept.Vector `json:"embedding"`
		Index     int            `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}
