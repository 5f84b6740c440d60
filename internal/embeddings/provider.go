// Package embeddings turns text into concept-space vectors.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rand/starweave/internal/concept"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates embeddings for one or more texts.
	// Returns vectors of the same length as input texts.
	Embed(ctx context.Context, texts []string) ([]concept.Vector, error)

	// Dimensions returns the embedding dimension for this model.
	Dimensions() int

	// Model returns the model identifier.
	Model() string
}

// ErrEmptyResponse is returned when a provider yields no vector for a text.
var ErrEmptyResponse = errors.New("empty embedding response")

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, p Provider, text string) (concept.Vector, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || vectors[0] == nil {
		return nil, ErrEmptyResponse
	}
	return vectors[0], nil
}

// checkDimensions rejects vectors whose length differs from want.
func checkDimensions(vectors []concept.Vector, want int) error {
	if want <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", concept.ErrInvalidInput, i, len(v), want)
		}
	}
	return nil
}
