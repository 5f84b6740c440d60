package embeddings

import (
	"context"
	"math"

	"github.com/rand/starweave/internal/concept"
)

// LengthModel is the model identifier of LengthProvider.
const LengthModel = "length-v1"

// LengthProvider is an offline embedder that derives a normalized 3-dimensional
// vector from the byte length of the text. Equal-length texts embed equally.
type LengthProvider struct{}

// NewLengthProvider creates the offline embedder.
func NewLengthProvider() *LengthProvider {
	return &LengthProvider{}
}

// Embed generates embeddings for the given texts.
func (p *LengthProvider) Embed(ctx context.Context, texts []string) ([]concept.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([]concept.Vector, len(texts))
	for i, text := range texts {
		vectors[i] = lengthVector(len(text))
	}
	return vectors, nil
}

func lengthVector(n int) concept.Vector {
	seed := float64(n) / 100
	v := concept.Vector{
		math.Min(0.5+seed*0.1, 1),
		math.Max(-0.2+seed*0.05, -1),
		math.Min(0.4-seed*0.02, 1),
	}
	return v.Normalize()
}

// Dimensions returns the embedding dimension.
func (p *LengthProvider) Dimensions() int {
	return 3
}

// Model returns the model identifier.
func (p *LengthProvider) Model() string {
	return LengthModel
}
