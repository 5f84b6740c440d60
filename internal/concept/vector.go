// Package concept provides concept vectors and the similarity engine that
// matches query embeddings against them.
package concept

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput indicates a query vector whose dimensionality does not
// match the stored concept vectors.
var ErrInvalidInput = errors.New("invalid input")

// Vector is a dense, low-dimensional concept or query vector.
type Vector []float64

// Dot returns the dot product of v and other. Both must have equal length.
func (v Vector) Dot(other Vector) float64 {
	var sum float64
	for i := range v {
		sum += v[i] * other[i]
	}
	return sum
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns a unit vector in the same direction.
// Zero vectors are returned unchanged.
func (v Vector) Normalize() Vector {
	norm := v.Norm()
	if norm == 0 {
		return v
	}
	result := make(Vector, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}

// Clone returns a copy of v that shares no memory with it.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|).
// It returns exactly 0 when either vector has zero norm, and an error
// wrapping ErrInvalidInput when the dimensions differ.
func CosineSimilarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d != %d", ErrInvalidInput, len(a), len(b))
	}

	normA := a.Norm()
	normB := b.Norm()
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return a.Dot(b) / (normA * normB), nil
}
