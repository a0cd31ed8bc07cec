// Package embedding turns text into fixed-dimension vectors, with a deterministic
// fallback when the configured provider is unavailable.
package embedding

import (
	"context"
	"errors"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ErrEmptyText is returned for blank input. It is a caller error and is never
// replaced by a fallback vector.
var ErrEmptyText = errors.New("embedding: empty text")

// ErrDimensionMismatch is returned when a provider answers with the wrong vector length.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
