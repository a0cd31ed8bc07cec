package embedding

import (
	"context"
	"math"
)

// FallbackEmbedder produces deterministic pseudo-embeddings from a hash of the text.
// The same text always yields the same vector; the vectors carry no meaning.
type FallbackEmbedder struct {
	dimensions int
}

// NewFallbackEmbedder returns a fallback embedder of the given dimensions.
func NewFallbackEmbedder(dimensions int) *FallbackEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &FallbackEmbedder{dimensions: dimensions}
}

// Vector returns sin(seed+i)*0.5+0.5 for each position, seeded by HashString(text).
func (e *FallbackEmbedder) Vector(text string) []float32 {
	seed := float64(HashString(text))
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(seed+float64(i))*0.5 + 0.5)
	}
	return emb
}

// Embed returns the fallback vector for text. It never fails.
func (e *FallbackEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.Vector(text), nil
}

// EmbedBatch returns one fallback vector per text.
func (e *FallbackEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.Vector(text)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *FallbackEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *FallbackEmbedder) Close() error {
	return nil
}
