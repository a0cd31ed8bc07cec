package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/minutes/internal/ollama"
)

// OllamaEmbedder embeds text through an Ollama server's /api/embeddings endpoint.
type OllamaEmbedder struct {
	client     *ollama.Client
	model      string
	dimensions int
}

// NewOllamaEmbedder returns an embedder for model on client.
func NewOllamaEmbedder(client *ollama.Client, model string, dimensions int) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model, dimensions: dimensions}
}

// Embed returns the model's embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := e.client.Embeddings(ctx, e.model, text)
	if err != nil {
		return nil, err
	}
	return toFloat32(emb), nil
}

// EmbedBatch calls Embed for each text; Ollama has no batch form of this endpoint.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}
