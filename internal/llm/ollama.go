package llm

import (
	"context"
	"errors"

	"github.com/hyperjump/minutes/internal/ollama"
)

// OllamaModel completes prompts with one model on an Ollama server.
type OllamaModel struct {
	client      *ollama.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOllamaModel returns a model handle. temperature and maxTokens map to the
// temperature and num_predict options.
func NewOllamaModel(client *ollama.Client, model string, temperature float64, maxTokens int) *OllamaModel {
	return &OllamaModel{client: client, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Name returns the model name.
func (m *OllamaModel) Name() string {
	return m.model
}

// Complete sends the combined prompt to /api/generate.
func (m *OllamaModel) Complete(ctx context.Context, systemPrompt, question string) (string, error) {
	return m.client.Generate(ctx, m.model, CombinedPrompt(systemPrompt, question), ollama.Options{
		Temperature: m.temperature,
		NumPredict:  m.maxTokens,
	})
}

// OllamaProber checks that the Ollama server answers /api/version.
type OllamaProber struct {
	client *ollama.Client
}

// NewOllamaProber returns a prober for client.
func NewOllamaProber(client *ollama.Client) *OllamaProber {
	return &OllamaProber{client: client}
}

// Probe returns an error if the server is unreachable. Any HTTP reply counts as reachable.
func (p *OllamaProber) Probe(ctx context.Context) error {
	_, err := p.client.Version(ctx)
	var statusErr *ollama.StatusError
	if errors.As(err, &statusErr) {
		return nil
	}
	return err
}
