package llm

import (
	"fmt"
	"time"

	"github.com/hyperjump/minutes/internal/config"
	"github.com/hyperjump/minutes/internal/ollama"
	"go.uber.org/zap"
)

// Provider names accepted in config.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// New builds the answer chain described by cfg. ProviderNone yields a chain with no
// models, which always answers with the canned reply.
func New(cfg *config.LLMConfig, logger *zap.Logger) (*Chain, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case ProviderOllama, "":
		client := ollama.NewClient(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		})
		models := make([]Model, 0, len(cfg.Models))
		for _, name := range cfg.Models {
			models = append(models, NewOllamaModel(client, name, cfg.Temperature, cfg.MaxTokens))
		}
		return NewChain(models, WithLogger(logger), WithProber(NewOllamaProber(client))), nil
	case ProviderOpenAI:
		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		})
		models := make([]Model, 0, len(cfg.Models))
		for _, name := range cfg.Models {
			models = append(models, NewOpenAIModel(client, name, cfg.Temperature, cfg.MaxTokens))
		}
		return NewChain(models, WithLogger(logger)), nil
	case ProviderNone:
		return NewChain(nil, WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
