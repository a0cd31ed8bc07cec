package embedding

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
	ProviderONNX   = "onnx"
	ProviderNone   = "none"
)

// NewPrimary builds the embedder named by cfg.Provider. ProviderNone returns nil, nil.
func NewPrimary(cfg *config.EmbeddingConfig) (Embedder, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case ProviderOllama, "":
		client := ollama.NewClient(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		})
		return NewOllamaEmbedder(client, cfg.Model, cfg.Dimensions), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}), nil
	case ProviderONNX:
		return NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// New builds the Provider for cfg. A primary that cannot be constructed (for example
// ONNX without CGO) is logged and replaced by fallback-only mode.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	primary, err := NewPrimary(cfg)
	if err != nil {
		if cfg.Provider != ProviderONNX {
			return nil, err
		}
		logger.Warn("embedding provider unavailable, using fallback embeddings only",
			zap.String("provider", cfg.Provider), zap.Error(err))
		primary = nil
	}
	return NewProvider(primary, cfg.Dimensions,
		WithLogger(logger),
		WithCache(cfg.CacheSize),
		WithRateLimit(cfg.RequestsPerSecond, cfg.MaxConcurrency),
		WithMaxConcurrency(cfg.MaxConcurrency),
	), nil
}
