package config

import (
	"os"
	"strings"
)

// ApplyEnv overrides endpoints and secrets from the environment. Values set in the
// environment win over the config file.
func ApplyEnv(cfg *Config) {
	cfg.Storage.DatabaseURL = envStr("MINUTES_DATABASE_URL", cfg.Storage.DatabaseURL)
	if cfg.Storage.DatabaseURL != "" && cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "postgres"
	}
	cfg.Vector.DSN = envStr("MINUTES_VECTOR_DSN", cfg.Vector.DSN)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = key
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = key
		}
	}
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
		if cfg.Embedding.Provider == "" || cfg.Embedding.Provider == "ollama" {
			cfg.Embedding.BaseURL = base
		}
		if cfg.LLM.Provider == "" || cfg.LLM.Provider == "ollama" {
			cfg.LLM.BaseURL = base
		}
	}
	cfg.Embedding.Model = envStr("OLLAMA_EMBEDDING_MODEL", cfg.Embedding.Model)
	if models := envList("OLLAMA_CHAT_MODEL"); len(models) > 0 {
		cfg.LLM.Models = models
	}
	cfg.NATS.URL = envStr("NATS_URL", cfg.NATS.URL)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blanks.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
