// Package config provides configuration loading and structs for the minutes server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Watch     WatchConfig     `yaml:"watch"`
	NATS      NATSConfig      `yaml:"nats"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the relational store for meetings and transcript chunks.
type StorageConfig struct {
	Driver         string `yaml:"driver"` // sqlite or postgres
	DatabasePath   string `yaml:"database_path"`
	DatabaseURL    string `yaml:"database_url"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // ollama, openai, onnx or none
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	Dimensions        int     `yaml:"dimensions"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	CacheSize         int     `yaml:"cache_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxConcurrency    int     `yaml:"max_concurrency"`
	ModelPath         string  `yaml:"model_path"`
	MaxTokens         int     `yaml:"max_tokens"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Type         string `yaml:"type"` // memory, pgvector or none
	DSN          string `yaml:"dsn"`
	Table        string `yaml:"table"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// LLMConfig holds answer generation settings. Models are tried in order.
type LLMConfig struct {
	Provider       string   `yaml:"provider"` // ollama, openai or none
	BaseURL        string   `yaml:"base_url"`
	APIKey         string   `yaml:"api_key"`
	Models         []string `yaml:"models"`
	Temperature    float64  `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     int      `yaml:"max_retries"`
}

// RAGConfig holds chunking and retrieval settings.
type RAGConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	MeetingTopK     int `yaml:"meeting_top_k"`
	AllMeetingsTopK int `yaml:"all_meetings_top_k"`
}

// WatchConfig holds transcript inbox settings. Files live at {inbox_dir}/{userId}/{meetingId}.{ext}.
type WatchConfig struct {
	InboxDir       string   `yaml:"inbox_dir"`
	Extensions     []string `yaml:"extensions"`
	DebounceMillis int      `yaml:"debounce_ms"`
}

// NATSConfig holds the event bridge settings. An empty URL disables it.
type NATSConfig struct {
	URL               string `yaml:"url"`
	Stream            string `yaml:"stream"`
	Consumer          string `yaml:"consumer"`
	TranscriptSubject string `yaml:"transcript_subject"`
	ProcessedSubject  string `yaml:"processed_subject"`
}

// WebhookConfig holds transcription webhook settings.
type WebhookConfig struct {
	DedupTTLSeconds int `yaml:"dedup_ttl_seconds"`
	DedupCapacity   int `yaml:"dedup_capacity"`
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Vector.SnapshotPath = expandPath(cfg.Vector.SnapshotPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Watch.InboxDir = expandPath(cfg.Watch.InboxDir, configDir)

	return &cfg, nil
}

// Default returns a config with only defaults and environment overrides, for running without a file.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
