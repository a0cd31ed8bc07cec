package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MINUTES_DATABASE_URL", "MINUTES_VECTOR_DSN", "OPENAI_API_KEY",
		"OLLAMA_BASE_URL", "OLLAMA_EMBEDDING_MODEL", "OLLAMA_CHAT_MODEL", "NATS_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
llm:
  models: ["mistral"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if !reflect.DeepEqual(cfg.LLM.Models, []string{"mistral"}) {
		t.Errorf("models = %v", cfg.LLM.Models)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/meetings.db"
watch:
  inbox_dir: "./inbox"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "meetings.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if want := filepath.Join(dir, "inbox"); cfg.Watch.InboxDir != want {
		t.Errorf("inbox_dir = %s, want %s", cfg.Watch.InboxDir, want)
	}
	if cfg.Vector.SnapshotPath != "" {
		t.Errorf("empty snapshot path should stay empty, got %s", cfg.Vector.SnapshotPath)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("default driver: got %s", cfg.Storage.Driver)
	}
	if cfg.Embedding.BaseURL != "http://localhost:11434" || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	wantModels := []string{"llama2", "mistral", "codellama", "vicuna"}
	if !reflect.DeepEqual(cfg.LLM.Models, wantModels) {
		t.Errorf("default models: got %v", cfg.LLM.Models)
	}
	if cfg.LLM.Temperature != 0.3 || cfg.LLM.MaxTokens != 300 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.MeetingTopK != 5 || cfg.RAG.AllMeetingsTopK != 8 {
		t.Errorf("rag defaults: %+v", cfg.RAG)
	}
	if cfg.Vector.Type != "memory" {
		t.Errorf("default vector type: got %s", cfg.Vector.Type)
	}
	if cfg.Webhook.DedupTTLSeconds != 300 {
		t.Errorf("dedup ttl: got %d", cfg.Webhook.DedupTTLSeconds)
	}
	if len(cfg.Watch.Extensions) != 6 || cfg.Watch.Extensions[0] != ".txt" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestApplyDefaults_OpenAIProvider(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{Provider: "openai"},
		LLM:       LLMConfig{Provider: "openai"},
	}
	ApplyDefaults(cfg)
	if cfg.Embedding.BaseURL != "" {
		t.Errorf("openai base url should be left to the client, got %s", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("openai embedding defaults: %+v", cfg.Embedding)
	}
	if !reflect.DeepEqual(cfg.LLM.Models, []string{"gpt-4o-mini"}) {
		t.Errorf("openai models: %v", cfg.LLM.Models)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("OLLAMA_CHAT_MODEL", "mistral, ,llama3")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MINUTES_DATABASE_URL", "postgres://localhost/minutes")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := Default()
	if cfg.Embedding.BaseURL != "http://ollama:11434" || cfg.LLM.BaseURL != "http://ollama:11434" {
		t.Errorf("base urls: %s %s", cfg.Embedding.BaseURL, cfg.LLM.BaseURL)
	}
	if !reflect.DeepEqual(cfg.LLM.Models, []string{"mistral", "llama3"}) {
		t.Errorf("models: %v", cfg.LLM.Models)
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.Embedding.APIKey != "sk-test" {
		t.Error("api key should be applied to both providers")
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("driver should switch to postgres, got %s", cfg.Storage.Driver)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url: %s", cfg.NATS.URL)
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
