package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Index.Collection != "Filum_AI_Features" {
		t.Errorf("expected Collection=Filum_AI_Features, got %s", cfg.Index.Collection)
	}
	if cfg.Index.Backend != "bolt" {
		t.Errorf("expected Backend=bolt, got %s", cfg.Index.Backend)
	}
	if cfg.Retrieve.TopK != 1 {
		t.Errorf("expected TopK=1, got %d", cfg.Retrieve.TopK)
	}
	if cfg.KnowledgeBase.EmbeddingDataPath != "data/embedding_data.jsonl" {
		t.Errorf("unexpected EmbeddingDataPath %s", cfg.KnowledgeBase.EmbeddingDataPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "featurerag.yaml")

	content := `
index:
  backend: chromem
  collection: Docs
retrieve:
  top_k: 3
embedding:
  provider: ollama
  model: nomic-embed-text
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Index.Backend != "chromem" {
		t.Errorf("expected Backend=chromem, got %s", cfg.Index.Backend)
	}
	if cfg.Index.Collection != "Docs" {
		t.Errorf("expected Collection=Docs, got %s", cfg.Index.Collection)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("expected Provider=ollama, got %s", cfg.Embedding.Provider)
	}
	// untouched keys keep their defaults
	if cfg.Index.QdrantAddr != "localhost:6334" {
		t.Errorf("expected default QdrantAddr, got %s", cfg.Index.QdrantAddr)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "featurerag.yaml")
	if err := os.WriteFile(configPath, []byte("index: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".featurerag"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".featurerag", "config.yaml")

	content := `
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected Level=debug, got %s", cfg.Logging.Level)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "featurerag.yaml")
	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 5

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", loaded.Retrieve.TopK)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Index.Backend = "weaviate" }},
		{"empty collection", func(c *Config) { c.Index.Collection = "" }},
		{"zero top_k", func(c *Config) { c.Retrieve.TopK = 0 }},
		{"hash without dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.BoltPath = "/abs/index.db"
	cfg.Resolve("/home/user/project")

	expected := filepath.Join("/home/user/project", "data", "knowledge_base.json")
	if cfg.KnowledgeBase.Path != expected {
		t.Errorf("expected %s, got %s", expected, cfg.KnowledgeBase.Path)
	}
	if cfg.Index.BoltPath != "/abs/index.db" {
		t.Errorf("absolute path should be kept, got %s", cfg.Index.BoltPath)
	}
	if cfg.Index.ChromemPath != "" {
		t.Errorf("empty path should stay empty, got %s", cfg.Index.ChromemPath)
	}
}
