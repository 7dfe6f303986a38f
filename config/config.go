package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the feature lookup tool.
type Config struct {
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Index         IndexConfig         `yaml:"index"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Retrieve      RetrieveConfig      `yaml:"retrieve"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// KnowledgeBaseConfig locates the source document and the intermediate JSONL file.
type KnowledgeBaseConfig struct {
	Path              string `yaml:"path"` // a file, or a doublestar pattern such as data/**/*.json
	EmbeddingDataPath string `yaml:"embedding_data_path"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Backend     string `yaml:"backend"` // "bolt", "chromem", "qdrant"
	Collection  string `yaml:"collection"`
	BoltPath    string `yaml:"bolt_path"`
	ChromemPath string `yaml:"chromem_path"` // empty keeps the chromem database in memory
	QdrantAddr  string `yaml:"qdrant_addr"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "hash", "openai", "deepseek", "jina", "ollama", "langchain"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console" or "json"
	File       string `yaml:"file"`   // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KnowledgeBase: KnowledgeBaseConfig{
			Path:              "data/knowledge_base.json",
			EmbeddingDataPath: "data/embedding_data.jsonl",
		},
		Index: IndexConfig{
			Backend:    "bolt",
			Collection: "Filum_AI_Features",
			BoltPath:   filepath.Join(".featurerag", "index.db"),
			QdrantAddr: "localhost:6334",
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-bow",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 32,
		},
		Retrieve: RetrieveConfig{
			TopK: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for featurerag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "featurerag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".featurerag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "bolt", "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported index backend: %q", c.Index.Backend)
	}
	if c.Index.Collection == "" {
		return fmt.Errorf("index.collection must not be empty")
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Embedding.Provider == "hash" && c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding.dimension must be positive for the hash provider")
	}
	return nil
}

// Resolve makes relative paths absolute against dir.
func (c *Config) Resolve(dir string) {
	c.KnowledgeBase.Path = resolve(dir, c.KnowledgeBase.Path)
	c.KnowledgeBase.EmbeddingDataPath = resolve(dir, c.KnowledgeBase.EmbeddingDataPath)
	c.Index.BoltPath = resolve(dir, c.Index.BoltPath)
	c.Index.ChromemPath = resolve(dir, c.Index.ChromemPath)
	c.Logging.File = resolve(dir, c.Logging.File)
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
