package embedding

import (
	"fmt"

	"featurerag/config"
	"featurerag/internal/port"
)

// New creates the embedder selected by the configuration.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "openai", "deepseek", "jina":
		var (
			e   *OpenAIEmbedder
			err error
		)
		switch {
		case cfg.BaseURL != "":
			e, err = NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		case cfg.Provider == "deepseek":
			e, err = NewDeepSeekEmbedder(cfg.APIKeyEnv, cfg.Model)
		case cfg.Provider == "jina":
			e, err = NewJinaEmbedder(cfg.APIKeyEnv, cfg.Model)
		default:
			e, err = NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
		}
		if err != nil {
			return nil, err
		}
		return e.WithBatchSize(cfg.BatchSize).WithDimension(cfg.Dimension), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimension), nil
	case "langchain":
		e, err := NewLangChainEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.BatchSize, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "hash", "mock":
		if cfg.Dimension <= 0 {
			return nil, fmt.Errorf("hash embedder requires a positive dimension")
		}
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
