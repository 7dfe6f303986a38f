package embedding

import (
	"context"
	"fmt"
	"os"

	langchainembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainEmbedder adapts a langchaingo embedder to the Embedder port.
type LangChainEmbedder struct {
	embedder  langchainembeddings.Embedder
	model     string
	dimension int
}

// NewLangChainEmbedder builds a langchaingo OpenAI client for any
// OpenAI-compatible host. An empty baseURL uses the OpenAI default.
func NewLangChainEmbedder(apiKeyEnv, model, baseURL string, batchSize, dimension int) (*LangChainEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI LLM: %w", err)
	}

	var embedOpts []langchainembeddings.Option
	if batchSize > 0 {
		embedOpts = append(embedOpts, langchainembeddings.WithBatchSize(batchSize))
	}
	embedder, err := langchainembeddings.NewEmbedder(llm, embedOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return NewLangChainEmbedderFrom(embedder, model, dimension), nil
}

// NewLangChainEmbedderFrom wraps an existing langchaingo embedder.
func NewLangChainEmbedderFrom(embedder langchainembeddings.Embedder, model string, dimension int) *LangChainEmbedder {
	if dimension <= 0 {
		dimension = knownDimension(model, 1536)
	}
	return &LangChainEmbedder{embedder: embedder, model: model, dimension: dimension}
}

func (e *LangChainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) == 1 {
		vec, err := e.embedder.EmbedQuery(ctx, texts[0])
		if err != nil {
			return nil, err
		}
		return [][]float32{vec}, nil
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("langchain embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *LangChainEmbedder) Dimension() int {
	return e.dimension
}

func (e *LangChainEmbedder) ModelName() string {
	return e.model
}
