package port

import (
	"context"
	"fmt"

	"featurerag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbedOne embeds a single text. Any failure, including an empty result,
// is reported as domain.ErrEncoding.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEncoding, e.ModelName(), err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty embedding", domain.ErrEncoding, e.ModelName())
	}
	return vectors[0], nil
}
