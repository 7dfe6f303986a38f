package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"featurerag/internal/adapter/analyzer"
)

// HashEmbedder is a deterministic, offline embedder. Each term is hashed
// into one of dimension buckets with a hashed sign, and the result is
// L2-normalised. Texts sharing terms have a small cosine distance.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true),
	}
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embed(text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *HashEmbedder) embed(text string) ([]float32, error) {
	terms := e.tokenizer.Tokenize(text)
	if len(terms) == 0 {
		trimmed := strings.ToLower(strings.TrimSpace(text))
		if trimmed == "" {
			return nil, fmt.Errorf("cannot embed empty text")
		}
		terms = []string{trimmed}
	}

	vec := make([]float32, e.dimension)
	for _, term := range terms {
		h := fnv.New64a()
		h.Write([]byte(term))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimension))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// every term cancelled out; fall back to the first term's bucket
		h := fnv.New64a()
		h.Write([]byte(terms[0]))
		vec[int(h.Sum64()%uint64(e.dimension))] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "hash-bow"
}
