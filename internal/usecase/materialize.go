package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"featurerag/internal/domain"
	"featurerag/internal/port"
)

// EmbeddingText builds the text embedded for a feature: its name with a
// trailing period, the description lines, how it helps, and the use cases
// joined by ". ", separated by single spaces and trimmed. Empty parts still
// contribute their separator so the text matches previously built indexes.
func EmbeddingText(r domain.FeatureRecord) (string, error) {
	if strings.TrimSpace(r.FeatureName) == "" {
		return "", fmt.Errorf("%w: feature_name", domain.ErrMissingField)
	}

	parts := []string{
		r.FeatureName + ".",
		strings.Join(r.Description, " "),
		r.HowItHelps,
		strings.Join(r.UseCases, ". "),
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// ProgressFunc is called after each record is embedded.
type ProgressFunc func(done, total int, name string)

// Materializer turns feature records into embedded records.
type Materializer struct {
	embedder  port.Embedder
	batchSize int
	newID     func() string
}

// NewMaterializer creates a materializer that embeds batchSize records per
// call to the embedder.
func NewMaterializer(embedder port.Embedder, batchSize int) *Materializer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Materializer{
		embedder:  embedder,
		batchSize: batchSize,
		newID:     uuid.NewString,
	}
}

// Materialize embeds every record in order. It never skips a record: the
// first missing feature_name or embedding failure aborts the run. All
// vectors share the length of the first one.
func (m *Materializer) Materialize(ctx context.Context, records []domain.FeatureRecord, progress ProgressFunc) ([]domain.EmbeddedRecord, error) {
	texts := make([]string, len(records))
	for i, r := range records {
		text, err := EmbeddingText(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		texts[i] = text
	}

	out := make([]domain.EmbeddedRecord, 0, len(records))
	dim := 0
	for start := 0; start < len(records); start += m.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+m.batchSize, len(records))

		vectors, err := m.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: records %d-%d with %s: %v",
				domain.ErrEncoding, start, end-1, m.embedder.ModelName(), err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
				domain.ErrEncoding, end-start, len(vectors))
		}

		for j, vec := range vectors {
			i := start + j
			if len(vec) == 0 {
				return nil, fmt.Errorf("%w: record %d has an empty embedding", domain.ErrEncoding, i)
			}
			if dim == 0 {
				dim = len(vec)
			} else if len(vec) != dim {
				return nil, fmt.Errorf("%w: record %d has dimension %d, expected %d",
					domain.ErrEncoding, i, len(vec), dim)
			}

			out = append(out, m.embedded(records[i], vec))
			if progress != nil {
				progress(i+1, len(records), records[i].FeatureName)
			}
		}
	}
	return out, nil
}

func (m *Materializer) embedded(r domain.FeatureRecord, vec []float32) domain.EmbeddedRecord {
	id := strings.TrimSpace(r.FeatureID)
	if id == "" {
		id = m.newID()
	}
	return domain.EmbeddedRecord{
		ID:          id,
		FeatureName: r.FeatureName,
		Category:    orEmpty(r.Category),
		Description: orEmpty(r.Description),
		HowItHelps:  r.HowItHelps,
		UseCases:    orEmpty(r.UseCases),
		Keywords:    orEmpty(r.Keywords),
		Vector:      vec,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
