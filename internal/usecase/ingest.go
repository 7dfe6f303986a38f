package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"featurerag/internal/adapter/jsonl"
	"featurerag/internal/adapter/knowledgebase"
	"featurerag/internal/domain"
	"featurerag/internal/logging"
	"featurerag/internal/port"
)

// Ingestor loads the knowledge base into a vector index collection.
type Ingestor struct {
	index    port.VectorIndex
	embedder port.Embedder
	logger   *zap.Logger
}

// NewIngestor creates an ingestor writing to index. The embedder is only
// needed by Run when it materializes embeddings.
func NewIngestor(index port.VectorIndex, embedder port.Embedder, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		index:    index,
		embedder: embedder,
		logger:   logging.OrNop(logger),
	}
}

// CreateDatabase resets collection: any existing collection of that name is
// deleted and an empty one is created with the feature schema.
func (u *Ingestor) CreateDatabase(ctx context.Context, collection string, dimension int) error {
	if err := u.index.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	if err := u.index.CreateCollection(ctx, collection, domain.FeatureSchema(dimension)); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}
	u.logger.Info("collection created",
		zap.String("collection", collection),
		zap.Int("dimension", dimension))
	return nil
}

// InsertReport counts the outcome of InsertDataToDB per line.
type InsertReport struct {
	Lines      int
	Inserted   int
	Skipped    int // missing id or vector, or a non-numeric vector
	Failed     int // malformed JSON or a rejected insert
	Duplicates int // lines whose id replaced an earlier line
}

// InsertDataToDB inserts every line of the JSONL file at path into
// collection. A bad line is logged and skipped; it never stops the run.
// A missing collection or file is logged and returned as an error.
func (u *Ingestor) InsertDataToDB(ctx context.Context, path, collection string) (InsertReport, error) {
	var report InsertReport
	log := u.logger.With(zap.String("path", path), zap.String("collection", collection))

	col, err := u.index.GetCollection(ctx, collection)
	if err != nil {
		log.Error("collection not available", zap.Error(err))
		return report, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		log.Error("cannot open embedding data", zap.Error(err))
		return report, err
	}
	defer f.Close()

	seen := make(map[string]int)
	err = jsonl.ForEachLine(f, func(lineNo int, line []byte, lineErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lineErr != nil {
			log.Error("skipping unreadable line", zap.Int("line", lineNo), zap.Error(lineErr))
			report.Lines++
			report.Failed++
			return nil
		}
		if len(line) == 0 {
			return nil
		}
		report.Lines++

		rec, err := jsonl.DecodeLine(line)
		switch {
		case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidVector):
			log.Warn("skipping line", zap.Int("line", lineNo), zap.Error(err))
			report.Skipped++
			return nil
		case err != nil:
			log.Error("skipping malformed line", zap.Int("line", lineNo), zap.Error(err))
			report.Failed++
			return nil
		}

		if prev, ok := seen[rec.ID]; ok {
			log.Warn("duplicate feature_id replaces earlier line",
				zap.Int("line", lineNo),
				zap.Int("previous_line", prev),
				zap.String("feature_id", rec.ID))
			report.Duplicates++
		}

		if err := col.Insert(ctx, rec.Properties(), rec.Vector); err != nil {
			log.Error("insert failed", zap.Int("line", lineNo), zap.String("feature_id", rec.ID), zap.Error(err))
			report.Failed++
			return nil
		}
		seen[rec.ID] = lineNo
		report.Inserted++
		return nil
	})
	if err != nil {
		log.Error("reading embedding data stopped", zap.Error(err))
		return report, err
	}

	log.Info("embedding data inserted",
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// RunOptions configure a full ingestion.
type RunOptions struct {
	KnowledgeBase string // file or doublestar pattern
	EmbeddingData string // JSONL file written by materialization
	Collection    string
	BatchSize     int

	// FromJSONL indexes an existing EmbeddingData file without loading and
	// embedding the knowledge base.
	FromJSONL bool

	Progress ProgressFunc
}

// RunResult summarises a full ingestion.
type RunResult struct {
	Records   int // records materialized, 0 with FromJSONL
	Dimension int
	Insert    InsertReport
}

// Run loads the knowledge base, embeds it, writes the JSONL file, resets
// the collection, and inserts the file. Every stage but the per-line
// inserts is fatal.
func (u *Ingestor) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{}

	if !opts.FromJSONL {
		if u.embedder == nil {
			return nil, fmt.Errorf("%w: no embedder configured", domain.ErrInvalidArgument)
		}

		records, err := knowledgebase.LoadPath(opts.KnowledgeBase)
		if err != nil {
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		u.logger.Info("knowledge base loaded",
			zap.String("path", opts.KnowledgeBase),
			zap.Int("records", len(records)))

		embedded, err := NewMaterializer(u.embedder, opts.BatchSize).Materialize(ctx, records, opts.Progress)
		if err != nil {
			return nil, fmt.Errorf("failed to embed knowledge base: %w", err)
		}
		if err := jsonl.WriteFile(opts.EmbeddingData, embedded); err != nil {
			return nil, fmt.Errorf("failed to write embedding data: %w", err)
		}
		result.Records = len(embedded)
		if len(embedded) > 0 {
			result.Dimension = len(embedded[0].Vector)
		}
		u.logger.Info("embedding data written",
			zap.String("path", opts.EmbeddingData),
			zap.String("model", u.embedder.ModelName()),
			zap.Int("records", len(embedded)))
	} else {
		dim, err := peekDimension(opts.EmbeddingData)
		if err != nil {
			return nil, err
		}
		result.Dimension = dim
	}

	if result.Dimension == 0 && u.embedder != nil {
		result.Dimension = u.embedder.Dimension()
	}

	if err := u.CreateDatabase(ctx, opts.Collection, result.Dimension); err != nil {
		return nil, err
	}

	report, err := u.InsertDataToDB(ctx, opts.EmbeddingData, opts.Collection)
	result.Insert = report
	if err != nil {
		return result, err
	}
	return result, nil
}

// peekDimension returns the vector length of the first decodable line of
// path, or 0 when no line decodes.
func peekDimension(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return 0, err
	}
	defer f.Close()

	errFound := errors.New("found")
	dim := 0
	err = jsonl.ForEachLine(f, func(_ int, line []byte, lineErr error) error {
		if lineErr != nil {
			return nil
		}
		rec, err := jsonl.DecodeLine(line)
		if err != nil {
			return nil
		}
		dim = len(rec.Vector)
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return 0, err
	}
	return dim, nil
}
