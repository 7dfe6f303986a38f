package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"featurerag/internal/domain"
	"featurerag/internal/logging"
	"featurerag/internal/port"
)

// Querier answers queries against a feature collection. Each query opens
// its own index connection and releases it before returning.
type Querier struct {
	dialer   port.IndexDialer
	embedder port.Embedder
	logger   *zap.Logger
}

func NewQuerier(dialer port.IndexDialer, embedder port.Embedder, logger *zap.Logger) *Querier {
	return &Querier{
		dialer:   dialer,
		embedder: embedder,
		logger:   logging.OrNop(logger),
	}
}

// Query returns up to topK features nearest to text, nearest first. On any
// failure it logs the cause and returns no results with the error.
func (u *Querier) Query(ctx context.Context, text, collection string, topK int) (results []domain.QueryResult, err error) {
	log := u.logger.With(zap.String("collection", collection), zap.Int("top_k", topK))

	if topK < 1 {
		err = fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, topK)
		log.Error("query rejected", zap.Error(err))
		return nil, err
	}

	vector, err := port.EmbedOne(ctx, u.embedder, text)
	if err != nil {
		log.Error("query embedding failed", zap.Error(err))
		return nil, err
	}

	index, err := u.dialer.Connect(ctx)
	if err != nil {
		log.Error("vector index connection failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil {
			log.Warn("closing vector index failed", zap.Error(cerr))
		}
	}()

	col, err := index.GetCollection(ctx, collection)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	results, err = col.NearVector(ctx, vector, topK)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	log.Debug("query answered", zap.Int("results", len(results)))
	return results, nil
}
