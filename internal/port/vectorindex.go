package port

import (
	"context"

	"featurerag/internal/domain"
)

// IndexDialer opens connections to a vector index.
type IndexDialer interface {
	Connect(ctx context.Context) (VectorIndex, error)
}

// VectorIndex is a connected vector database client.
type VectorIndex interface {
	// CreateCollection creates a collection. It fails if one already exists.
	CreateCollection(ctx context.Context, name string, schema domain.CollectionSchema) error

	// DeleteCollection removes a collection. Deleting an absent collection is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// GetCollection returns a handle to an existing collection, or an error
	// wrapping domain.ErrSchema when it does not exist.
	GetCollection(ctx context.Context, name string) (Collection, error)

	Close() error
}

// Collection stores feature objects with their vectors.
type Collection interface {
	// Insert stores one object. An object with the same feature_id is replaced.
	Insert(ctx context.Context, props domain.FeatureProperties, vector []float32) error

	// NearVector returns up to limit objects ordered by ascending cosine distance.
	NearVector(ctx context.Context, vector []float32, limit int) ([]domain.QueryResult, error)
}
