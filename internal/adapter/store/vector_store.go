package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.etcd.io/bbolt"

	"featurerag/internal/domain"
)

// boltCollection stores objects keyed by feature_id.
// Uses brute-force search; the knowledge base is small and static.
type boltCollection struct {
	db     *bbolt.DB
	name   string
	schema domain.CollectionSchema
}

type storedObject struct {
	Properties domain.FeatureProperties `json:"p"`
	Vector     []float32                `json:"v"`
}

func (c *boltCollection) objects(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket(collectionKey(c.name))
	if b == nil {
		return nil, fmt.Errorf("%w: collection %s does not exist", domain.ErrSchema, c.name)
	}
	objects := b.Bucket(bucketObjects)
	if objects == nil {
		return nil, fmt.Errorf("%w: collection %s has no objects bucket", domain.ErrSchema, c.name)
	}
	return objects, nil
}

// Insert stores one object, replacing any object with the same feature_id.
func (c *boltCollection) Insert(_ context.Context, props domain.FeatureProperties, vector []float32) error {
	if props.FeatureID == "" {
		return fmt.Errorf("%w: feature_id", domain.ErrMissingField)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty", domain.ErrInvalidVector)
	}
	if c.schema.Dimension > 0 && len(vector) != c.schema.Dimension {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", c.schema.Dimension, len(vector))
	}

	data, err := json.Marshal(storedObject{Properties: props, Vector: vector})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		b, err := c.objects(tx)
		if err != nil {
			return err
		}
		return b.Put([]byte(props.FeatureID), data)
	})
}

// NearVector returns the limit objects with the smallest cosine distance to vector.
func (c *boltCollection) NearVector(_ context.Context, vector []float32, limit int) ([]domain.QueryResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}
	if c.schema.Dimension > 0 && len(vector) != c.schema.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", c.schema.Dimension, len(vector))
	}

	var results []domain.QueryResult
	err := c.db.View(func(tx *bbolt.Tx) error {
		b, err := c.objects(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var obj storedObject
			if err := json.Unmarshal(v, &obj); err != nil {
				return nil // Skip corrupted entries
			}
			results = append(results, domain.QueryResult{
				Properties: obj.Properties,
				Distance:   cosineDistance(vector, obj.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// ForEach visits keys in byte order, so ties keep a stable feature_id order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of objects in the collection.
func (c *boltCollection) Count() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		b, err := c.objects(tx)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// cosineDistance returns 1 minus the cosine similarity of a and b.
// Vectors of different length or zero norm are at distance 1.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	d := 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
	if d < 0 {
		return 0
	}
	return d
}
