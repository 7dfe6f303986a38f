// Package chromemdb implements the vector index on chromem-go, an embedded
// vector database that keeps collections in memory and optionally persists
// them to a directory.
package chromemdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"featurerag/internal/domain"
	"featurerag/internal/port"
)

// errNoVectorizer is returned when chromem asks the collection to embed
// text itself. Vectors are always computed before insertion.
var errNoVectorizer = errors.New("collection has no vectorizer; supply embeddings explicitly")

func noVectorizer(context.Context, string) ([]float32, error) {
	return nil, errNoVectorizer
}

// Dialer hands out connections to one chromem database. All connections of
// a dialer share the same database, so an in-memory index survives between
// ingestion and query within a process.
type Dialer struct {
	path string

	mu      sync.Mutex
	db      *chromem.DB
	schemas *schemaRegistry
}

// NewDialer returns a dialer for a database persisted under path.
// An empty path keeps the database in memory.
func NewDialer(path string) *Dialer {
	return &Dialer{path: path}
}

func (d *Dialer) Connect(ctx context.Context) (port.VectorIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		if d.path == "" {
			d.db = chromem.NewDB()
		} else {
			db, err := chromem.NewPersistentDB(d.path, false)
			if err != nil {
				return nil, fmt.Errorf("%w: open chromem db %s: %v", domain.ErrConnection, d.path, err)
			}
			d.db = db
		}
		d.schemas = newSchemaRegistry()
	}
	return &Index{db: d.db, schemas: d.schemas}, nil
}

// schemaRegistry remembers the schema each collection was created with.
// chromem keeps collection metadata private, so collections reopened from
// disk have no recorded schema and accept vectors of any length.
type schemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]domain.CollectionSchema
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{schemas: make(map[string]domain.CollectionSchema)}
}

func (r *schemaRegistry) get(name string) domain.CollectionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name]
}

func (r *schemaRegistry) set(name string, s domain.CollectionSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = s
}

func (r *schemaRegistry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, name)
}

// Index implements port.VectorIndex on a chromem database.
type Index struct {
	db      *chromem.DB
	schemas *schemaRegistry
}

// NewIndex wraps an existing chromem database.
func NewIndex(db *chromem.DB) *Index {
	return &Index{db: db, schemas: newSchemaRegistry()}
}

func (x *Index) CreateCollection(_ context.Context, name string, schema domain.CollectionSchema) error {
	if name == "" {
		return fmt.Errorf("%w: collection name must not be empty", domain.ErrSchema)
	}
	if schema.PrimaryKey() == "" {
		return fmt.Errorf("%w: collection %s has no primary key", domain.ErrSchema, name)
	}
	if x.db.GetCollection(name, noVectorizer) != nil {
		return fmt.Errorf("%w: collection %s already exists", domain.ErrSchema, name)
	}

	meta := map[string]string{"distance": string(schema.Distance), "primary_key": schema.PrimaryKey()}
	if _, err := x.db.CreateCollection(name, meta, noVectorizer); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	x.schemas.set(name, schema)
	return nil
}

func (x *Index) DeleteCollection(_ context.Context, name string) error {
	if x.db.GetCollection(name, noVectorizer) == nil {
		return nil
	}
	if err := x.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	x.schemas.remove(name)
	return nil
}

func (x *Index) GetCollection(_ context.Context, name string) (port.Collection, error) {
	c := x.db.GetCollection(name, noVectorizer)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %s does not exist", domain.ErrSchema, name)
	}
	return &collection{c: c, schema: x.schemas.get(name)}, nil
}

// Close is a no-op; persistent databases write through on every insert.
func (x *Index) Close() error { return nil }

type collection struct {
	c      *chromem.Collection
	schema domain.CollectionSchema
}

func (c *collection) Insert(ctx context.Context, props domain.FeatureProperties, vector []float32) error {
	if props.FeatureID == "" {
		return fmt.Errorf("%w: feature_id", domain.ErrMissingField)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty", domain.ErrInvalidVector)
	}
	if c.schema.Dimension > 0 && len(vector) != c.schema.Dimension {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", c.schema.Dimension, len(vector))
	}

	meta, err := encodeMetadata(props)
	if err != nil {
		return err
	}

	// chromem normalises the embedding in place, so hand it a copy.
	embedding := append([]float32(nil), vector...)
	return c.c.AddDocument(ctx, chromem.Document{
		ID:        props.FeatureID,
		Content:   props.FeatureName,
		Metadata:  meta,
		Embedding: embedding,
	})
}

func (c *collection) NearVector(ctx context.Context, vector []float32, limit int) ([]domain.QueryResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}
	if c.schema.Dimension > 0 && len(vector) != c.schema.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", c.schema.Dimension, len(vector))
	}

	// chromem rejects nResults larger than the collection.
	n := min(limit, c.c.Count())
	if n == 0 {
		return nil, nil
	}

	matches, err := c.c.QueryEmbedding(ctx, append([]float32(nil), vector...), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	results := make([]domain.QueryResult, 0, len(matches))
	for _, m := range matches {
		props, err := decodeMetadata(m.ID, m.Metadata)
		if err != nil {
			return nil, err
		}
		d := 1 - float64(m.Similarity)
		if d < 0 {
			d = 0
		}
		results = append(results, domain.QueryResult{Properties: props, Distance: d})
	}
	return results, nil
}

// chromem metadata is a flat string map; array properties are stored as
// JSON-encoded strings.
func encodeMetadata(p domain.FeatureProperties) (map[string]string, error) {
	meta := map[string]string{
		"feature_id":   p.FeatureID,
		"feature_name": p.FeatureName,
		"how_it_helps": p.HowItHelps,
	}
	arrays := map[string][]string{
		"category":    p.Category,
		"description": p.Description,
		"use_cases":   p.UseCases,
		"keywords":    p.Keywords,
	}
	for k, v := range arrays {
		if v == nil {
			v = []string{}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		meta[k] = string(data)
	}
	return meta, nil
}

func decodeMetadata(id string, meta map[string]string) (domain.FeatureProperties, error) {
	p := domain.FeatureProperties{
		FeatureID:   meta["feature_id"],
		FeatureName: meta["feature_name"],
		HowItHelps:  meta["how_it_helps"],
	}
	if p.FeatureID == "" {
		p.FeatureID = id
	}
	arrays := []struct {
		key string
		dst *[]string
	}{
		{"category", &p.Category},
		{"description", &p.Description},
		{"use_cases", &p.UseCases},
		{"keywords", &p.Keywords},
	}
	for _, a := range arrays {
		*a.dst = []string{}
		raw, ok := meta[a.key]
		if !ok || raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), a.dst); err != nil {
			return p, fmt.Errorf("%w: metadata %s of %s: %v", domain.ErrSchema, a.key, id, err)
		}
	}
	return p, nil
}
