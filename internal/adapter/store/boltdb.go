package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"featurerag/internal/domain"
	"featurerag/internal/port"
)

// CurrentSchemaVersion is the storage format version written with every collection.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

const collectionPrefix = "collection/"

var (
	bucketMeta    = []byte("meta")
	bucketObjects = []byte("objects")
	keySchema     = []byte("schema")
)

// schemaInfo is persisted in the meta bucket of each collection.
type schemaInfo struct {
	Version int                     `json:"version"`
	Schema  domain.CollectionSchema `json:"schema"`
	Created int64                   `json:"created"`
}

// BoltDialer opens a bbolt file as a vector index.
type BoltDialer struct {
	path    string
	timeout time.Duration
}

// NewBoltDialer creates a dialer for the index file at path.
func NewBoltDialer(path string) *BoltDialer {
	return &BoltDialer{path: path, timeout: time.Second}
}

// Connect opens the index file, creating it and its directory if needed.
func (d *BoltDialer) Connect(ctx context.Context) (port.VectorIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return OpenBoltIndex(d.path, d.timeout)
}

// BoltIndex implements port.VectorIndex on a single bbolt file. Each
// collection is a top-level bucket holding its schema and its objects.
type BoltIndex struct {
	db *bbolt.DB
}

// OpenBoltIndex opens the index file at path.
func OpenBoltIndex(path string, timeout time.Duration) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create index directory: %v", domain.ErrConnection, err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db %s: %v", domain.ErrConnection, path, err)
	}
	return &BoltIndex{db: db}, nil
}

func collectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// CreateCollection creates an empty collection with the given schema.
func (s *BoltIndex) CreateCollection(_ context.Context, name string, schema domain.CollectionSchema) error {
	if name == "" {
		return fmt.Errorf("%w: collection name must not be empty", domain.ErrSchema)
	}
	if schema.PrimaryKey() == "" {
		return fmt.Errorf("%w: collection %s has no primary key", domain.ErrSchema, name)
	}

	info := schemaInfo{Version: CurrentSchemaVersion, Schema: schema, Created: time.Now().Unix()}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucket(collectionKey(name))
		if err != nil {
			if errors.Is(err, bbolt.ErrBucketExists) {
				return fmt.Errorf("%w: collection %s already exists", domain.ErrSchema, name)
			}
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		meta, err := b.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket(bucketObjects); err != nil {
			return err
		}
		return meta.Put(keySchema, data)
	})
}

// DeleteCollection removes a collection and all its objects.
func (s *BoltIndex) DeleteCollection(_ context.Context, name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(collectionKey(name))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

// GetCollection returns a handle to an existing collection.
func (s *BoltIndex) GetCollection(_ context.Context, name string) (port.Collection, error) {
	var info schemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(collectionKey(name))
		if b == nil {
			return fmt.Errorf("%w: collection %s does not exist", domain.ErrSchema, name)
		}
		var err error
		info, err = readSchema(b)
		return err
	})
	if err != nil {
		return nil, err
	}

	if info.Version > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: collection %s created by newer version (v%d > v%d)",
			domain.ErrSchema, name, info.Version, CurrentSchemaVersion)
	}

	return &boltCollection{db: s.db, name: name, schema: info.Schema}, nil
}

// Collections lists the names of all collections in the file.
func (s *BoltIndex) Collections() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if n, ok := strings.CutPrefix(string(name), collectionPrefix); ok {
				names = append(names, n)
			}
			return nil
		})
	})
	return names, err
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

func readSchema(b *bbolt.Bucket) (schemaInfo, error) {
	var info schemaInfo
	meta := b.Bucket(bucketMeta)
	if meta == nil {
		return info, fmt.Errorf("%w: collection has no metadata", domain.ErrSchema)
	}
	data := meta.Get(keySchema)
	if data == nil {
		return info, fmt.Errorf("%w: collection has no schema", domain.ErrSchema)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("%w: corrupt schema: %v", domain.ErrSchema, err)
	}
	return info, nil
}
