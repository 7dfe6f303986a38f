// Package vectorindex selects the vector index backend from configuration.
package vectorindex

import (
	"fmt"

	"featurerag/config"
	"featurerag/internal/adapter/chromemdb"
	"featurerag/internal/adapter/qdrant"
	"featurerag/internal/adapter/store"
	"featurerag/internal/port"
)

// New returns a dialer for the configured backend. Callers keep one dialer
// per process: connections from the same chromem dialer share one database.
func New(cfg config.IndexConfig) (port.IndexDialer, error) {
	switch cfg.Backend {
	case "bolt", "":
		if cfg.BoltPath == "" {
			return nil, fmt.Errorf("index.bolt_path must be set for the bolt backend")
		}
		return store.NewBoltDialer(cfg.BoltPath), nil
	case "chromem":
		return chromemdb.NewDialer(cfg.ChromemPath), nil
	case "qdrant":
		if cfg.QdrantAddr == "" {
			return nil, fmt.Errorf("index.qdrant_addr must be set for the qdrant backend")
		}
		return qdrant.NewDialer(cfg.QdrantAddr), nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}
