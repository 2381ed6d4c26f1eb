package domain

import (
	"context"
	"time"
)

// CatalogStore defines the interface for the canonical catalog source.
type CatalogStore interface {
	// FetchAll returns every catalog entry. Batch runs build an immutable
	// in-memory index from this snapshot.
	FetchAll(ctx context.Context) ([]CanonicalProduct, error)

	// InsertProduct creates a new entry. A product-key collision returns
	// ErrDuplicateKey rather than overwriting.
	InsertProduct(ctx context.Context, product *CanonicalProduct) error

	// UpdateFields applies a partial update keyed by product key. Only
	// currently-empty columns are filled; a populated column keeps its
	// value even when the payload carries one.
	UpdateFields(ctx context.Context, productKey string, fields map[string]any) error

	// AliasMap returns the lowercased brand alias -> canonical brand table.
	AliasMap(ctx context.Context) (map[string]string, error)
}

// SnapshotCache defines the interface for caching catalog snapshots between runs.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
