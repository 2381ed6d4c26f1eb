package domain

import "errors"

var (
	// ErrInvalidCandidate is returned when a raw record has no usable
	// product name after normalization. The candidate is skipped and
	// reported; it is not fatal to the batch.
	ErrInvalidCandidate = errors.New("candidate has no usable brand or product name")

	// ErrCatalogUnavailable is returned when the catalog source cannot be
	// fetched. It is fatal to the whole batch: proceeding as if the catalog
	// were empty would mass-classify everything as a new product.
	ErrCatalogUnavailable = errors.New("catalog source unavailable")

	// ErrDuplicateKey is returned when an insert collides with an existing
	// product key. Inserts must surface the conflict, never overwrite.
	ErrDuplicateKey = errors.New("product key already exists")

	// ErrProductNotFound is returned when a catalog entry cannot be found by key.
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrBatchAborted is returned when a batch stops early after too many
	// consecutive candidate failures.
	ErrBatchAborted = errors.New("batch aborted after consecutive failures")

	// ErrCacheMiss is returned when data is not found in the snapshot cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when a client exceeds the per-IP rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")
)
