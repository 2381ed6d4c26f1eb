package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/trilu/lupito-catalog/internal/domain"
)

// snapshotCacheKey is where the built catalog index lives between runs.
const snapshotCacheKey = "catalog:snapshot"

// ImportServiceConfig holds configuration for the import service.
type ImportServiceConfig struct {
	SnapshotTTL        time.Duration
	EnableDebugLogging bool
}

// ImportService orchestrates a full import run: fetch the catalog into an
// immutable snapshot, resolve candidates against it, then apply the
// resulting writes under a single-writer discipline. Matching never sees a
// snapshot that a concurrent merge is mutating.
type ImportService struct {
	store      domain.CatalogStore
	cache      domain.SnapshotCache
	resolution *ResolutionService

	snapshotTTL        time.Duration
	enableDebugLogging bool
}

// NewImportService creates an import service with dependencies.
func NewImportService(
	store domain.CatalogStore,
	cache domain.SnapshotCache,
	resolution *ResolutionService,
	config ImportServiceConfig,
) *ImportService {
	ttl := config.SnapshotTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &ImportService{
		store:              store,
		cache:              cache,
		resolution:         resolution,
		snapshotTTL:        ttl,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Snapshot returns the catalog index, from cache when fresh, otherwise
// rebuilt from the store. A store failure is wrapped as
// ErrCatalogUnavailable so callers abort instead of matching against
// nothing.
func (s *ImportService) Snapshot(ctx context.Context) (*CatalogIndex, error) {
	if value, err := s.cache.Get(ctx, snapshotCacheKey); err == nil {
		if idx, ok := value.(*CatalogIndex); ok {
			return idx, nil
		}
	}

	products, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	idx := BuildCatalogIndex(products)
	if s.enableDebugLogging {
		log.Printf("[IMPORT] snapshot built: %d entries, %d brands", idx.Size(), idx.BrandCount())
	}

	// Best effort; a cold cache just means the next run refetches
	if err := s.cache.Set(ctx, snapshotCacheKey, idx, s.snapshotTTL); err != nil && s.enableDebugLogging {
		log.Printf("[IMPORT] snapshot cache set failed: %v", err)
	}

	return idx, nil
}

// ResolveOne resolves a single candidate without persisting anything.
func (s *ImportService) ResolveOne(
	ctx context.Context,
	rec domain.RawCandidateRecord,
) (*domain.ResolutionDecision, *domain.AmbiguityWarning, error) {
	idx, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.resolution.Resolve(ctx, rec, idx)
}

// RunBatch resolves all candidates against one snapshot, then applies the
// write decisions sequentially. Review decisions are returned for the
// reporting collaborator, never persisted. The snapshot cache is dropped
// after writes so the next run sees its own merges.
func (s *ImportService) RunBatch(
	ctx context.Context,
	candidates []domain.RawCandidateRecord,
) ([]domain.ResolutionDecision, *domain.BatchSummary, error) {
	idx, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	decisions, summary, err := s.resolution.ResolveBatch(ctx, candidates, idx)
	if err != nil {
		return decisions, summary, err
	}

	applied, err := s.Apply(ctx, decisions)
	summary.Applied = applied

	// Any write invalidates the snapshot, writes before a failed apply
	// included; the next run must not plan against stale parents
	if applied > 0 {
		if derr := s.cache.Delete(ctx, snapshotCacheKey); derr != nil && s.enableDebugLogging {
			log.Printf("[IMPORT] snapshot cache invalidation failed: %v", derr)
		}
	}
	if err != nil {
		return decisions, summary, err
	}

	if s.enableDebugLogging {
		log.Printf("[IMPORT] batch done: %d total, %d merged, %d consolidated, %d queued, %d created, %d skipped",
			summary.Total, summary.AutoMerged, summary.Consolidated, summary.Queued, summary.Created, summary.Skipped)
	}

	return decisions, summary, nil
}

// Apply persists write decisions in order, single writer. Returns how many
// decisions touched the store. The first store failure stops the pass; a
// duplicate-key conflict on insert is surfaced, never swallowed into an
// overwrite.
func (s *ImportService) Apply(ctx context.Context, decisions []domain.ResolutionDecision) (int, error) {
	applied := 0

	for i := range decisions {
		d := &decisions[i]

		switch d.Type {
		case domain.DecisionAutoMerge, domain.DecisionConsolidateVariant:
			if len(d.MergeFields) == 0 {
				continue
			}
			if err := s.store.UpdateFields(ctx, d.TargetKey, d.MergeFields); err != nil {
				return applied, fmt.Errorf("merge into %q: %w", d.TargetKey, err)
			}
			applied++

		case domain.DecisionNewProduct:
			if err := s.store.InsertProduct(ctx, d.NewProduct); err != nil {
				return applied, fmt.Errorf("insert %q: %w", d.GeneratedKey, err)
			}
			applied++

		case domain.DecisionReviewQueue:
			// Left for human review; nothing to write
		}
	}

	return applied, nil
}
