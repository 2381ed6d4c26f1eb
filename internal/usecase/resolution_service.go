package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/trilu/lupito-catalog/internal/domain"
)

// Default decision thresholds. The source data pipelines disagreed on the
// exact cutoffs, so all of these are configuration, not policy.
const (
	defaultAutoMergeThreshold     = 0.9
	defaultReviewThreshold        = 0.8
	defaultMinimumThreshold       = 0.7
	defaultMaxConsecutiveFailures = 5
)

// ResolutionConfig holds configuration for the resolution service.
type ResolutionConfig struct {
	AutoMergeThreshold     float64
	ReviewThreshold        float64
	MinimumThreshold       float64
	MaxConsecutiveFailures int
	EnableDebugLogging     bool
}

// ResolutionService turns raw candidates into resolution decisions:
// normalize, classify, match, then walk the decision table.
type ResolutionService struct {
	normalizer *Normalizer
	classifier *VariantClassifier
	matcher    *CandidateMatcher

	autoMergeThreshold     float64
	reviewThreshold        float64
	minimumThreshold       float64
	maxConsecutiveFailures int
	enableDebugLogging     bool
}

// NewResolutionService creates a resolution service with dependencies.
func NewResolutionService(
	normalizer *Normalizer,
	classifier *VariantClassifier,
	matcher *CandidateMatcher,
	config ResolutionConfig,
) *ResolutionService {
	autoMerge := config.AutoMergeThreshold
	if autoMerge <= 0 {
		autoMerge = defaultAutoMergeThreshold
	}
	review := config.ReviewThreshold
	if review <= 0 {
		review = defaultReviewThreshold
	}
	minimum := config.MinimumThreshold
	if minimum <= 0 {
		minimum = defaultMinimumThreshold
	}
	maxFailures := config.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxConsecutiveFailures
	}

	return &ResolutionService{
		normalizer:             normalizer,
		classifier:             classifier,
		matcher:                matcher,
		autoMergeThreshold:     autoMerge,
		reviewThreshold:        review,
		minimumThreshold:       minimum,
		maxConsecutiveFailures: maxFailures,
		enableDebugLogging:     config.EnableDebugLogging,
	}
}

// Resolve decides what to do with one raw candidate against the snapshot.
//
// Decision table, first match wins:
//  1. exact key hit                              -> auto_merge
//  2. fuzzy hit above minimum + variant pattern  -> consolidate_variant
//  3. score >= auto-merge threshold              -> auto_merge
//  4. score >= minimum threshold                 -> review_queue (tiered)
//  5. otherwise                                  -> new_product
//
// Merge decisions carry a fill-gaps-only payload: a candidate value is
// copied only into a field the parent has empty, never over curated data.
func (s *ResolutionService) Resolve(
	ctx context.Context,
	rec domain.RawCandidateRecord,
	idx *CatalogIndex,
) (*domain.ResolutionDecision, *domain.AmbiguityWarning, error) {
	if idx == nil {
		return nil, nil, domain.ErrCatalogUnavailable
	}

	candidate, err := s.normalizer.NormalizeCandidate(rec)
	if err != nil {
		return nil, nil, err
	}

	match, warning, err := s.matcher.Match(ctx, candidate, idx)
	if err != nil {
		return nil, nil, err
	}

	var variant domain.VariantInfo
	if match.BestMatch != nil && !match.ExactKeyMatch {
		variant = s.classifier.ClassifyPair(rec.ProductName, match.BestMatch.ProductName)
	}

	decision := &domain.ResolutionDecision{
		Candidate:     rec,
		Score:         match.Score,
		ExactKeyMatch: match.ExactKeyMatch,
	}

	switch {
	case match.ExactKeyMatch:
		decision.Type = domain.DecisionAutoMerge
		decision.TargetKey = match.BestMatch.ProductKey
		decision.MergeFields = mergeFields(match.BestMatch, candidate)

	case match.BestMatch != nil && variant.ShouldConsolidate && match.Score >= s.minimumThreshold:
		decision.Type = domain.DecisionConsolidateVariant
		decision.TargetKey = match.BestMatch.ProductKey
		decision.MergeFields = mergeFields(match.BestMatch, candidate)

	case match.BestMatch != nil && match.Score >= s.autoMergeThreshold:
		decision.Type = domain.DecisionAutoMerge
		decision.TargetKey = match.BestMatch.ProductKey
		decision.MergeFields = mergeFields(match.BestMatch, candidate)

	case match.BestMatch != nil && match.Score >= s.minimumThreshold:
		decision.Type = domain.DecisionReviewQueue
		decision.BestMatchKey = match.BestMatch.ProductKey
		decision.ReviewTier = domain.ReviewTierConfirm
		if match.Score < s.reviewThreshold {
			decision.ReviewTier = domain.ReviewTierManual
		}

	default:
		decision.Type = domain.DecisionNewProduct
		decision.GeneratedKey = candidate.ProductKey
		decision.NewProduct = productFromCandidate(candidate)
	}

	if s.enableDebugLogging {
		log.Printf("[RESOLVE] %q / %q -> %s (score %.3f, exact %v)",
			rec.Brand, rec.ProductName, decision.Type, decision.Score, decision.ExactKeyMatch)
	}

	return decision, warning, nil
}

// ResolveBatch resolves every candidate against a single immutable
// snapshot and accumulates per-decision counts into summary.
//
// Per-candidate input errors are skipped and reported, not fatal. The
// batch stops early with ErrBatchAborted after maxConsecutiveFailures
// candidate failures in a row, and never proceeds at all without a
// snapshot: a missing catalog must fail loudly rather than mass-create
// "new" products.
func (s *ResolutionService) ResolveBatch(
	ctx context.Context,
	candidates []domain.RawCandidateRecord,
	idx *CatalogIndex,
) ([]domain.ResolutionDecision, *domain.BatchSummary, error) {
	if idx == nil {
		return nil, nil, domain.ErrCatalogUnavailable
	}

	summary := &domain.BatchSummary{Total: len(candidates)}
	decisions := make([]domain.ResolutionDecision, 0, len(candidates))
	consecutiveFailures := 0

	for i, rec := range candidates {
		select {
		case <-ctx.Done():
			return decisions, summary, ctx.Err()
		default:
		}

		decision, warning, err := s.Resolve(ctx, rec, idx)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCandidate) {
				summary.Skipped++
				summary.SkippedInputs = append(summary.SkippedInputs,
					fmt.Sprintf("candidate %d (%q / %q): %v", i, rec.Brand, rec.ProductName, err))

				consecutiveFailures++
				if consecutiveFailures >= s.maxConsecutiveFailures {
					summary.Aborted = true
					summary.AbortReason = fmt.Sprintf("%d consecutive candidate failures", consecutiveFailures)
					return decisions, summary, fmt.Errorf("%w: %s", domain.ErrBatchAborted, summary.AbortReason)
				}
				continue
			}
			return decisions, summary, err
		}

		consecutiveFailures = 0
		if warning != nil {
			summary.Warnings = append(summary.Warnings, *warning)
		}

		summary.Count(decision.Type)
		decisions = append(decisions, *decision)
	}

	return decisions, summary, nil
}

// mergeFields computes the fill-gaps-only payload for merging a candidate
// into parent: only fields the parent currently has empty are included,
// keyed by catalog column name. Merging the same candidate twice therefore
// produces the same parent state as merging it once.
func mergeFields(parent *domain.CanonicalProduct, candidate NormalizedCandidate) map[string]any {
	fields := make(map[string]any)
	raw := candidate.Raw

	if parent.Ingredients == "" && raw.Ingredients != "" {
		fields["ingredients"] = raw.Ingredients
	}
	if (parent.Form == "" || parent.Form == domain.FormUnknown) &&
		candidate.Form != "" && candidate.Form != domain.FormUnknown {
		fields["form"] = string(candidate.Form)
	}
	if (parent.LifeStage == "" || parent.LifeStage == domain.LifeStageUnknown) &&
		candidate.LifeStage != "" && candidate.LifeStage != domain.LifeStageUnknown {
		fields["life_stage"] = string(candidate.LifeStage)
	}
	if parent.KcalPer100g == nil && raw.KcalPer100g != nil {
		fields["kcal_per_100g"] = *raw.KcalPer100g
	}
	if parent.ProteinPercent == nil && raw.ProteinPercent != nil {
		fields["protein_percent"] = *raw.ProteinPercent
	}
	if parent.FatPercent == nil && raw.FatPercent != nil {
		fields["fat_percent"] = *raw.FatPercent
	}
	if parent.PricePerKg == nil && raw.PricePerKg != nil {
		fields["price_per_kg"] = *raw.PricePerKg
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// productFromCandidate builds the catalog entry a new_product decision inserts.
func productFromCandidate(candidate NormalizedCandidate) *domain.CanonicalProduct {
	raw := candidate.Raw
	return &domain.CanonicalProduct{
		ProductKey:     candidate.ProductKey,
		Brand:          candidate.Brand,
		BrandSlug:      candidate.BrandSlug,
		ProductName:    raw.ProductName,
		NameSlug:       candidate.NameSlug,
		Form:           candidate.Form,
		LifeStage:      candidate.LifeStage,
		Ingredients:    raw.Ingredients,
		KcalPer100g:    raw.KcalPer100g,
		ProteinPercent: raw.ProteinPercent,
		FatPercent:     raw.FatPercent,
		PricePerKg:     raw.PricePerKg,
	}
}
