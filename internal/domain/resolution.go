package domain

// MatchResult is the output of the candidate matcher.
// BestMatch is a read-only reference into the catalog snapshot; the matcher
// never owns or mutates catalog entries.
type MatchResult struct {
	BestMatch     *CanonicalProduct `json:"bestMatch,omitempty"`
	Score         float64           `json:"score"`
	ExactKeyMatch bool              `json:"exactKeyMatch"`
}

// VariantInfo is the output of the variant classifier.
type VariantInfo struct {
	HasSizeToken      bool `json:"hasSizeToken"`
	HasPackToken      bool `json:"hasPackToken"`
	HasLifeStageToken bool `json:"hasLifeStageToken"`
	HasBreedSizeToken bool `json:"hasBreedSizeToken"`

	// ShouldConsolidate is true only when a size/pack token is present and
	// no life-stage or breed-size token is. A size difference alone means
	// the same product; a life-stage or breed-size qualifier means a
	// distinct formulation.
	ShouldConsolidate bool `json:"shouldConsolidate"`
}

// DecisionType tags a ResolutionDecision.
type DecisionType string

const (
	DecisionAutoMerge          DecisionType = "auto_merge"
	DecisionConsolidateVariant DecisionType = "consolidate_variant"
	DecisionReviewQueue        DecisionType = "review_queue"
	DecisionNewProduct         DecisionType = "new_product"
)

// Review tiers for DecisionReviewQueue. Scores in [review, auto_merge) need
// a confirmation click; scores in [minimum, review) need a full manual look.
const (
	ReviewTierConfirm = "needs_confirmation"
	ReviewTierManual  = "manual_required"
)

// ResolutionDecision is one actionable outcome per candidate. Consumers
// switch on Type; the remaining fields are populated per variant:
//
//	auto_merge:          TargetKey, MergeFields
//	consolidate_variant: TargetKey, MergeFields
//	review_queue:        BestMatchKey, Score, ReviewTier
//	new_product:         GeneratedKey, NewProduct
type ResolutionDecision struct {
	Type      DecisionType       `json:"type"`
	Candidate RawCandidateRecord `json:"candidate"`

	TargetKey    string `json:"targetKey,omitempty"`
	BestMatchKey string `json:"bestMatchKey,omitempty"`
	GeneratedKey string `json:"generatedKey,omitempty"`

	Score         float64 `json:"score"`
	ExactKeyMatch bool    `json:"exactKeyMatch"`
	ReviewTier    string  `json:"reviewTier,omitempty"`

	// MergeFields carries the fill-gaps-only payload for merge decisions:
	// only fields the parent currently has empty, keyed by column name.
	MergeFields map[string]any `json:"mergeFields,omitempty"`

	// NewProduct is the fully normalized entry to insert for new_product.
	NewProduct *CanonicalProduct `json:"newProduct,omitempty"`
}

// AmbiguityWarning is emitted when two catalog entries in the same brand
// bucket score within a negligible delta of each other. It never blocks a
// decision; the first-seen entry still wins.
type AmbiguityWarning struct {
	CandidateName string  `json:"candidateName"`
	BrandSlug     string  `json:"brandSlug"`
	FirstKey      string  `json:"firstKey"`
	SecondKey     string  `json:"secondKey"`
	Delta         float64 `json:"delta"`
}

// BatchSummary reports what a batch run did. A batch never finishes
// silently partial: skips, warnings and aborts are all accounted for here.
type BatchSummary struct {
	Total        int `json:"total"`
	AutoMerged   int `json:"autoMerged"`
	Consolidated int `json:"consolidated"`
	Queued       int `json:"queued"`
	Created      int `json:"created"`
	Skipped      int `json:"skipped"`
	Applied      int `json:"applied"`

	Warnings      []AmbiguityWarning `json:"warnings,omitempty"`
	SkippedInputs []string           `json:"skippedInputs,omitempty"`

	Aborted     bool   `json:"aborted"`
	AbortReason string `json:"abortReason,omitempty"`
}

// Count increments the per-decision counter for d.
func (s *BatchSummary) Count(d DecisionType) {
	switch d {
	case DecisionAutoMerge:
		s.AutoMerged++
	case DecisionConsolidateVariant:
		s.Consolidated++
	case DecisionReviewQueue:
		s.Queued++
	case DecisionNewProduct:
		s.Created++
	}
}
