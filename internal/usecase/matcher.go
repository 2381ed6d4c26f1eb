package usecase

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/trilu/lupito-catalog/internal/domain"
)

// Default scoring knobs. All overridable through MatcherConfig.
const (
	defaultFormBonus      = 1.1  // same-form multiplier, capped at 1.0
	defaultAmbiguityDelta = 0.02 // runner-up within this delta triggers a warning
)

// CatalogIndex is an immutable snapshot of the catalog, prepared for
// matching: an exact-key map plus brand-slug buckets. It is built once per
// batch and read-only afterwards, so concurrent matching over independent
// candidates is safe.
type CatalogIndex struct {
	byKey   map[string]*domain.CanonicalProduct
	byBrand map[string][]*domain.CanonicalProduct
	builtAt time.Time
}

// BuildCatalogIndex indexes a catalog snapshot. Buckets are sorted by
// product key so iteration order, and therefore tie-breaking, is
// deterministic run to run.
func BuildCatalogIndex(products []domain.CanonicalProduct) *CatalogIndex {
	idx := &CatalogIndex{
		byKey:   make(map[string]*domain.CanonicalProduct, len(products)),
		byBrand: make(map[string][]*domain.CanonicalProduct),
		builtAt: time.Now(),
	}

	for i := range products {
		p := &products[i]
		if _, exists := idx.byKey[p.ProductKey]; exists {
			// Keys are unique in the catalog; keep first on dirty data
			continue
		}
		idx.byKey[p.ProductKey] = p
		idx.byBrand[p.BrandSlug] = append(idx.byBrand[p.BrandSlug], p)
	}

	for slug := range idx.byBrand {
		bucket := idx.byBrand[slug]
		sort.Slice(bucket, func(a, b int) bool {
			return bucket[a].ProductKey < bucket[b].ProductKey
		})
	}

	return idx
}

// Lookup returns the entry with the given product key, if any.
func (idx *CatalogIndex) Lookup(productKey string) (*domain.CanonicalProduct, bool) {
	p, ok := idx.byKey[productKey]
	return p, ok
}

// BrandBucket returns the entries sharing a brand slug.
func (idx *CatalogIndex) BrandBucket(brandSlug string) []*domain.CanonicalProduct {
	return idx.byBrand[brandSlug]
}

// Size returns the number of indexed entries.
func (idx *CatalogIndex) Size() int { return len(idx.byKey) }

// BrandCount returns the number of brand buckets.
func (idx *CatalogIndex) BrandCount() int { return len(idx.byBrand) }

// BuiltAt returns when this snapshot was indexed.
func (idx *CatalogIndex) BuiltAt() time.Time { return idx.builtAt }

// MatcherConfig holds configuration for the candidate matcher.
type MatcherConfig struct {
	FormBonus          float64
	AmbiguityDelta     float64
	EnableDebugLogging bool
}

// CandidateMatcher locates the best existing catalog entry for a
// normalized candidate: exact-key lookup first, then fuzzy scoring scoped
// to the candidate's brand bucket.
type CandidateMatcher struct {
	formBonus          float64
	ambiguityDelta     float64
	enableDebugLogging bool
}

// NewCandidateMatcher creates a matcher with the given configuration.
func NewCandidateMatcher(config MatcherConfig) *CandidateMatcher {
	formBonus := config.FormBonus
	if formBonus <= 0 {
		formBonus = defaultFormBonus
	}

	delta := config.AmbiguityDelta
	if delta <= 0 {
		delta = defaultAmbiguityDelta
	}

	return &CandidateMatcher{
		formBonus:          formBonus,
		ambiguityDelta:     delta,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Match finds the best catalog entry for the candidate.
//
// The exact-key path short-circuits everything: a key hit is the
// zero-ambiguity case and always scores 1.0 regardless of name text.
// Otherwise every entry in the candidate's brand bucket is scored with a
// normalized edit ratio over the cleaned names, with a same-form bonus.
// First-seen entry wins exact score ties (buckets iterate in sorted key
// order). A non-nil AmbiguityWarning is returned when the runner-up lands
// within the ambiguity delta; it never blocks the result.
func (m *CandidateMatcher) Match(
	ctx context.Context,
	candidate NormalizedCandidate,
	idx *CatalogIndex,
) (domain.MatchResult, *domain.AmbiguityWarning, error) {
	if entry, ok := idx.Lookup(candidate.ProductKey); ok {
		if m.enableDebugLogging {
			log.Printf("[MATCH] exact key hit: %q", candidate.ProductKey)
		}
		return domain.MatchResult{BestMatch: entry, Score: 1.0, ExactKeyMatch: true}, nil, nil
	}

	bucket := idx.BrandBucket(candidate.BrandSlug)
	bucketSlug := candidate.BrandSlug
	if len(bucket) == 0 {
		// Fall back to the raw brand string in case alias resolution
		// moved the candidate out of the bucket its source used
		bucketSlug = Slugify(candidate.Raw.Brand)
		bucket = idx.BrandBucket(bucketSlug)
	}
	if len(bucket) == 0 {
		return domain.MatchResult{Score: 0.0}, nil, nil
	}

	var best, runnerUp *domain.CanonicalProduct
	bestScore, runnerUpScore := -1.0, -1.0

	for _, entry := range bucket {
		select {
		case <-ctx.Done():
			return domain.MatchResult{}, nil, ctx.Err()
		default:
		}

		score := similarityRatio(candidate.CleanName, CleanNameForMatching(entry.ProductName))

		if candidate.Form != "" && candidate.Form != domain.FormUnknown && candidate.Form == entry.Form {
			score *= m.formBonus
			if score > 1.0 {
				score = 1.0
			}
		}

		if m.enableDebugLogging {
			log.Printf("[MATCH] %q vs %q = %.3f", candidate.CleanName, entry.ProductName, score)
		}

		if score > bestScore {
			runnerUp, runnerUpScore = best, bestScore
			best, bestScore = entry, score
		} else if score > runnerUpScore {
			runnerUp, runnerUpScore = entry, score
		}
	}

	var warning *domain.AmbiguityWarning
	if best != nil && runnerUp != nil && bestScore-runnerUpScore < m.ambiguityDelta {
		warning = &domain.AmbiguityWarning{
			CandidateName: candidate.Raw.ProductName,
			BrandSlug:     bucketSlug,
			FirstKey:      best.ProductKey,
			SecondKey:     runnerUp.ProductKey,
			Delta:         bestScore - runnerUpScore,
		}
	}

	if bestScore < 0 {
		bestScore = 0
	}
	return domain.MatchResult{BestMatch: best, Score: bestScore, ExactKeyMatch: false}, warning, nil
}

// similarityRatio is a normalized edit metric in [0,1]:
// 1 - levenshtein(a,b)/max(len(a),len(b)).
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}

	return 1.0 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
