package usecase

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/trilu/lupito-catalog/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	// Matches weight/volume tokens like "12kg", "3 x 400 g" handles the
	// multiplier separately, "85g", "12.5 lb", "400ml"
	sizeTokenRegex = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:kg|g|lbs?|oz|ml|l)\b`)

	// Matches multipack tokens like "6 x 400g", "12x85 g", "4 x 100"
	packTokenRegex = regexp.MustCompile(`(?i)\b\d+\s*x\s*\d+(?:[.,]\d+)?\s*(?:kg|g|lbs?|oz|ml|l)?\b`)

	// Any run of non-alphanumerics collapses to a single underscore in slugs
	slugSeparatorRegex = regexp.MustCompile(`[^a-z0-9]+`)

	// Whitespace cleanup for display/matching text
	multiSpaceRegex = regexp.MustCompile(`\s+`)
)

// maxNameSlugLen bounds name slugs so product keys stay manageable.
const maxNameSlugLen = 100

// NormalizedCandidate is a raw record after identity normalization, ready
// for matching. CleanName keeps word boundaries for similarity scoring;
// the slugs feed key generation.
type NormalizedCandidate struct {
	Brand     string
	BrandSlug string
	NameSlug  string
	CleanName string
	Form      domain.Form
	LifeStage domain.LifeStage

	ProductKey string

	Raw domain.RawCandidateRecord
}

// Normalizer turns raw brand/product strings into deterministic identity.
// All its outputs are pure functions of the input and the alias map.
type Normalizer struct {
	aliasMap           map[string]string
	enableDebugLogging bool
}

// NewNormalizer creates a normalizer. aliasMap maps lowercased brand
// aliases to canonical display names; a nil map is fine, alias resolution
// is then simply skipped.
func NewNormalizer(aliasMap map[string]string, enableDebugLogging bool) *Normalizer {
	return &Normalizer{
		aliasMap:           aliasMap,
		enableDebugLogging: enableDebugLogging,
	}
}

// NormalizeBrand resolves a raw brand string to (canonical display name,
// brand slug). Unknown brands are title-cased as-is. Empty input returns
// the ("Unknown", "unknown") sentinel.
func (n *Normalizer) NormalizeBrand(raw string) (string, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "Unknown", "unknown"
	}

	if canonical, ok := n.aliasMap[strings.ToLower(trimmed)]; ok {
		return canonical, Slugify(canonical)
	}

	return titleCase(trimmed), Slugify(trimmed)
}

// NormalizeProductName strips size and pack tokens from a raw product name
// and slugs the remainder, truncated to maxNameSlugLen.
func (n *Normalizer) NormalizeProductName(raw string) string {
	// Pack tokens first so "3 x 400g" is removed whole, not left as "3 x"
	name := packTokenRegex.ReplaceAllString(raw, " ")
	name = sizeTokenRegex.ReplaceAllString(name, " ")

	slug := Slugify(name)
	if len(slug) > maxNameSlugLen {
		slug = strings.Trim(slug[:maxNameSlugLen], "_")
	}

	if n.enableDebugLogging {
		log.Printf("[NORMALIZE] %q -> %q", raw, slug)
	}

	return slug
}

// NormalizeCandidate runs full identity normalization over a raw record.
// Returns ErrInvalidCandidate when no usable product name survives.
func (n *Normalizer) NormalizeCandidate(rec domain.RawCandidateRecord) (NormalizedCandidate, error) {
	brand, brandSlug := n.NormalizeBrand(rec.Brand)
	nameSlug := n.NormalizeProductName(rec.ProductName)
	if nameSlug == "" {
		return NormalizedCandidate{}, domain.ErrInvalidCandidate
	}

	form := domain.ParseForm(rec.FormHint)

	return NormalizedCandidate{
		Brand:      brand,
		BrandSlug:  brandSlug,
		NameSlug:   nameSlug,
		CleanName:  CleanNameForMatching(rec.ProductName),
		Form:       form,
		LifeStage:  domain.ParseLifeStage(rec.LifeStageHint),
		ProductKey: GenerateProductKey(brandSlug, nameSlug, form),
		Raw:        rec,
	}, nil
}

// GenerateProductKey joins identity slugs into the catalog key. The form
// segment is only appended when known. Pure: identical inputs always
// produce the identical key, which exact-key matching relies on.
func GenerateProductKey(brandSlug, nameSlug string, form domain.Form) string {
	key := brandSlug + "|" + nameSlug
	if form != "" && form != domain.FormUnknown {
		key += "|" + string(form)
	}
	return key
}

// Slugify lowercases s, collapses every run of non-alphanumerics into a
// single underscore and strips leading/trailing underscores.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugSeparatorRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// CleanNameForMatching strips size/pack noise but keeps word boundaries,
// producing the text the fuzzy scorer compares.
func CleanNameForMatching(name string) string {
	cleaned := packTokenRegex.ReplaceAllString(name, " ")
	cleaned = sizeTokenRegex.ReplaceAllString(cleaned, " ")
	cleaned = strings.ToLower(cleaned)
	cleaned = multiSpaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// titleCase capitalizes the first letter of each word. strings.Title is
// deprecated and we only need ASCII-ish brand display names here.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
