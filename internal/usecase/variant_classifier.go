package usecase

import (
	"sort"
	"strings"

	"github.com/trilu/lupito-catalog/internal/domain"
)

// lifeStageKeywords mark a formulation boundary: "puppy" kibble is not a
// pack-size variant of "adult" kibble.
var lifeStageKeywords = map[string]bool{
	"puppy":  true,
	"junior": true,
	"adult":  true,
	"senior": true,
	"mature": true,
}

// breedSizeKeywords likewise: "large breed" is a distinct recipe.
var breedSizeKeywords = map[string]bool{
	"small":  true,
	"medium": true,
	"large":  true,
	"mini":   true,
	"maxi":   true,
	"giant":  true,
	"toy":    true,
}

// VariantClassifier decides whether a near-duplicate name is the same
// product in a different pack size or a genuinely different product.
type VariantClassifier struct{}

// NewVariantClassifier creates a variant classifier.
func NewVariantClassifier() *VariantClassifier {
	return &VariantClassifier{}
}

// Classify runs the four independent token checks over a single product
// name. ShouldConsolidate here is the standalone rule: size/pack token
// present and no life-stage or breed-size qualifier at all.
func (c *VariantClassifier) Classify(productName string) domain.VariantInfo {
	info := domain.VariantInfo{
		HasSizeToken: sizeTokenRegex.MatchString(productName),
		HasPackToken: packTokenRegex.MatchString(productName),
	}

	stages, breeds := qualifierTokens(productName)
	info.HasLifeStageToken = len(stages) > 0
	info.HasBreedSizeToken = len(breeds) > 0

	info.ShouldConsolidate = (info.HasSizeToken || info.HasPackToken) &&
		!(info.HasLifeStageToken || info.HasBreedSizeToken)

	return info
}

// ClassifyPair compares a candidate name against a catalog parent name.
// Size/pack flags report tokens in either name; the life-stage and
// breed-size flags report qualifiers that DIFFER between the two names.
//
// ShouldConsolidate is therefore true exactly when the names differ by
// pack size alone: "Adult 12kg" vs "Adult 3kg" consolidates (same stage on
// both sides), while "Puppy" vs "Adult" never does, no matter how similar
// the rest of the name is.
func (c *VariantClassifier) ClassifyPair(candidateName, parentName string) domain.VariantInfo {
	info := domain.VariantInfo{
		HasSizeToken: sizeTokenRegex.MatchString(candidateName) || sizeTokenRegex.MatchString(parentName),
		HasPackToken: packTokenRegex.MatchString(candidateName) || packTokenRegex.MatchString(parentName),
	}

	candStages, candBreeds := qualifierTokens(candidateName)
	parentStages, parentBreeds := qualifierTokens(parentName)

	info.HasLifeStageToken = !sameTokenSet(candStages, parentStages)
	info.HasBreedSizeToken = !sameTokenSet(candBreeds, parentBreeds)

	info.ShouldConsolidate = (info.HasSizeToken || info.HasPackToken) &&
		!(info.HasLifeStageToken || info.HasBreedSizeToken)

	return info
}

// qualifierTokens extracts the sorted life-stage and breed-size keyword
// sets from a product name.
func qualifierTokens(name string) (stages, breeds []string) {
	seen := map[string]bool{}
	for _, word := range strings.Fields(strings.ToLower(name)) {
		word = strings.Trim(word, ",.()-/")
		if seen[word] {
			continue
		}
		seen[word] = true
		if lifeStageKeywords[word] {
			stages = append(stages, word)
		}
		if breedSizeKeywords[word] {
			breeds = append(breeds, word)
		}
	}
	sort.Strings(stages)
	sort.Strings(breeds)
	return stages, breeds
}

func sameTokenSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
