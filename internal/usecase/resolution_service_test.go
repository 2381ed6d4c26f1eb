package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/trilu/lupito-catalog/internal/domain"
)

func newTestResolutionService(config ResolutionConfig) *ResolutionService {
	return NewResolutionService(
		NewNormalizer(nil, false),
		NewVariantClassifier(),
		NewCandidateMatcher(MatcherConfig{}),
		config,
	)
}

func resolutionCatalog() []domain.CanonicalProduct {
	kcal := 380.0
	return []domain.CanonicalProduct{
		{
			ProductKey:  "acme|adult_chicken",
			Brand:       "Acme",
			BrandSlug:   "acme",
			ProductName: "Adult Chicken",
			NameSlug:    "adult_chicken",
			KcalPer100g: &kcal,
		},
		{
			ProductKey:  "acme|complete_nutrition_chicken|dry",
			Brand:       "Acme",
			BrandSlug:   "acme",
			ProductName: "Complete Nutrition Chicken",
			NameSlug:    "complete_nutrition_chicken",
			Form:        domain.FormDry,
		},
	}
}

func TestResolveDecisionTable(t *testing.T) {
	idx := BuildCatalogIndex(resolutionCatalog())
	svc := newTestResolutionService(ResolutionConfig{})

	t.Run("exact key hit auto-merges", func(t *testing.T) {
		decision, warning, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "Adult Chicken",
			Ingredients: "chicken, rice",
		}, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionAutoMerge {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionAutoMerge)
		}
		if !decision.ExactKeyMatch || decision.Score != 1.0 {
			t.Errorf("ExactKeyMatch = %v, Score = %v, want true / 1.0", decision.ExactKeyMatch, decision.Score)
		}
		if decision.TargetKey != "acme|adult_chicken" {
			t.Errorf("TargetKey = %q", decision.TargetKey)
		}
		if decision.MergeFields["ingredients"] != "chicken, rice" {
			t.Errorf("MergeFields = %v, want ingredients fill", decision.MergeFields)
		}
		if _, ok := decision.MergeFields["kcal_per_100g"]; ok {
			t.Error("kcal already set on the parent, must not be overwritten")
		}
		if warning != nil {
			t.Errorf("unexpected warning: %+v", warning)
		}
	})

	t.Run("size variant consolidates", func(t *testing.T) {
		decision, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "Complete Nutrition Chicken 12kg",
		}, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionConsolidateVariant {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionConsolidateVariant)
		}
		if decision.TargetKey != "acme|complete_nutrition_chicken|dry" {
			t.Errorf("TargetKey = %q", decision.TargetKey)
		}
		if decision.ExactKeyMatch {
			t.Error("size variant must not be an exact key match")
		}
	})

	t.Run("high fuzzy score auto-merges", func(t *testing.T) {
		// "adult chickens" vs "adult chicken": one edit over 14 runes,
		// ratio ~0.929, above the 0.9 default
		decision, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "Adult Chickens",
		}, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionAutoMerge {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionAutoMerge)
		}
		if decision.ExactKeyMatch {
			t.Error("fuzzy merge must report ExactKeyMatch = false")
		}
		if decision.TargetKey != "acme|adult_chicken" {
			t.Errorf("TargetKey = %q", decision.TargetKey)
		}
	})

	t.Run("no plausible match creates a new product", func(t *testing.T) {
		kcal := 92.0
		decision, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "Venison & Blueberry Stew",
			FormHint:    "wet",
			KcalPer100g: &kcal,
		}, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionNewProduct {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionNewProduct)
		}
		if decision.GeneratedKey != "acme|venison_blueberry_stew|wet" {
			t.Errorf("GeneratedKey = %q", decision.GeneratedKey)
		}
		if decision.NewProduct == nil {
			t.Fatal("NewProduct payload missing")
		}
		if decision.NewProduct.ProductKey != decision.GeneratedKey {
			t.Errorf("NewProduct.ProductKey = %q, want %q", decision.NewProduct.ProductKey, decision.GeneratedKey)
		}
		if decision.NewProduct.Form != domain.FormWet {
			t.Errorf("NewProduct.Form = %q, want wet", decision.NewProduct.Form)
		}
		if decision.NewProduct.KcalPer100g == nil || *decision.NewProduct.KcalPer100g != 92.0 {
			t.Error("NewProduct lost the kcal value")
		}
	})

	t.Run("unknown brand creates a new product", func(t *testing.T) {
		decision, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Nobody Ever",
			ProductName: "Adult Chicken",
		}, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionNewProduct {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionNewProduct)
		}
	})

	t.Run("size token alone cannot rescue a low score", func(t *testing.T) {
		decision, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "Xylophone Quartz 12kg",
		}, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// A pack-size token marks a variant pattern, but consolidation still
		// requires the fuzzy score to clear the minimum threshold.
		if decision.Type != domain.DecisionNewProduct {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionNewProduct)
		}
	})

	t.Run("invalid candidate surfaces the input error", func(t *testing.T) {
		_, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "400g",
		}, idx)
		if !errors.Is(err, domain.ErrInvalidCandidate) {
			t.Errorf("error = %v, want ErrInvalidCandidate", err)
		}
	})

	t.Run("nil snapshot is catalog unavailable", func(t *testing.T) {
		_, _, err := svc.Resolve(context.Background(), domain.RawCandidateRecord{
			Brand:       "Acme",
			ProductName: "Adult Chicken",
		}, nil)
		if !errors.Is(err, domain.ErrCatalogUnavailable) {
			t.Errorf("error = %v, want ErrCatalogUnavailable", err)
		}
	})
}

func TestResolveReviewTiers(t *testing.T) {
	idx := BuildCatalogIndex(resolutionCatalog())
	// "Adult Chickens" scores ~0.929 against "Adult Chicken"; thresholds
	// are raised so that score lands in the review band.
	record := domain.RawCandidateRecord{Brand: "Acme", ProductName: "Adult Chickens"}

	t.Run("upper band needs confirmation", func(t *testing.T) {
		svc := newTestResolutionService(ResolutionConfig{
			AutoMergeThreshold: 0.95,
			ReviewThreshold:    0.92,
			MinimumThreshold:   0.90,
		})
		decision, _, err := svc.Resolve(context.Background(), record, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionReviewQueue {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionReviewQueue)
		}
		if decision.ReviewTier != domain.ReviewTierConfirm {
			t.Errorf("ReviewTier = %q, want %q", decision.ReviewTier, domain.ReviewTierConfirm)
		}
		if decision.BestMatchKey != "acme|adult_chicken" {
			t.Errorf("BestMatchKey = %q", decision.BestMatchKey)
		}
		if decision.TargetKey != "" {
			t.Errorf("review decisions carry no TargetKey, got %q", decision.TargetKey)
		}
	})

	t.Run("lower band needs manual review", func(t *testing.T) {
		svc := newTestResolutionService(ResolutionConfig{
			AutoMergeThreshold: 0.97,
			ReviewThreshold:    0.95,
			MinimumThreshold:   0.90,
		})
		decision, _, err := svc.Resolve(context.Background(), record, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Type != domain.DecisionReviewQueue {
			t.Fatalf("Type = %q, want %q", decision.Type, domain.DecisionReviewQueue)
		}
		if decision.ReviewTier != domain.ReviewTierManual {
			t.Errorf("ReviewTier = %q, want %q", decision.ReviewTier, domain.ReviewTierManual)
		}
	})
}

func TestResolveBatch(t *testing.T) {
	idx := BuildCatalogIndex(resolutionCatalog())
	svc := newTestResolutionService(ResolutionConfig{})

	t.Run("mixed batch accumulates summary", func(t *testing.T) {
		candidates := []domain.RawCandidateRecord{
			{Brand: "Acme", ProductName: "Adult Chicken"},                   // exact key
			{Brand: "Acme", ProductName: "Complete Nutrition Chicken 2kg"}, // variant
			{Brand: "Acme", ProductName: "400g"},                           // invalid, skipped
			{Brand: "Zeta", ProductName: "Kangaroo Bites"},                 // new brand
		}

		decisions, summary, err := svc.ResolveBatch(context.Background(), candidates, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(decisions) != 3 {
			t.Fatalf("got %d decisions, want 3", len(decisions))
		}
		if summary.Total != 4 {
			t.Errorf("Total = %d, want 4", summary.Total)
		}
		if summary.AutoMerged != 1 {
			t.Errorf("AutoMerged = %d, want 1", summary.AutoMerged)
		}
		if summary.Consolidated != 1 {
			t.Errorf("Consolidated = %d, want 1", summary.Consolidated)
		}
		if summary.Created != 1 {
			t.Errorf("Created = %d, want 1", summary.Created)
		}
		if summary.Skipped != 1 {
			t.Errorf("Skipped = %d, want 1", summary.Skipped)
		}
		if len(summary.SkippedInputs) != 1 {
			t.Errorf("SkippedInputs = %v, want one entry", summary.SkippedInputs)
		}
		if summary.Aborted {
			t.Error("batch must not abort on a single bad input")
		}
	})

	t.Run("aborts after consecutive failures", func(t *testing.T) {
		bad := domain.RawCandidateRecord{Brand: "Acme", ProductName: "12kg"}
		candidates := []domain.RawCandidateRecord{bad, bad, bad, bad, bad,
			{Brand: "Acme", ProductName: "Adult Chicken"}}

		decisions, summary, err := svc.ResolveBatch(context.Background(), candidates, idx)
		if !errors.Is(err, domain.ErrBatchAborted) {
			t.Fatalf("error = %v, want ErrBatchAborted", err)
		}
		if !summary.Aborted || summary.AbortReason == "" {
			t.Errorf("summary = %+v, want aborted with a reason", summary)
		}
		if len(decisions) != 0 {
			t.Errorf("got %d decisions, want 0 before the abort", len(decisions))
		}
	})

	t.Run("good input resets the failure streak", func(t *testing.T) {
		bad := domain.RawCandidateRecord{Brand: "Acme", ProductName: "12kg"}
		good := domain.RawCandidateRecord{Brand: "Acme", ProductName: "Adult Chicken"}
		candidates := []domain.RawCandidateRecord{bad, bad, bad, bad, good, bad, bad, good}

		_, summary, err := svc.ResolveBatch(context.Background(), candidates, idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Skipped != 6 {
			t.Errorf("Skipped = %d, want 6", summary.Skipped)
		}
		if summary.Aborted {
			t.Error("streak was broken, batch must not abort")
		}
	})

	t.Run("nil snapshot aborts before any work", func(t *testing.T) {
		_, _, err := svc.ResolveBatch(context.Background(), []domain.RawCandidateRecord{
			{Brand: "Acme", ProductName: "Adult Chicken"},
		}, nil)
		if !errors.Is(err, domain.ErrCatalogUnavailable) {
			t.Errorf("error = %v, want ErrCatalogUnavailable", err)
		}
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := svc.ResolveBatch(ctx, []domain.RawCandidateRecord{
			{Brand: "Acme", ProductName: "Adult Chicken"},
		}, idx)
		if err == nil {
			t.Fatal("expected context error")
		}
	})
}

func TestMergeFields(t *testing.T) {
	kcal := 380.0
	protein := 26.0

	t.Run("fills gaps only", func(t *testing.T) {
		parent := &domain.CanonicalProduct{
			ProductKey:  "acme|adult_chicken",
			Ingredients: "chicken",
			KcalPer100g: &kcal,
		}
		candidate := NormalizedCandidate{
			Form:      domain.FormDry,
			LifeStage: domain.LifeStageAdult,
			Raw: domain.RawCandidateRecord{
				Ingredients:    "chicken, maize",
				ProteinPercent: &protein,
			},
		}

		fields := mergeFields(parent, candidate)
		if _, ok := fields["ingredients"]; ok {
			t.Error("parent ingredients must not be overwritten")
		}
		if _, ok := fields["kcal_per_100g"]; ok {
			t.Error("parent kcal must not be overwritten")
		}
		if fields["form"] != "dry" {
			t.Errorf("form = %v, want dry", fields["form"])
		}
		if fields["life_stage"] != "adult" {
			t.Errorf("life_stage = %v, want adult", fields["life_stage"])
		}
		if fields["protein_percent"] != 26.0 {
			t.Errorf("protein_percent = %v, want 26", fields["protein_percent"])
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		parent := &domain.CanonicalProduct{ProductKey: "acme|adult_chicken"}
		candidate := NormalizedCandidate{
			Form: domain.FormDry,
			Raw:  domain.RawCandidateRecord{Ingredients: "chicken"},
		}

		first := mergeFields(parent, candidate)
		if len(first) != 2 {
			t.Fatalf("first merge = %v, want form and ingredients", first)
		}

		// Apply the merge, then a second pass must find nothing to fill.
		parent.Form = domain.FormDry
		parent.Ingredients = "chicken"
		if second := mergeFields(parent, candidate); second != nil {
			t.Errorf("second merge = %v, want nil", second)
		}
	})

	t.Run("nothing to fill returns nil", func(t *testing.T) {
		parent := &domain.CanonicalProduct{ProductKey: "acme|x"}
		if fields := mergeFields(parent, NormalizedCandidate{}); fields != nil {
			t.Errorf("fields = %v, want nil", fields)
		}
	})
}
