package domain

import (
	"strings"
	"time"
)

// Form is the physical format of a food product.
type Form string

const (
	FormDry         Form = "dry"
	FormWet         Form = "wet"
	FormRaw         Form = "raw"
	FormTreat       Form = "treat"
	FormFreezeDried Form = "freeze_dried"
	FormUnknown     Form = "unknown"
)

// ParseForm maps a free-text form hint to a Form. Unrecognised input maps to FormUnknown.
func ParseForm(s string) Form {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dry", "kibble":
		return FormDry
	case "wet", "can", "canned", "pouch":
		return FormWet
	case "raw":
		return FormRaw
	case "treat", "treats", "snack":
		return FormTreat
	case "freeze_dried", "freeze-dried", "freeze dried":
		return FormFreezeDried
	default:
		return FormUnknown
	}
}

// LifeStage is the target life stage of a food product.
type LifeStage string

const (
	LifeStagePuppy   LifeStage = "puppy"
	LifeStageAdult   LifeStage = "adult"
	LifeStageSenior  LifeStage = "senior"
	LifeStageAll     LifeStage = "all"
	LifeStageUnknown LifeStage = "unknown"
)

// ParseLifeStage maps a free-text life-stage hint to a LifeStage.
func ParseLifeStage(s string) LifeStage {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "puppy", "junior":
		return LifeStagePuppy
	case "adult", "mature":
		return LifeStageAdult
	case "senior":
		return LifeStageSenior
	case "all", "all_stages", "all stages":
		return LifeStageAll
	default:
		return LifeStageUnknown
	}
}

// CanonicalProduct is one entry of the deduplicated catalog.
// ProductKey is unique within the catalog and has the format
// "brand_slug|name_slug" or "brand_slug|name_slug|form".
type CanonicalProduct struct {
	ProductKey  string    `json:"productKey"`
	Brand       string    `json:"brand"`
	BrandSlug   string    `json:"brandSlug"`
	ProductName string    `json:"productName"`
	NameSlug    string    `json:"nameSlug"`
	Form        Form      `json:"form"`
	LifeStage   LifeStage `json:"lifeStage"`

	// Enrichment fields. Numeric fields are pointers so "not yet known"
	// is distinguishable from a real zero.
	Ingredients    string   `json:"ingredients,omitempty"`
	KcalPer100g    *float64 `json:"kcalPer100g,omitempty"`
	ProteinPercent *float64 `json:"proteinPercent,omitempty"`
	FatPercent     *float64 `json:"fatPercent,omitempty"`
	PricePerKg     *float64 `json:"pricePerKg,omitempty"`

	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// RawCandidateRecord is one incoming record before identity resolution.
// It only lives for the duration of a single import run.
type RawCandidateRecord struct {
	Brand       string `json:"brand"`
	ProductName string `json:"productName"`
	URL         string `json:"url,omitempty"`

	// Optional hints from the source feed.
	FormHint      string `json:"form,omitempty"`
	LifeStageHint string `json:"lifeStage,omitempty"`

	Ingredients    string   `json:"ingredients,omitempty"`
	KcalPer100g    *float64 `json:"kcalPer100g,omitempty"`
	ProteinPercent *float64 `json:"proteinPercent,omitempty"`
	FatPercent     *float64 `json:"fatPercent,omitempty"`
	PricePerKg     *float64 `json:"pricePerKg,omitempty"`
}
