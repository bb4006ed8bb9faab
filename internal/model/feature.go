package model

import "time"

// GeneralFeatureID is the sentinel feature assigned to groups that match
// nothing in the catalog. A group's AffectsFeatures is never empty.
const GeneralFeatureID = "general"

// Feature is a catalog entry representing a product capability. The catalog
// is produced by the extractor and is read-only to the mapper and distiller.
type Feature struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	RelatedKeywords []string  `json:"related_keywords,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FeatureRef is the lightweight feature handle attached to groups.
type FeatureRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GeneralFeature returns the sentinel ref for unmatched groups.
func GeneralFeature() FeatureRef {
	return FeatureRef{ID: GeneralFeatureID, Name: "General"}
}

// CodeMapping links a feature to a location in the codebase.
type CodeMapping struct {
	ID        int64     `json:"id"`
	FeatureID string    `json:"feature_id"`
	Path      string    `json:"path"`
	Symbol    *string   `json:"symbol,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
