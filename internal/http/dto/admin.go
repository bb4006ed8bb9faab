package dto

type SyncRequest struct {
	Project string `json:"project" binding:"required"`
	Async   bool   `json:"async,omitempty"`
}

type SyncResponse struct {
	Issues   int  `json:"issues"`
	Changes  int  `json:"changes"`
	Enqueued bool `json:"enqueued"`
}

type ExtractFeaturesRequest struct {
	Project string `json:"project" binding:"required"`
}

type FeatureResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     *string  `json:"description,omitempty"`
	RelatedKeywords []string `json:"related_keywords,omitempty"`
}

type ExtractFeaturesResponse struct {
	Features []FeatureResponse `json:"features"`
}
