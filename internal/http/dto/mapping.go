package dto

import "pulsehq.app/pulse/internal/model"

type MapFeaturesRequest struct {
	Project  string   `json:"project" binding:"required"`
	GroupIDs []string `json:"group_ids" binding:"required,min=1"`
	Async    bool     `json:"async,omitempty"`
}

type MapFeaturesResponse struct {
	Groups   []GroupAssignment `json:"groups,omitempty"`
	Skipped  []string          `json:"skipped,omitempty"`
	Enqueued bool              `json:"enqueued"`
}

type GroupAssignment struct {
	GroupID         string             `json:"group_id"`
	AffectsFeatures []model.FeatureRef `json:"affects_features"`
	IsCrossCutting  bool               `json:"is_cross_cutting"`
}
