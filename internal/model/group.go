package model

import "time"

// ThreadSource identifies where a discussion thread originated.
type ThreadSource string

const (
	ThreadSourceDiscord ThreadSource = "discord"
	ThreadSourceTracker ThreadSource = "tracker"
)

// Thread is a single discussion thread or signal that belongs to a group.
type Thread struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Source    ThreadSource `json:"source"`
	Resolved  bool         `json:"resolved"`
	CreatedAt time.Time    `json:"created_at"`
}

// Group is a pre-formed cluster of related discussion threads, optionally
// linked to one tracked issue. Clustering happens upstream; the mapper only
// attaches AffectsFeatures and IsCrossCutting.
type Group struct {
	ID                string       `json:"id"`
	Project           string       `json:"project"`
	SuggestedTitle    *string      `json:"suggested_title,omitempty"`
	LinkedIssueNumber *int64       `json:"linked_issue_number,omitempty"`
	LinkedIssueTitle  *string      `json:"linked_issue_title,omitempty"`
	Members           []Thread     `json:"members,omitempty"`
	Confidence        float64      `json:"confidence"`
	AffectsFeatures   []FeatureRef `json:"affects_features,omitempty"`
	IsCrossCutting    bool         `json:"is_cross_cutting"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Sources reports the distinct origins contributing to this group.
func (g Group) Sources() []string {
	sources := []string{string(ThreadSourceDiscord)}
	if g.LinkedIssueNumber != nil {
		sources = append(sources, string(ThreadSourceTracker))
	}
	return sources
}
