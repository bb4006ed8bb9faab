package model

import "time"

type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// TrackedIssue is a read-only snapshot of an issue from the external tracker.
// Labels and Reactions arrive in provider-specific shapes and are normalized
// once by the tracker adapter before they reach any scorer.
type TrackedIssue struct {
	Number          int64          `json:"number"`
	Project         string         `json:"project"`
	Title           string         `json:"title"`
	Body            string         `json:"body,omitempty"`
	State           IssueState     `json:"state"`
	Labels          []string       `json:"labels,omitempty"`
	Assignees       []string       `json:"assignees,omitempty"`
	Reactions       map[string]int `json:"reactions,omitempty"`
	LinkedThreadIDs []string       `json:"linked_thread_ids,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
}

// ReactionTotal sums all reaction counts regardless of emoji.
func (i TrackedIssue) ReactionTotal() int {
	total := 0
	for _, n := range i.Reactions {
		total += n
	}
	return total
}

// HasLabel reports whether any label contains the given substring,
// case-insensitively. Tracker labels are free-form ("bug", "type::bug",
// "Bug Report"), so containment is the useful test.
func (i TrackedIssue) HasLabel(substr string) bool {
	for _, l := range i.Labels {
		if containsFold(l, substr) {
			return true
		}
	}
	return false
}
