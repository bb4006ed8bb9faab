package model

import "time"

type ChangeState string

const (
	ChangeStateOpen   ChangeState = "open"
	ChangeStateMerged ChangeState = "merged"
	ChangeStateClosed ChangeState = "closed"
)

// MergedChange is a merge/pull request snapshot from the external tracker.
type MergedChange struct {
	Number             int64       `json:"number"`
	Project            string      `json:"project"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	State              ChangeState `json:"state"`
	LinkedIssueNumbers []int64     `json:"linked_issue_numbers,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	MergedAt           *time.Time  `json:"merged_at,omitempty"`
}
