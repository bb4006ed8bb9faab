package model

import (
	"strings"
	"time"
)

// Priority buckets for distilled items. Weights drive the ordering score.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Weight returns the numeric weight used in ordering scores.
func (p Priority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

type DecisionStatus string

// Only DecisionImplemented is currently produced by the extraction pipeline;
// the other statuses are part of the taxonomy for future extraction paths.
const (
	DecisionProposed    DecisionStatus = "proposed"
	DecisionImplemented DecisionStatus = "implemented"
	DecisionReverted    DecisionStatus = "reverted"
)

// Decision is derived from a merged change. Purely computed, never persisted.
type Decision struct {
	What      string         `json:"what"`
	Why       string         `json:"why"`
	When      time.Time      `json:"when"`
	Status    DecisionStatus `json:"status"`
	OpenItems []string       `json:"open_items,omitempty"`
}

// ActiveIssue is a ranked open issue in the distilled context.
type ActiveIssue struct {
	Number        int64    `json:"number"`
	Title         string   `json:"title"`
	Priority      Priority `json:"priority"`
	Labels        []string `json:"labels,omitempty"`
	LinkedThreads int      `json:"linked_threads"`
	Reactions     int      `json:"reactions"`
	Score         int      `json:"score"`
}

// UserSignal is a recurring community theme extracted from groups.
type UserSignal struct {
	Theme   string   `json:"theme"`
	Count   int      `json:"count"`
	Sources []string `json:"sources"`
}

// CodebaseNote points at areas of the codebase worth attention.
type CodebaseNote struct {
	Area     string   `json:"area"`
	Note     string   `json:"note"`
	Files    []string `json:"files,omitempty"`
	Priority Priority `json:"priority"`
}

// RecentActivity summarizes tracker and thread volume inside the lookback window.
type RecentActivity struct {
	IssuesOpened      int    `json:"issues_opened"`
	IssuesClosed      int    `json:"issues_closed"`
	ChangesOpened     int    `json:"changes_opened"`
	ChangesMerged     int    `json:"changes_merged"`
	ThreadsClassified int    `json:"threads_classified"`
	Window            string `json:"window"`
}

type Preferences struct {
	LastSessionScope string `json:"last_session_scope"`
}

// ProjectContext is the terminal distilled artifact. It is recomputed fully
// on every invocation and all bounded lists respect fixed maximum sizes
// (10 issues, 5 signals, 5 notes, 5 decisions).
type ProjectContext struct {
	Project        string         `json:"project"`
	Focus          *string        `json:"focus,omitempty"`
	LastUpdated    time.Time      `json:"last_updated"`
	Decisions      []Decision     `json:"decisions"`
	ActiveIssues   []ActiveIssue  `json:"active_issues"`
	UserSignals    []UserSignal   `json:"user_signals"`
	CodebaseNotes  []CodebaseNote `json:"codebase_notes"`
	RecentActivity RecentActivity `json:"recent_activity"`
	Preferences    Preferences    `json:"preferences"`
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
