package distiller

import (
	"context"
	"sort"
	"time"

	"pulsehq.app/pulse/internal/model"
)

// Priority decision table weights. Score = weight*10 + threads*3 + reactions.
const (
	priorityWeightFactor = 10
	threadScoreFactor    = 3

	bugThreadThreshold    = 3
	bugReactionThreshold  = 5
	linkedThreadThreshold = 2
)

func (d *Distiller) activeIssues(ctx context.Context, params Params, cutoff time.Time) ([]model.ActiveIssue, error) {
	candidates, err := d.stores.Issues.ListOpenSince(ctx, params.Project, cutoff)
	if err != nil {
		return nil, err
	}
	return RankIssues(candidates, params.Scope), nil
}

// RankIssues applies the priority decision table and ordering score to open
// issues, optionally filtered by scope, and returns the top candidates.
func RankIssues(issues []model.TrackedIssue, scope *string) []model.ActiveIssue {
	var ranked []model.ActiveIssue
	for _, issue := range issues {
		if scope != nil && !issueMatchesScope(issue, *scope) {
			continue
		}
		priority := ClassifyIssue(issue)
		threads := len(issue.LinkedThreadIDs)
		reactions := issue.ReactionTotal()
		ranked = append(ranked, model.ActiveIssue{
			Number:        issue.Number,
			Title:         issue.Title,
			Priority:      priority,
			Labels:        issue.Labels,
			LinkedThreads: threads,
			Reactions:     reactions,
			Score:         priority.Weight()*priorityWeightFactor + threads*threadScoreFactor + reactions,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Number < ranked[j].Number
	})

	if len(ranked) > MaxActiveIssues {
		ranked = ranked[:MaxActiveIssues]
	}
	return ranked
}

// ClassifyIssue evaluates the fixed priority decision table in order;
// the first matching rule wins.
func ClassifyIssue(issue model.TrackedIssue) model.Priority {
	threads := len(issue.LinkedThreadIDs)
	reactions := issue.ReactionTotal()
	bug := issue.HasLabel("bug")

	switch {
	case issue.HasLabel("security") || issue.HasLabel("regression"):
		return model.PriorityCritical
	case bug && (threads >= bugThreadThreshold || reactions >= bugReactionThreshold):
		return model.PriorityHigh
	case bug || threads >= linkedThreadThreshold:
		return model.PriorityHigh
	case len(issue.Assignees) > 0 || len(issue.Labels) > 0:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func issueMatchesScope(issue model.TrackedIssue, scope string) bool {
	if matchesScope(scope, issue.Title, issue.Body) {
		return true
	}
	return matchesScope(scope, issue.Labels...)
}
