package distiller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pulsehq.app/pulse/internal/model"
)

func (d *Distiller) decisions(ctx context.Context, params Params, cutoff time.Time) ([]model.Decision, error) {
	changes, err := d.stores.Changes.ListMergedSince(ctx, params.Project, cutoff)
	if err != nil {
		return nil, err
	}

	var filtered []model.MergedChange
	for _, c := range changes {
		if params.Scope != nil && !matchesScope(*params.Scope, c.Title, c.Description) {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return decisionTime(filtered[i]).After(decisionTime(filtered[j]))
	})
	if len(filtered) > MaxDecisions {
		filtered = filtered[:MaxDecisions]
	}

	decisions := make([]model.Decision, 0, len(filtered))
	for _, c := range filtered {
		openItems := d.openLinkedIssues(ctx, params.Project, c.LinkedIssueNumbers)
		decisions = append(decisions, DecisionFromChange(c, openItems))
	}
	return decisions, nil
}

// DecisionFromChange derives a Decision from one merged change. Extraction
// from merges only ever yields status "implemented"; the proposed and
// reverted statuses exist in the taxonomy for future extraction paths.
func DecisionFromChange(c model.MergedChange, openItems []string) model.Decision {
	why := "Direct improvement"
	if len(c.LinkedIssueNumbers) > 0 {
		refs := make([]string, len(c.LinkedIssueNumbers))
		for i, n := range c.LinkedIssueNumbers {
			refs[i] = fmt.Sprintf("#%d", n)
		}
		why = "Addresses " + strings.Join(refs, ", ")
	}

	return model.Decision{
		What:      c.Title,
		Why:       why,
		When:      decisionTime(c),
		Status:    model.DecisionImplemented,
		OpenItems: openItems,
	}
}

// openLinkedIssues reports which linked issues are still open. Lookup
// failures drop the item rather than failing the section: absence of data
// is the default case for optional relations.
func (d *Distiller) openLinkedIssues(ctx context.Context, project string, numbers []int64) []string {
	var open []string
	for _, n := range numbers {
		issue, err := d.stores.Issues.Get(ctx, project, n)
		if err != nil {
			continue
		}
		if issue.State == model.IssueStateOpen {
			open = append(open, fmt.Sprintf("#%d: %s", issue.Number, issue.Title))
		}
	}
	return open
}

func decisionTime(c model.MergedChange) time.Time {
	if c.MergedAt != nil {
		return *c.MergedAt
	}
	return c.CreatedAt
}
