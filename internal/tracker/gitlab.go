package tracker

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"pulsehq.app/pulse/core/config"
	"pulsehq.app/pulse/internal/model"
)

type gitLabTracker struct {
	client    *gitlab.Client
	projectID string
	project   string
}

func NewGitLab(cfg config.TrackerConfig) (Tracker, error) {
	client, err := newClient(cfg.BaseURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &gitLabTracker{
		client:    client,
		projectID: cfg.ProjectID,
		project:   cfg.ProjectID,
	}, nil
}

func newClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

func (t *gitLabTracker) ListIssues(ctx context.Context, since time.Time) ([]model.TrackedIssue, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		UpdatedAfter: &since,
		ListOptions:  gitlab.ListOptions{PerPage: 100},
	}

	var issues []model.TrackedIssue
	for {
		page, resp, err := t.client.Issues.ListProjectIssues(t.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing issues from gitlab: %w", err)
		}

		for _, gi := range page {
			if gi == nil {
				continue
			}
			issues = append(issues, t.mapToIssue(gi))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return issues, nil
}

func (t *gitLabTracker) ListMergedChanges(ctx context.Context, since time.Time) ([]model.MergedChange, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		UpdatedAfter: &since,
		ListOptions:  gitlab.ListOptions{PerPage: 100},
	}

	var changes []model.MergedChange
	for {
		page, resp, err := t.client.MergeRequests.ListProjectMergeRequests(t.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing merge requests from gitlab: %w", err)
		}

		for _, mr := range page {
			if mr == nil {
				continue
			}
			changes = append(changes, t.mapToChange(mr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return changes, nil
}

func (t *gitLabTracker) mapToIssue(gi *gitlab.Issue) model.TrackedIssue {
	var labels []string
	for _, l := range gi.Labels {
		labels = append(labels, l)
	}

	var assignees []string
	for _, a := range gi.Assignees {
		if a != nil {
			assignees = append(assignees, a.Username)
		}
	}

	reactions := map[string]int{}
	if gi.Upvotes > 0 {
		reactions["+1"] = int(gi.Upvotes)
	}
	if gi.Downvotes > 0 {
		reactions["-1"] = int(gi.Downvotes)
	}

	state := model.IssueStateOpen
	if gi.State == "closed" {
		state = model.IssueStateClosed
	}

	issue := model.TrackedIssue{
		Number:    int64(gi.IID),
		Project:   t.project,
		Title:     gi.Title,
		Body:      gi.Description,
		State:     state,
		Labels:    labels,
		Assignees: assignees,
		Reactions: reactions,
	}
	if gi.CreatedAt != nil {
		issue.CreatedAt = *gi.CreatedAt
	}
	if gi.UpdatedAt != nil {
		issue.UpdatedAt = *gi.UpdatedAt
	}
	issue.ClosedAt = gi.ClosedAt

	return issue
}

func (t *gitLabTracker) mapToChange(mr *gitlab.BasicMergeRequest) model.MergedChange {
	state := model.ChangeStateOpen
	switch mr.State {
	case "merged":
		state = model.ChangeStateMerged
	case "closed":
		state = model.ChangeStateClosed
	}

	change := model.MergedChange{
		Number:             int64(mr.IID),
		Project:            t.project,
		Title:              mr.Title,
		Description:        mr.Description,
		State:              state,
		LinkedIssueNumbers: issueRefs(mr.Description),
		MergedAt:           mr.MergedAt,
	}
	if mr.CreatedAt != nil {
		change.CreatedAt = *mr.CreatedAt
	}

	return change
}

var issueRefPattern = regexp.MustCompile(`#(\d+)`)

// issueRefs extracts "#123" style references from a merge request
// description. Duplicates are collapsed, order of first mention kept.
func issueRefs(text string) []int64 {
	matches := issueRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := map[int64]bool{}
	var refs []int64
	for _, m := range matches {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, n)
	}

	return refs
}
