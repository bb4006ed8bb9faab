package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsehq.app/pulse/internal/model"
)

type issueStore struct {
	pool *pgxpool.Pool
}

// NewIssueStore creates an IssueStore backed by Postgres.
func NewIssueStore(pool *pgxpool.Pool) IssueStore {
	return &issueStore{pool: pool}
}

func (s *issueStore) Get(ctx context.Context, project string, number int64) (*model.TrackedIssue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT number, project, title, body, state, labels, assignees, reactions,
		        linked_thread_ids, created_at, updated_at, closed_at
		   FROM tracked_issues WHERE project = $1 AND number = $2`, project, number)

	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching issue: %w", err)
	}
	return issue, nil
}

func (s *issueStore) ListOpenSince(ctx context.Context, project string, since time.Time) ([]model.TrackedIssue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT number, project, title, body, state, labels, assignees, reactions,
		        linked_thread_ids, created_at, updated_at, closed_at
		   FROM tracked_issues
		  WHERE project = $1 AND state = 'open' AND created_at > $2
		  ORDER BY created_at DESC`, project, since)
	if err != nil {
		return nil, fmt.Errorf("listing open issues: %w", err)
	}
	defer rows.Close()

	var issues []model.TrackedIssue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

func (s *issueStore) CountOpenedSince(ctx context.Context, project string, since time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM tracked_issues WHERE project = $1 AND created_at > $2`,
		project, since)
}

func (s *issueStore) CountClosedSince(ctx context.Context, project string, since time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM tracked_issues WHERE project = $1 AND state = 'closed' AND closed_at > $2`,
		project, since)
}

func (s *issueStore) Upsert(ctx context.Context, issue *model.TrackedIssue) error {
	reactions, err := json.Marshal(issue.Reactions)
	if err != nil {
		return fmt.Errorf("encoding reactions: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tracked_issues
		        (number, project, title, body, state, labels, assignees, reactions,
		         linked_thread_ids, created_at, updated_at, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (project, number) DO UPDATE
		    SET title = EXCLUDED.title,
		        body = EXCLUDED.body,
		        state = EXCLUDED.state,
		        labels = EXCLUDED.labels,
		        assignees = EXCLUDED.assignees,
		        reactions = EXCLUDED.reactions,
		        linked_thread_ids = EXCLUDED.linked_thread_ids,
		        updated_at = EXCLUDED.updated_at,
		        closed_at = EXCLUDED.closed_at`,
		issue.Number, issue.Project, issue.Title, issue.Body, issue.State,
		issue.Labels, issue.Assignees, reactions, issue.LinkedThreadIDs,
		issue.CreatedAt, issue.UpdatedAt, issue.ClosedAt)
	if err != nil {
		return fmt.Errorf("upserting issue: %w", err)
	}
	return nil
}

func (s *issueStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting issues: %w", err)
	}
	return count, nil
}

func scanIssue(row pgx.Row) (*model.TrackedIssue, error) {
	var (
		issue     model.TrackedIssue
		reactions []byte
	)
	if err := row.Scan(&issue.Number, &issue.Project, &issue.Title, &issue.Body, &issue.State,
		&issue.Labels, &issue.Assignees, &reactions, &issue.LinkedThreadIDs,
		&issue.CreatedAt, &issue.UpdatedAt, &issue.ClosedAt); err != nil {
		return nil, err
	}
	// Reactions arrive as an opaque mapping; validated here at the boundary,
	// never inside the scorers.
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &issue.Reactions); err != nil {
			return nil, fmt.Errorf("decoding reactions: %w", err)
		}
	}
	return &issue, nil
}
