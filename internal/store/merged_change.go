package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pulsehq.app/pulse/internal/model"
)

type changeStore struct {
	pool *pgxpool.Pool
}

// NewChangeStore creates a ChangeStore backed by Postgres.
func NewChangeStore(pool *pgxpool.Pool) ChangeStore {
	return &changeStore{pool: pool}
}

func (s *changeStore) ListMergedSince(ctx context.Context, project string, since time.Time) ([]model.MergedChange, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT number, project, title, description, state, linked_issue_numbers, created_at, merged_at
		   FROM merged_changes
		  WHERE project = $1 AND state = 'merged' AND created_at > $2
		  ORDER BY created_at DESC`, project, since)
	if err != nil {
		return nil, fmt.Errorf("listing merged changes: %w", err)
	}
	defer rows.Close()

	var changes []model.MergedChange
	for rows.Next() {
		var c model.MergedChange
		if err := rows.Scan(&c.Number, &c.Project, &c.Title, &c.Description, &c.State,
			&c.LinkedIssueNumbers, &c.CreatedAt, &c.MergedAt); err != nil {
			return nil, fmt.Errorf("scanning merged change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (s *changeStore) CountOpenedSince(ctx context.Context, project string, since time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM merged_changes WHERE project = $1 AND created_at > $2`,
		project, since)
}

func (s *changeStore) CountMergedSince(ctx context.Context, project string, since time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM merged_changes WHERE project = $1 AND state = 'merged' AND merged_at > $2`,
		project, since)
}

func (s *changeStore) Upsert(ctx context.Context, change *model.MergedChange) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO merged_changes
		        (number, project, title, description, state, linked_issue_numbers, created_at, merged_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (project, number) DO UPDATE
		    SET title = EXCLUDED.title,
		        description = EXCLUDED.description,
		        state = EXCLUDED.state,
		        linked_issue_numbers = EXCLUDED.linked_issue_numbers,
		        merged_at = EXCLUDED.merged_at`,
		change.Number, change.Project, change.Title, change.Description, change.State,
		change.LinkedIssueNumbers, change.CreatedAt, change.MergedAt)
	if err != nil {
		return fmt.Errorf("upserting merged change: %w", err)
	}
	return nil
}

func (s *changeStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting merged changes: %w", err)
	}
	return count, nil
}
