package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsehq.app/pulse/core/db"
	"pulsehq.app/pulse/internal/model"
)

type groupStore struct {
	db   *db.DB
	pool *pgxpool.Pool
}

// NewGroupStore creates a GroupStore backed by Postgres. It takes the DB
// wrapper rather than a bare pool because assignment batches run in a
// transaction.
func NewGroupStore(database *db.DB) GroupStore {
	return &groupStore{db: database, pool: database.Pool()}
}

func (s *groupStore) GetByID(ctx context.Context, id string) (*model.Group, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT g.id, g.project, g.suggested_title, g.linked_issue_number, i.title,
		        g.confidence, g.affects_features, g.is_cross_cutting, g.created_at, g.updated_at
		   FROM groups g
		   LEFT JOIN tracked_issues i ON i.project = g.project AND i.number = g.linked_issue_number
		  WHERE g.id = $1`, id)

	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching group: %w", err)
	}

	if err := s.loadMembers(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *groupStore) ListSince(ctx context.Context, project string, since time.Time) ([]model.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.project, g.suggested_title, g.linked_issue_number, i.title,
		        g.confidence, g.affects_features, g.is_cross_cutting, g.created_at, g.updated_at
		   FROM groups g
		   LEFT JOIN tracked_issues i ON i.project = g.project AND i.number = g.linked_issue_number
		  WHERE g.project = $1 AND g.created_at > $2
		  ORDER BY g.created_at DESC`, project, since)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		if err := s.loadMembers(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// UpdateAssignments writes a batch of assignments in one transaction, so a
// failed run never leaves a half-assigned batch behind.
func (s *groupStore) UpdateAssignments(ctx context.Context, updates []AssignmentUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, u := range updates {
			payload, err := json.Marshal(u.Features)
			if err != nil {
				return fmt.Errorf("encoding feature refs: %w", err)
			}

			tag, err := tx.Exec(ctx,
				`UPDATE groups
				    SET affects_features = $2, is_cross_cutting = $3, updated_at = now()
				  WHERE id = $1`, u.GroupID, payload, u.CrossCutting)
			if err != nil {
				return fmt.Errorf("updating assignment for group %s: %w", u.GroupID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("group %s: %w", u.GroupID, ErrNotFound)
			}
		}
		return nil
	})
}

func (s *groupStore) CountUngroupedThreads(ctx context.Context, project string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM threads WHERE project = $1 AND group_id IS NULL AND NOT resolved`,
		project).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting ungrouped threads: %w", err)
	}
	return count, nil
}

func (s *groupStore) CountThreadsSince(ctx context.Context, project string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM threads WHERE project = $1 AND group_id IS NOT NULL AND created_at > $2`,
		project, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting classified threads: %w", err)
	}
	return count, nil
}

func (s *groupStore) loadMembers(ctx context.Context, g *model.Group) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, source, resolved, created_at
		   FROM threads WHERE group_id = $1 ORDER BY created_at`, g.ID)
	if err != nil {
		return fmt.Errorf("listing group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.Source, &t.Resolved, &t.CreatedAt); err != nil {
			return fmt.Errorf("scanning thread: %w", err)
		}
		g.Members = append(g.Members, t)
	}
	return rows.Err()
}

func scanGroup(row pgx.Row) (*model.Group, error) {
	var (
		g        model.Group
		features []byte
	)
	if err := row.Scan(&g.ID, &g.Project, &g.SuggestedTitle, &g.LinkedIssueNumber, &g.LinkedIssueTitle,
		&g.Confidence, &features, &g.IsCrossCutting, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &g.AffectsFeatures); err != nil {
			return nil, fmt.Errorf("decoding feature refs: %w", err)
		}
	}
	return &g, nil
}
