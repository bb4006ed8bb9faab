package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsehq.app/pulse/internal/model"
)

type sessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a SessionStore backed by Postgres.
func NewSessionStore(pool *pgxpool.Pool) SessionStore {
	return &sessionStore{pool: pool}
}

func (s *sessionStore) GetLatest(ctx context.Context, project string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project, scope, summary, started_at, ended_at
		   FROM sessions WHERE project = $1
		  ORDER BY started_at DESC LIMIT 1`, project)

	var sess model.Session
	if err := row.Scan(&sess.ID, &sess.Project, &sess.Scope, &sess.Summary, &sess.StartedAt, &sess.EndedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching latest session: %w", err)
	}
	return &sess, nil
}

func (s *sessionStore) Create(ctx context.Context, session *model.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, project, scope, summary, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.Project, session.Scope, session.Summary, session.StartedAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *sessionStore) Finish(ctx context.Context, id string, summary *string, endedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET summary = COALESCE($2, summary), ended_at = $3 WHERE id = $1`,
		id, summary, endedAt)
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
