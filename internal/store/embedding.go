package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsehq.app/pulse/internal/model"
)

// EmbeddingStore is the durable vector cache. One row per entity id; Put
// overwrites whatever was there. Satisfies embedding.Cache.
type EmbeddingStore struct {
	pool *pgxpool.Pool
}

func NewEmbeddingStore(pool *pgxpool.Pool) *EmbeddingStore {
	return &EmbeddingStore{pool: pool}
}

func (s *EmbeddingStore) Get(ctx context.Context, entityID string) (*model.Embedding, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT entity_id, vector, content_hash, model, updated_at
		   FROM embeddings WHERE entity_id = $1`, entityID)

	var e model.Embedding
	if err := row.Scan(&e.EntityID, &e.Vector, &e.ContentHash, &e.Model, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching embedding: %w", err)
	}
	return &e, nil
}

func (s *EmbeddingStore) Put(ctx context.Context, entityID string, vector []float32, contentHash, embeddingModel string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO embeddings (entity_id, vector, content_hash, model, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (entity_id) DO UPDATE
		    SET vector = EXCLUDED.vector,
		        content_hash = EXCLUDED.content_hash,
		        model = EXCLUDED.model,
		        updated_at = now()`,
		entityID, vector, contentHash, embeddingModel)
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	return nil
}
