package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsehq.app/pulse/internal/model"
)

type featureStore struct {
	pool *pgxpool.Pool
}

// NewFeatureStore creates a FeatureStore backed by Postgres.
func NewFeatureStore(pool *pgxpool.Pool) FeatureStore {
	return &featureStore{pool: pool}
}

func (s *featureStore) GetByID(ctx context.Context, id string) (*model.Feature, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, related_keywords, created_at, updated_at
		   FROM features WHERE id = $1`, id)

	f, err := scanFeature(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching feature: %w", err)
	}
	return f, nil
}

func (s *featureStore) List(ctx context.Context) ([]model.Feature, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, related_keywords, created_at, updated_at
		   FROM features ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing features: %w", err)
	}
	defer rows.Close()

	var features []model.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning feature: %w", err)
		}
		features = append(features, *f)
	}
	return features, rows.Err()
}

func (s *featureStore) Upsert(ctx context.Context, feature *model.Feature) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO features (id, name, description, related_keywords, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (id) DO UPDATE
		    SET name = EXCLUDED.name,
		        description = EXCLUDED.description,
		        related_keywords = EXCLUDED.related_keywords,
		        updated_at = now()`,
		feature.ID, feature.Name, feature.Description, feature.RelatedKeywords)
	if err != nil {
		return fmt.Errorf("upserting feature: %w", err)
	}
	return nil
}

func (s *featureStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM features WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting feature: %w", err)
	}
	return nil
}

func scanFeature(row pgx.Row) (*model.Feature, error) {
	var f model.Feature
	if err := row.Scan(&f.ID, &f.Name, &f.Description, &f.RelatedKeywords, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

type codeMappingStore struct {
	pool *pgxpool.Pool
}

// NewCodeMappingStore creates a CodeMappingStore backed by Postgres.
func NewCodeMappingStore(pool *pgxpool.Pool) CodeMappingStore {
	return &codeMappingStore{pool: pool}
}

func (s *codeMappingStore) ListByFeature(ctx context.Context, featureID string) ([]model.CodeMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, feature_id, path, symbol, created_at
		   FROM code_mappings WHERE feature_id = $1 ORDER BY path`, featureID)
	if err != nil {
		return nil, fmt.Errorf("listing code mappings: %w", err)
	}
	defer rows.Close()

	var mappings []model.CodeMapping
	for rows.Next() {
		var m model.CodeMapping
		if err := rows.Scan(&m.ID, &m.FeatureID, &m.Path, &m.Symbol, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning code mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (s *codeMappingStore) Create(ctx context.Context, mapping *model.CodeMapping) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO code_mappings (id, feature_id, path, symbol, created_at)
		 VALUES ($1, $2, $3, $4, now())`,
		mapping.ID, mapping.FeatureID, mapping.Path, mapping.Symbol)
	if err != nil {
		return fmt.Errorf("creating code mapping: %w", err)
	}
	return nil
}
