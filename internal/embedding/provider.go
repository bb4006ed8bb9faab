package embedding

import (
	"context"
	"errors"
	"fmt"

	"pulsehq.app/pulse/internal/model"
)

// ErrNoCredential is returned when embedding capability is requested but no
// API credential is configured. Callers in best-effort mode treat this as a
// signal to switch to keyword matching; strict callers surface it.
var ErrNoCredential = errors.New("embedding provider credential not configured")

// ProviderError wraps a failed embedding call (network/auth/rate-limit).
// Batch calls fail as a unit; callers recover by retrying items individually.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider turns text into fixed-length vectors.
//
// EmbedMany returns one vector per input text, same length and order as the
// input, and fails as a unit if the batch request fails. Same text embedded
// by the same provider/model yields the same vector within floating-point
// tolerance; different model versions may drift, which is why the cache
// stores the model tag alongside the content hash.
type Provider interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Cache is the durable vector store. One live row per entity id; Put with a
// new content hash overwrites the previous row. There is no eviction: rows
// live until the owning record is deleted by the external store. Concurrent
// writers to the same entity id race last-write-wins, which is accepted
// since vectors are cheap to regenerate.
type Cache interface {
	Get(ctx context.Context, entityID string) (*model.Embedding, error)
	Put(ctx context.Context, entityID string, vector []float32, contentHash, embeddingModel string) error
}
