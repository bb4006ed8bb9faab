package mapper_test

import (
	"context"

	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

// mockProvider returns canned vectors keyed by input text.
type mockProvider struct {
	vectors map[string][]float32
	model   string

	embedManyErr  error
	embedOneErr   map[string]error
	embedManyCall int
	embedOneCall  int
}

func (m *mockProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	m.embedManyCall++
	if m.embedManyErr != nil {
		return nil, m.embedManyErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectors[t]
	}
	return out, nil
}

func (m *mockProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	m.embedOneCall++
	if err, ok := m.embedOneErr[text]; ok {
		return nil, err
	}
	return m.vectors[text], nil
}

func (m *mockProvider) Model() string {
	if m.model == "" {
		return "test-embedding-model"
	}
	return m.model
}

// mockCache is an in-memory Cache.
type mockCache struct {
	entries map[string]*model.Embedding
	getErr  error
	putErr  error
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*model.Embedding)}
}

func (m *mockCache) Get(ctx context.Context, entityID string) (*model.Embedding, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.entries[entityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (m *mockCache) Put(ctx context.Context, entityID string, vector []float32, contentHash, embeddingModel string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.entries[entityID] = &model.Embedding{
		EntityID:    entityID,
		Vector:      vector,
		ContentHash: contentHash,
		Model:       embeddingModel,
	}
	return nil
}
