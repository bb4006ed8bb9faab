package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"pulsehq.app/pulse/core/config"
)

type openaiProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a Provider backed by the OpenAI embeddings API.
// Returns ErrNoCredential when no API key is configured so callers can decide
// between failing and degrading to keyword matching.
func NewOpenAIProvider(cfg config.OpenAIConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	return &openaiProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *openaiProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: p.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, &ProviderError{Op: "batch", Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, &ProviderError{
			Op:  "batch",
			Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	// Output order must match input order; place each vector by its index.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, &ProviderError{Op: "batch", Err: fmt.Errorf("embedding index %d out of range", idx)}
		}
		vectors[idx] = toFloat32(d.Embedding)
	}

	slog.DebugContext(ctx, "embedded batch",
		"count", len(texts),
		"model", p.model,
		"duration_ms", time.Since(start).Milliseconds())

	return vectors, nil
}

func (p *openaiProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: p.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, &ProviderError{Op: "single", Err: err}
	}

	if len(resp.Data) == 0 {
		return nil, &ProviderError{Op: "single", Err: fmt.Errorf("empty response")}
	}

	return toFloat32(resp.Data[0].Embedding), nil
}

func (p *openaiProvider) Model() string {
	return p.model
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
