// Package mapper assigns product features to discussion groups using
// embedding similarity, with a keyword-containment fallback when no
// embedding capability is configured.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/embedding"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

const (
	// DefaultMinSimilarity is the embedding-mode match threshold.
	DefaultMinSimilarity = 0.6

	// embedBatchSize keeps cumulative batch token size within provider limits.
	embedBatchSize = 50

	// maxFeaturesPerGroup caps how many features one group can affect.
	maxFeaturesPerGroup = 5
)

// Mode selects how the mapper reacts to a missing embedding credential.
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModeBestEffort Mode = "best_effort"
)

// ErrNoEmbedding is returned in strict mode when embedding capability is
// required but not configured.
var ErrNoEmbedding = fmt.Errorf("feature mapping: %w", embedding.ErrNoCredential)

// FeatureMapper attaches AffectsFeatures and IsCrossCutting to groups.
// Provider may be nil, meaning no embedding capability is configured.
type FeatureMapper struct {
	provider      embedding.Provider
	cache         embedding.Cache
	minSimilarity float64
	mode          Mode
}

type Option func(*FeatureMapper)

func WithMinSimilarity(min float64) Option {
	return func(m *FeatureMapper) {
		if min > 0 {
			m.minSimilarity = min
		}
	}
}

func WithMode(mode Mode) Option {
	return func(m *FeatureMapper) { m.mode = mode }
}

// New creates a FeatureMapper. provider may be nil; cache must not be.
func New(provider embedding.Provider, cache embedding.Cache, opts ...Option) *FeatureMapper {
	m := &FeatureMapper{
		provider:      provider,
		cache:         cache,
		minSimilarity: DefaultMinSimilarity,
		mode:          ModeBestEffort,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map assigns zero-or-more features to each group and returns the groups
// with AffectsFeatures and IsCrossCutting populated. The result is
// deterministic for unchanged inputs: same group text plus same feature
// catalog yields the same assignment ordering on every run.
func (m *FeatureMapper) Map(ctx context.Context, groups []model.Group, features []model.Feature) ([]model.Group, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "pulse.mapper"})

	out := make([]model.Group, len(groups))
	copy(out, groups)

	// No catalog: everything is general, nothing to compare against.
	if len(features) == 0 {
		for i := range out {
			out[i].AffectsFeatures = []model.FeatureRef{model.GeneralFeature()}
			out[i].IsCrossCutting = false
		}
		return out, nil
	}

	if m.provider == nil {
		if m.mode == ModeStrict {
			return nil, ErrNoEmbedding
		}
		slog.InfoContext(ctx, "no embedding provider configured, using keyword matching",
			"groups", len(groups), "features", len(features))
		for i := range out {
			refs, cross := matchByKeywords(out[i], features)
			out[i].AffectsFeatures = refs
			out[i].IsCrossCutting = cross
		}
		return out, nil
	}

	featureVectors := m.embedFeatures(ctx, features)

	for i := range out {
		refs, cross := m.assignGroup(ctx, out[i], features, featureVectors)
		out[i].AffectsFeatures = refs
		out[i].IsCrossCutting = cross
	}
	return out, nil
}

// embedFeatures resolves an embedding for every feature it can, consulting
// the cache first and batching the misses. Items that fail even the per-item
// retry are skipped: that feature simply cannot match any group this run.
func (m *FeatureMapper) embedFeatures(ctx context.Context, features []model.Feature) map[string][]float32 {
	vectors := make(map[string][]float32, len(features))

	type pending struct {
		id   string
		text string
		hash string
	}
	var queue []pending

	for _, f := range features {
		text := FeatureText(f)
		hash := embedding.ContentHash(text)

		cached, err := m.cache.Get(ctx, f.ID)
		if err == nil && cached.ContentHash == hash && cached.Model == m.provider.Model() {
			vectors[f.ID] = cached.Vector
			continue
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "vector cache read failed", "entity_id", f.ID, "error", err)
		}
		queue = append(queue, pending{id: f.ID, text: text, hash: hash})
	}

	for start := 0; start < len(queue); start += embedBatchSize {
		end := min(start+embedBatchSize, len(queue))
		batch := queue[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}

		batchVectors, err := m.provider.EmbedMany(ctx, texts)
		if err == nil {
			for i, p := range batch {
				vectors[p.id] = batchVectors[i]
				m.storeVector(ctx, p.id, batchVectors[i], p.hash)
			}
			continue
		}

		// Batch failed as a unit. Retry each item individually so one bad
		// item cannot poison the rest; items that still fail are skipped.
		slog.WarnContext(ctx, "embedding batch failed, retrying items individually",
			"batch_size", len(batch), "error", err)
		for _, p := range batch {
			vec, itemErr := m.provider.EmbedOne(ctx, p.text)
			if itemErr != nil {
				slog.WarnContext(ctx, "skipping feature embedding",
					"entity_id", p.id, "error", itemErr)
				continue
			}
			vectors[p.id] = vec
			m.storeVector(ctx, p.id, vec, p.hash)
		}
	}

	return vectors
}

// assignGroup computes one group's feature assignment. Any failure on the
// group side degrades to the general sentinel; it is never fatal to the run.
func (m *FeatureMapper) assignGroup(ctx context.Context, group model.Group, features []model.Feature, featureVectors map[string][]float32) ([]model.FeatureRef, bool) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{GroupID: logger.Ptr(group.ID)})

	text := GroupText(group)
	if text == "" {
		return []model.FeatureRef{model.GeneralFeature()}, false
	}

	groupVec, err := m.groupVector(ctx, group, text)
	if err != nil {
		slog.WarnContext(ctx, "group embedding failed, assigning general",
			"error", err, "text", logger.Truncate(text, 120))
		return []model.FeatureRef{model.GeneralFeature()}, false
	}

	type match struct {
		ref   model.FeatureRef
		score float64
	}
	var matches []match
	for _, f := range features {
		vec, ok := featureVectors[f.ID]
		if !ok {
			continue
		}
		score := embedding.CosineSimilarity(groupVec, vec)
		if score >= m.minSimilarity {
			matches = append(matches, match{ref: model.FeatureRef{ID: f.ID, Name: f.Name}, score: score})
		}
	}

	if len(matches) == 0 {
		return []model.FeatureRef{model.GeneralFeature()}, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].ref.ID < matches[j].ref.ID
	})
	if len(matches) > maxFeaturesPerGroup {
		matches = matches[:maxFeaturesPerGroup]
	}

	refs := make([]model.FeatureRef, len(matches))
	for i, mt := range matches {
		refs[i] = mt.ref
	}
	return refs, len(refs) > 1
}

func (m *FeatureMapper) groupVector(ctx context.Context, group model.Group, text string) ([]float32, error) {
	hash := embedding.ContentHash(text)

	cached, err := m.cache.Get(ctx, group.ID)
	if err == nil && cached.ContentHash == hash && cached.Model == m.provider.Model() {
		return cached.Vector, nil
	}

	vec, err := m.provider.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	m.storeVector(ctx, group.ID, vec, hash)
	return vec, nil
}

func (m *FeatureMapper) storeVector(ctx context.Context, entityID string, vec []float32, hash string) {
	if err := m.cache.Put(ctx, entityID, vec, hash, m.provider.Model()); err != nil {
		// Cache writes are best effort; the vector is already in hand.
		slog.WarnContext(ctx, "vector cache write failed", "entity_id", entityID, "error", err)
	}
}

// FeatureText builds the canonical embedding text for a feature:
// "{name}: {description} Keywords: {k1, k2, ...}" with empty clauses omitted.
func FeatureText(f model.Feature) string {
	var b strings.Builder
	b.WriteString(f.Name)
	if f.Description != nil && *f.Description != "" {
		b.WriteString(": ")
		b.WriteString(*f.Description)
	}
	if len(f.RelatedKeywords) > 0 {
		b.WriteString(" Keywords: ")
		b.WriteString(strings.Join(f.RelatedKeywords, ", "))
	}
	return b.String()
}

// GroupText builds a group's representative text by concatenating, in order,
// the suggested title, the linked issue title, and member thread titles,
// ignoring empty strings.
func GroupText(g model.Group) string {
	var parts []string
	if g.SuggestedTitle != nil && *g.SuggestedTitle != "" {
		parts = append(parts, *g.SuggestedTitle)
	}
	if g.LinkedIssueTitle != nil && *g.LinkedIssueTitle != "" {
		parts = append(parts, *g.LinkedIssueTitle)
	}
	for _, t := range g.Members {
		if t.Title != "" {
			parts = append(parts, t.Title)
		}
	}
	return strings.Join(parts, " ")
}
