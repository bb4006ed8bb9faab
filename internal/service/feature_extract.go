package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pulsehq.app/pulse/common"
	"pulsehq.app/pulse/common/llm"
	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

const (
	extractorMaxTokens   = 2048
	extractorMaxFeatures = 12
	extractorMaxAttempts = 3
)

// FeatureExtractService proposes catalog features from recent discussion
// and issue activity. Proposals never overwrite an existing feature and the
// general sentinel is reserved.
type FeatureExtractService interface {
	Extract(ctx context.Context, project string) ([]model.Feature, error)
}

type featureExtractService struct {
	stores       *store.Stores
	client       llm.Client
	lookbackDays int
	logger       *slog.Logger
}

func NewFeatureExtractService(stores *store.Stores, client llm.Client, lookbackDays int, logger *slog.Logger) FeatureExtractService {
	if logger == nil {
		logger = slog.Default()
	}
	return &featureExtractService{
		stores:       stores,
		client:       client,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

type featureProposal struct {
	Name        string   `json:"name" jsonschema_description:"Short human-readable feature name"`
	Description string   `json:"description" jsonschema_description:"One or two sentences on what the feature covers"`
	Keywords    []string `json:"keywords" jsonschema_description:"Lowercase terms users write when discussing this feature"`
}

type featureProposals struct {
	Features []featureProposal `json:"features" jsonschema_description:"Distinct product features observed in the activity"`
}

var featureProposalSchema = llm.GenerateSchema[featureProposals]()

const extractorSystemPrompt = `You identify distinct product features from community activity around a software project.
Read the recent discussion titles and issue titles, then propose the product features they concern.
Merge near-duplicates into one feature. Skip anything too vague to name.
Return at most 12 features.`

func (s *featureExtractService) Extract(ctx context.Context, project string) ([]model.Feature, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no extractor model configured")
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.service.feature_extract",
		Project:   logger.Ptr(project),
	})

	prompt, err := s.buildPrompt(ctx, project)
	if err != nil {
		return nil, err
	}
	if prompt == "" {
		s.logger.InfoContext(ctx, "no recent activity to extract features from")
		return nil, nil
	}

	// Retry with exponential backoff (1s, 2s) to ride out transient rate
	// limits; give up after 3 attempts.
	var proposals featureProposals
	var chatErr error
	for attempt := 0; attempt < extractorMaxAttempts; attempt++ {
		_, chatErr = s.client.Chat(ctx, llm.Request{
			SystemPrompt: extractorSystemPrompt,
			UserPrompt:   prompt,
			SchemaName:   "feature_proposals",
			Schema:       featureProposalSchema,
			MaxTokens:    extractorMaxTokens,
			Temperature:  llm.Temp(0),
		}, &proposals)

		if chatErr == nil {
			break
		}
		if !llm.IsRetryable(ctx, chatErr) {
			return nil, fmt.Errorf("extracting features: %w", chatErr)
		}
		s.logger.WarnContext(ctx, "feature extraction retry",
			"attempt", attempt+1,
			"error", chatErr)
		if attempt < extractorMaxAttempts-1 {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	if chatErr != nil {
		return nil, fmt.Errorf("extracting features after %d attempts: %w", extractorMaxAttempts, chatErr)
	}

	existing, err := s.stores.Features.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading feature catalog: %w", err)
	}
	taken := map[string]bool{model.GeneralFeatureID: true}
	for _, f := range existing {
		taken[f.ID] = true
	}

	var created []model.Feature
	for i, p := range proposals.Features {
		if i >= extractorMaxFeatures {
			break
		}
		if strings.TrimSpace(p.Name) == "" {
			continue
		}

		slug, err := common.Slugify(p.Name, fmt.Sprintf("feature-%d", i+1))
		if err != nil || taken[slug] {
			continue
		}
		taken[slug] = true

		feature := model.Feature{
			ID:              slug,
			Name:            p.Name,
			RelatedKeywords: normalizeKeywords(p.Keywords),
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}
		if p.Description != "" {
			feature.Description = &p.Description
		}

		if err := s.stores.Features.Upsert(ctx, &feature); err != nil {
			return nil, fmt.Errorf("storing feature %s: %w", slug, err)
		}
		created = append(created, feature)
	}

	s.logger.InfoContext(ctx, "extracted features",
		"proposed", len(proposals.Features),
		"created", len(created),
		"model", s.client.Model())

	return created, nil
}

func (s *featureExtractService) buildPrompt(ctx context.Context, project string) (string, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.lookbackDays)

	groups, err := s.stores.Groups.ListSince(ctx, project, since)
	if err != nil {
		return "", fmt.Errorf("loading recent groups: %w", err)
	}
	issues, err := s.stores.Issues.ListOpenSince(ctx, project, since)
	if err != nil {
		return "", fmt.Errorf("loading open issues: %w", err)
	}

	if len(groups) == 0 && len(issues) == 0 {
		return "", nil
	}

	var b strings.Builder
	if len(groups) > 0 {
		b.WriteString("Discussion groups:\n")
		for _, g := range groups {
			if g.SuggestedTitle == nil || *g.SuggestedTitle == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s\n", *g.SuggestedTitle)
		}
	}
	if len(issues) > 0 {
		b.WriteString("Open issues:\n")
		for _, iss := range issues {
			fmt.Fprintf(&b, "- %s\n", iss.Title)
		}
	}
	return b.String(), nil
}

func normalizeKeywords(keywords []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
