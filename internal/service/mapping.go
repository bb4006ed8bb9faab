package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

type MapGroupsParams struct {
	Project  string   `json:"project"`
	GroupIDs []string `json:"group_ids"`
}

type MapGroupsResult struct {
	Groups  []model.Group
	Skipped []string // group IDs that could not be loaded
}

// MappingService loads groups and the feature catalog, runs the feature
// mapper, and persists the resulting assignments.
type MappingService interface {
	MapGroups(ctx context.Context, params MapGroupsParams) (*MapGroupsResult, error)
}

var ErrGroupNotFound = errors.New("group not found")

type mappingService struct {
	stores *store.Stores
	mapper *mapper.FeatureMapper
	logger *slog.Logger
}

func NewMappingService(stores *store.Stores, m *mapper.FeatureMapper, logger *slog.Logger) MappingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &mappingService{
		stores: stores,
		mapper: m,
		logger: logger,
	}
}

func (s *mappingService) MapGroups(ctx context.Context, params MapGroupsParams) (*MapGroupsResult, error) {
	if len(params.GroupIDs) == 0 {
		return nil, fmt.Errorf("group_ids are required")
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.service.mapping",
		Project:   logger.Ptr(params.Project),
	})

	features, err := s.stores.Features.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading feature catalog: %w", err)
	}

	var (
		groups  []model.Group
		skipped []string
	)
	for _, id := range params.GroupIDs {
		group, err := s.stores.Groups.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.logger.WarnContext(ctx, "group missing, skipping", "group_id", id)
				skipped = append(skipped, id)
				continue
			}
			return nil, fmt.Errorf("loading group %s: %w", id, err)
		}
		groups = append(groups, *group)
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: none of the requested groups exist", ErrGroupNotFound)
	}

	mapped, err := s.mapper.Map(ctx, groups, features)
	if err != nil {
		return nil, fmt.Errorf("mapping groups: %w", err)
	}

	updates := make([]store.AssignmentUpdate, 0, len(mapped))
	for _, g := range mapped {
		updates = append(updates, store.AssignmentUpdate{
			GroupID:      g.ID,
			Features:     g.AffectsFeatures,
			CrossCutting: g.IsCrossCutting,
		})
	}
	if err := s.stores.Groups.UpdateAssignments(ctx, updates); err != nil {
		return nil, fmt.Errorf("persisting assignments: %w", err)
	}

	s.logger.InfoContext(ctx, "mapped groups to features",
		"mapped", len(mapped),
		"skipped", len(skipped),
		"catalog_size", len(features))

	return &MapGroupsResult{Groups: mapped, Skipped: skipped}, nil
}
