package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/store"
	"pulsehq.app/pulse/internal/tracker"
)

type SyncResult struct {
	Issues  int
	Changes int
}

// TrackerSyncService pulls issues and merged changes from the external
// tracker into local storage so the distiller never talks to the tracker
// directly.
type TrackerSyncService interface {
	Sync(ctx context.Context, project string) (*SyncResult, error)
}

type trackerSyncService struct {
	stores       *store.Stores
	tracker      tracker.Tracker
	lookbackDays int
	logger       *slog.Logger
}

func NewTrackerSyncService(stores *store.Stores, t tracker.Tracker, lookbackDays int, logger *slog.Logger) TrackerSyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &trackerSyncService{
		stores:       stores,
		tracker:      t,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

func (s *trackerSyncService) Sync(ctx context.Context, project string) (*SyncResult, error) {
	if s.tracker == nil {
		return nil, fmt.Errorf("no tracker configured")
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.service.tracker_sync",
		Project:   logger.Ptr(project),
	})

	since := time.Now().UTC().AddDate(0, 0, -s.lookbackDays)

	issues, err := s.tracker.ListIssues(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing tracker issues: %w", err)
	}
	for i := range issues {
		issues[i].Project = project
		if err := s.stores.Issues.Upsert(ctx, &issues[i]); err != nil {
			return nil, fmt.Errorf("upserting issue #%d: %w", issues[i].Number, err)
		}
	}

	changes, err := s.tracker.ListMergedChanges(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing tracker merge requests: %w", err)
	}
	for i := range changes {
		changes[i].Project = project
		if err := s.stores.Changes.Upsert(ctx, &changes[i]); err != nil {
			return nil, fmt.Errorf("upserting change !%d: %w", changes[i].Number, err)
		}
	}

	s.logger.InfoContext(ctx, "synced tracker state",
		"issues", len(issues),
		"changes", len(changes),
		"since", since)

	return &SyncResult{Issues: len(issues), Changes: len(changes)}, nil
}
