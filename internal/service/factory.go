package service

import (
	"log/slog"

	"pulsehq.app/pulse/common/llm"
	"pulsehq.app/pulse/internal/distiller"
	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/store"
	"pulsehq.app/pulse/internal/tracker"
)

type Services struct {
	stores       *store.Stores
	mapper       *mapper.FeatureMapper
	distiller    *distiller.Distiller
	tracker      tracker.Tracker
	llmClient    llm.Client
	lookbackDays int
	logger       *slog.Logger
}

func NewServices(
	stores *store.Stores,
	m *mapper.FeatureMapper,
	d *distiller.Distiller,
	t tracker.Tracker,
	llmClient llm.Client,
	lookbackDays int,
	logger *slog.Logger,
) *Services {
	return &Services{
		stores:       stores,
		mapper:       m,
		distiller:    d,
		tracker:      t,
		llmClient:    llmClient,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

func (s *Services) Mapping() MappingService {
	return NewMappingService(s.stores, s.mapper, s.logger)
}

func (s *Services) Distill() DistillService {
	return NewDistillService(s.stores, s.distiller, s.logger)
}

func (s *Services) TrackerSync() TrackerSyncService {
	return NewTrackerSyncService(s.stores, s.tracker, s.lookbackDays, s.logger)
}

func (s *Services) FeatureExtract() FeatureExtractService {
	return NewFeatureExtractService(s.stores, s.llmClient, s.lookbackDays, s.logger)
}
