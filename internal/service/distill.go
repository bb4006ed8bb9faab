package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulsehq.app/pulse/common/id"
	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/distiller"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

type DistillParams struct {
	Project string     `json:"project"`
	Scope   *string    `json:"scope,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
}

type DistillResult struct {
	Context     *model.ProjectContext
	LastSession *model.Session
	SessionID   string
}

// DistillService runs one distillation pass and records it as a session so
// the next pass can surface the prior scope.
type DistillService interface {
	Distill(ctx context.Context, params DistillParams) (*DistillResult, error)
}

type distillService struct {
	stores    *store.Stores
	distiller *distiller.Distiller
	logger    *slog.Logger
}

func NewDistillService(stores *store.Stores, d *distiller.Distiller, logger *slog.Logger) DistillService {
	if logger == nil {
		logger = slog.Default()
	}
	return &distillService{
		stores:    stores,
		distiller: d,
		logger:    logger,
	}
}

func (s *distillService) Distill(ctx context.Context, params DistillParams) (*DistillResult, error) {
	if params.Project == "" {
		return nil, fmt.Errorf("project is required")
	}

	sc := logger.StartSpan(ctx, "service.distill")
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		Component: "pulse.service.distill",
		Project:   logger.Ptr(params.Project),
	})

	startedAt := time.Now().UTC()

	result, err := s.distiller.Distill(ctx, distiller.Params{
		Project: params.Project,
		Scope:   params.Scope,
		Since:   params.Since,
	})
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("distilling project context: %w", err)
	}

	// The session is recorded after the pass so the preference scorer sees
	// the previous session, not this one.
	session := &model.Session{
		ID:        id.NewString(),
		Project:   params.Project,
		Scope:     params.Scope,
		StartedAt: startedAt,
	}
	if err := s.stores.Sessions.Create(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to record session", "error", err)
	} else {
		summary := summarize(result.Context)
		if err := s.stores.Sessions.Finish(ctx, session.ID, &summary, time.Now().UTC()); err != nil {
			s.logger.ErrorContext(ctx, "failed to finish session", "error", err, "session_id", session.ID)
		}
	}

	s.logger.InfoContext(ctx, "distilled project context",
		"session_id", session.ID,
		"active_issues", len(result.Context.ActiveIssues),
		"user_signals", len(result.Context.UserSignals),
		"decisions", len(result.Context.Decisions))

	return &DistillResult{
		Context:     result.Context,
		LastSession: result.LastSession,
		SessionID:   session.ID,
	}, nil
}

func summarize(pc *model.ProjectContext) string {
	return fmt.Sprintf("%d active issues, %d user signals, %d codebase notes, %d decisions (%s)",
		len(pc.ActiveIssues),
		len(pc.UserSignals),
		len(pc.CodebaseNotes),
		len(pc.Decisions),
		pc.RecentActivity.Window)
}
