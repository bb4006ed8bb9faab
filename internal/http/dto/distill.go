package dto

import (
	"time"

	"pulsehq.app/pulse/internal/model"
)

type DistillRequest struct {
	Project string     `json:"project" binding:"required"`
	Scope   *string    `json:"scope,omitempty"`
	Since   *time.Time `json:"since,omitempty"` // RFC3339; overrides the default lookback window
}

type DistillResponse struct {
	SessionID   string               `json:"session_id"`
	Context     model.ProjectContext `json:"context"`
	LastSession *SessionResponse     `json:"last_session,omitempty"`
}

type SessionResponse struct {
	ID        string  `json:"id"`
	Scope     *string `json:"scope,omitempty"`
	Summary   *string `json:"summary,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
}
