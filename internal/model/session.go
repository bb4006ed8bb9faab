package model

import "time"

// Session records one distillation pass so the next run can surface the
// prior scope and summary.
type Session struct {
	ID        string     `json:"id"`
	Project   string     `json:"project"`
	Scope     *string    `json:"scope,omitempty"`
	Summary   *string    `json:"summary,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
