package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so business context (project, group_id,
// run_id, etc.) is included in every log statement without being threaded by hand.
type LogFields struct {
	Project     *string // Project slug the operation concerns
	GroupID     *string // Discussion group ID
	IssueNumber *int64  // Tracked issue number
	RunID       *int64  // Mapping/distillation run ID
	MessageID   *string // Redis stream message ID
	TaskType    *string // Queue task type (e.g., "map_features", "tracker_sync")
	Component   string  // Component name (e.g., "pulse.mapper", "pulse.distiller")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, updated LogFields) LogFields {
	result := existing

	if updated.Project != nil {
		result.Project = updated.Project
	}
	if updated.GroupID != nil {
		result.GroupID = updated.GroupID
	}
	if updated.IssueNumber != nil {
		result.IssueNumber = updated.IssueNumber
	}
	if updated.RunID != nil {
		result.RunID = updated.RunID
	}
	if updated.MessageID != nil {
		result.MessageID = updated.MessageID
	}
	if updated.TaskType != nil {
		result.TaskType = updated.TaskType
	}
	if updated.Component != "" {
		result.Component = updated.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{GroupID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like group texts or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
