package store

import (
	"context"
	"errors"
	"time"

	"pulsehq.app/pulse/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// FeatureStore defines the contract for feature catalog access
type FeatureStore interface {
	GetByID(ctx context.Context, id string) (*model.Feature, error)
	List(ctx context.Context) ([]model.Feature, error)
	Upsert(ctx context.Context, feature *model.Feature) error
	Delete(ctx context.Context, id string) error
}

// AssignmentUpdate is one group's new feature assignment.
type AssignmentUpdate struct {
	GroupID      string
	Features     []model.FeatureRef
	CrossCutting bool
}

// GroupStore defines the contract for discussion group access.
// Write-back is limited to attaching feature assignments onto groups;
// a batch of assignments commits atomically.
type GroupStore interface {
	GetByID(ctx context.Context, id string) (*model.Group, error)
	ListSince(ctx context.Context, project string, since time.Time) ([]model.Group, error)
	UpdateAssignments(ctx context.Context, updates []AssignmentUpdate) error
	CountUngroupedThreads(ctx context.Context, project string) (int, error)
	CountThreadsSince(ctx context.Context, project string, since time.Time) (int, error)
}

// IssueStore defines the contract for tracked issue access
type IssueStore interface {
	Get(ctx context.Context, project string, number int64) (*model.TrackedIssue, error)
	ListOpenSince(ctx context.Context, project string, since time.Time) ([]model.TrackedIssue, error)
	CountOpenedSince(ctx context.Context, project string, since time.Time) (int, error)
	CountClosedSince(ctx context.Context, project string, since time.Time) (int, error)
	Upsert(ctx context.Context, issue *model.TrackedIssue) error
}

// ChangeStore defines the contract for merge/pull request access
type ChangeStore interface {
	ListMergedSince(ctx context.Context, project string, since time.Time) ([]model.MergedChange, error)
	CountOpenedSince(ctx context.Context, project string, since time.Time) (int, error)
	CountMergedSince(ctx context.Context, project string, since time.Time) (int, error)
	Upsert(ctx context.Context, change *model.MergedChange) error
}

// SessionStore defines the contract for session data access
type SessionStore interface {
	GetLatest(ctx context.Context, project string) (*model.Session, error)
	Create(ctx context.Context, session *model.Session) error
	Finish(ctx context.Context, id string, summary *string, endedAt time.Time) error
}

// CodeMappingStore defines the contract for feature-to-code mappings
type CodeMappingStore interface {
	ListByFeature(ctx context.Context, featureID string) ([]model.CodeMapping, error)
	Create(ctx context.Context, mapping *model.CodeMapping) error
}
