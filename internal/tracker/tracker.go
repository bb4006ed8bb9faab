// Package tracker is the narrow boundary to the external issue tracker.
// The core only ever needs bounded, time-filtered reads; everything
// provider-specific stays behind this interface.
package tracker

import (
	"context"
	"time"

	"pulsehq.app/pulse/internal/model"
)

type Tracker interface {
	// ListIssues returns issues created after the cutoff, normalized into
	// the core's TrackedIssue shape.
	ListIssues(ctx context.Context, since time.Time) ([]model.TrackedIssue, error)

	// ListMergedChanges returns merge requests created after the cutoff.
	ListMergedChanges(ctx context.Context, since time.Time) ([]model.MergedChange, error)
}
