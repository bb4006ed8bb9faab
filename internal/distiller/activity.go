package distiller

import (
	"context"
	"fmt"
	"time"

	"pulsehq.app/pulse/internal/model"
)

func (d *Distiller) recentActivity(ctx context.Context, project string, cutoff, now time.Time) (model.RecentActivity, error) {
	issuesOpened, err := d.stores.Issues.CountOpenedSince(ctx, project, cutoff)
	if err != nil {
		return model.RecentActivity{}, err
	}
	issuesClosed, err := d.stores.Issues.CountClosedSince(ctx, project, cutoff)
	if err != nil {
		return model.RecentActivity{}, err
	}
	changesOpened, err := d.stores.Changes.CountOpenedSince(ctx, project, cutoff)
	if err != nil {
		return model.RecentActivity{}, err
	}
	changesMerged, err := d.stores.Changes.CountMergedSince(ctx, project, cutoff)
	if err != nil {
		return model.RecentActivity{}, err
	}
	threads, err := d.stores.Groups.CountThreadsSince(ctx, project, cutoff)
	if err != nil {
		return model.RecentActivity{}, err
	}

	return model.RecentActivity{
		IssuesOpened:      issuesOpened,
		IssuesClosed:      issuesClosed,
		ChangesOpened:     changesOpened,
		ChangesMerged:     changesMerged,
		ThreadsClassified: threads,
		Window:            windowLabel(cutoff, now),
	}, nil
}

func lastDaysLabel(days int) string {
	return fmt.Sprintf("last %d days", days)
}
