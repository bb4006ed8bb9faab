package distiller

import (
	"context"
	"sort"
	"time"

	"pulsehq.app/pulse/internal/model"
)

// minSignalThreads excludes single-thread groups: one thread is noise,
// recurrence is signal.
const minSignalThreads = 2

func (d *Distiller) userSignals(ctx context.Context, project string, cutoff time.Time) ([]model.UserSignal, error) {
	groups, err := d.stores.Groups.ListSince(ctx, project, cutoff)
	if err != nil {
		return nil, err
	}
	return ExtractSignals(groups), nil
}

// ExtractSignals converts recurring discussion groups into user signals,
// ordered by how many threads contribute to each theme.
func ExtractSignals(groups []model.Group) []model.UserSignal {
	var eligible []model.Group
	for _, g := range groups {
		if len(g.Members) >= minSignalThreads {
			eligible = append(eligible, g)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if len(eligible[i].Members) != len(eligible[j].Members) {
			return len(eligible[i].Members) > len(eligible[j].Members)
		}
		return eligible[i].ID < eligible[j].ID
	})

	if len(eligible) > MaxUserSignals {
		eligible = eligible[:MaxUserSignals]
	}

	signals := make([]model.UserSignal, 0, len(eligible))
	for _, g := range eligible {
		signals = append(signals, model.UserSignal{
			Theme:   signalTheme(g),
			Count:   len(g.Members),
			Sources: g.Sources(),
		})
	}
	return signals
}

func signalTheme(g model.Group) string {
	if g.SuggestedTitle != nil && *g.SuggestedTitle != "" {
		return *g.SuggestedTitle
	}
	if g.LinkedIssueTitle != nil && *g.LinkedIssueTitle != "" {
		return *g.LinkedIssueTitle
	}
	for _, t := range g.Members {
		if t.Title != "" {
			return t.Title
		}
	}
	return "untitled discussion"
}
