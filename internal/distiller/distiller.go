// Package distiller compresses the persisted state of a project into a
// small, ranked, deterministic ProjectContext that a downstream consumer
// can absorb in a fixed token budget.
package distiller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

// Bounded list sizes for the distilled context. Truncation preserves the
// sort order, it never silently drops items out of order.
const (
	MaxActiveIssues  = 10
	MaxUserSignals   = 5
	MaxCodebaseNotes = 5
	MaxDecisions     = 5

	// DefaultLookbackDays is the time window when the caller supplies none.
	DefaultLookbackDays = 14
)

// Params scopes one distillation pass.
type Params struct {
	Project string
	Scope   *string    // free-text filter over titles/bodies/labels
	Since   *time.Time // explicit cutoff; defaults to now minus the lookback
}

// Result carries the distilled context plus the prior session, if any.
type Result struct {
	Context     *model.ProjectContext
	LastSession *model.Session
}

// Distiller runs the six sub-scorers and assembles a ProjectContext.
// Each sub-scorer reads in isolation; a failure in one degrades that
// section to empty rather than aborting the whole distillation.
type Distiller struct {
	stores       *store.Stores
	lookbackDays int
}

func New(stores *store.Stores, lookbackDays int) *Distiller {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Distiller{stores: stores, lookbackDays: lookbackDays}
}

// Distill produces the ProjectContext for a project. The sub-scorers are
// independent read-only queries and are issued concurrently; none mutates
// shared state beyond its own section of the result.
func (d *Distiller) Distill(ctx context.Context, params Params) (*Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.distiller",
		Project:   logger.Ptr(params.Project),
	})

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -d.lookbackDays)
	if params.Since != nil {
		cutoff = *params.Since
	}

	pc := &model.ProjectContext{
		Project:     params.Project,
		Focus:       params.Scope,
		LastUpdated: now,
	}
	var lastSession *model.Session

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		issues, err := d.activeIssues(gctx, params, cutoff)
		if err != nil {
			slog.ErrorContext(gctx, "active issue ranking failed, section degraded", "error", err)
			return nil
		}
		pc.ActiveIssues = issues
		return nil
	})

	g.Go(func() error {
		signals, err := d.userSignals(gctx, params.Project, cutoff)
		if err != nil {
			slog.ErrorContext(gctx, "user signal extraction failed, section degraded", "error", err)
			return nil
		}
		pc.UserSignals = signals
		return nil
	})

	g.Go(func() error {
		notes, err := d.codebaseNotes(gctx, params.Project)
		if err != nil {
			slog.ErrorContext(gctx, "codebase note extraction failed, section degraded", "error", err)
			return nil
		}
		pc.CodebaseNotes = notes
		return nil
	})

	g.Go(func() error {
		decisions, err := d.decisions(gctx, params, cutoff)
		if err != nil {
			slog.ErrorContext(gctx, "decision extraction failed, section degraded", "error", err)
			return nil
		}
		pc.Decisions = decisions
		return nil
	})

	g.Go(func() error {
		activity, err := d.recentActivity(gctx, params.Project, cutoff, now)
		if err != nil {
			slog.ErrorContext(gctx, "activity summary failed, section degraded", "error", err)
			activity = model.RecentActivity{Window: windowLabel(cutoff, now)}
		}
		pc.RecentActivity = activity
		return nil
	})

	g.Go(func() error {
		sess, err := d.stores.Sessions.GetLatest(gctx, params.Project)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				slog.ErrorContext(gctx, "session lookup failed, section degraded", "error", err)
			}
			pc.Preferences = model.Preferences{LastSessionScope: "none"}
			return nil
		}
		lastSession = sess
		scope := "none"
		if sess.Scope != nil && *sess.Scope != "" {
			scope = *sess.Scope
		}
		pc.Preferences = model.Preferences{LastSessionScope: scope}
		return nil
	})

	// Sub-scorers never propagate errors, so Wait only observes ctx cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{Context: pc, LastSession: lastSession}, nil
}

func windowLabel(cutoff, now time.Time) string {
	days := int(now.Sub(cutoff).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return lastDaysLabel(days)
}
