package distiller_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsehq.app/pulse/internal/distiller"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

const project = "acme/app"

func strPtr(s string) *string { return &s }

var _ = Describe("Distiller", func() {
	var (
		ctx    context.Context
		stores *store.Stores
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newStores()
	})

	distill := func(scope *string) *distiller.Result {
		d := distiller.New(stores, 14)
		result, err := d.Distill(ctx, distiller.Params{Project: project, Scope: scope})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Context).NotTo(BeNil())
		return result
	}

	It("produces an empty but complete context for an empty project", func() {
		result := distill(nil)

		pc := result.Context
		Expect(pc.Project).To(Equal(project))
		Expect(pc.ActiveIssues).To(BeEmpty())
		Expect(pc.UserSignals).To(BeEmpty())
		Expect(pc.CodebaseNotes).To(BeEmpty())
		Expect(pc.Decisions).To(BeEmpty())
		Expect(pc.RecentActivity.Window).To(Equal("last 14 days"))
		Expect(pc.Preferences.LastSessionScope).To(Equal("none"))
		Expect(result.LastSession).To(BeNil())
	})

	It("ranks active issues and keeps at most ten", func() {
		stores.Issues = &mockIssueStore{
			listOpenSinceFn: func(ctx context.Context, p string, since time.Time) ([]model.TrackedIssue, error) {
				var issues []model.TrackedIssue
				for i := 1; i <= 15; i++ {
					issues = append(issues, model.TrackedIssue{
						Number:  int64(i),
						Project: p,
						Title:   fmt.Sprintf("issue %d", i),
						State:   model.IssueStateOpen,
					})
				}
				// One standout so ordering is observable.
				issues[4].Labels = []string{"security"}
				return issues, nil
			},
		}

		pc := distill(nil).Context
		Expect(pc.ActiveIssues).To(HaveLen(10))
		Expect(pc.ActiveIssues[0].Number).To(Equal(int64(5)))
		Expect(pc.ActiveIssues[0].Priority).To(Equal(model.PriorityCritical))
	})

	It("degrades a failing section to empty instead of failing the run", func() {
		stores.Issues = &mockIssueStore{
			listOpenSinceFn: func(ctx context.Context, p string, since time.Time) ([]model.TrackedIssue, error) {
				return nil, errors.New("connection refused")
			},
		}
		stores.Groups = &mockGroupStore{
			listSinceFn: func(ctx context.Context, p string, since time.Time) ([]model.Group, error) {
				return []model.Group{
					{ID: "g1", SuggestedTitle: strPtr("Login failures"), Members: []model.Thread{
						{ID: "t1", Source: model.ThreadSourceDiscord},
						{ID: "t2", Source: model.ThreadSourceDiscord},
					}},
				}, nil
			},
		}

		pc := distill(nil).Context
		Expect(pc.ActiveIssues).To(BeEmpty())
		Expect(pc.UserSignals).To(HaveLen(1))
		Expect(pc.UserSignals[0].Theme).To(Equal("Login failures"))
	})

	It("extracts signals only from recurring groups and keeps at most five", func() {
		stores.Groups = &mockGroupStore{
			listSinceFn: func(ctx context.Context, p string, since time.Time) ([]model.Group, error) {
				var groups []model.Group
				for i := 1; i <= 7; i++ {
					members := make([]model.Thread, i)
					for j := range members {
						members[j] = model.Thread{ID: fmt.Sprintf("t%d-%d", i, j), Source: model.ThreadSourceDiscord}
					}
					groups = append(groups, model.Group{
						ID:             fmt.Sprintf("g%d", i),
						SuggestedTitle: strPtr(fmt.Sprintf("theme %d", i)),
						Members:        members,
					})
				}
				return groups, nil
			},
		}

		pc := distill(nil).Context
		Expect(pc.UserSignals).To(HaveLen(5))
		// Largest group first; the single-thread group is excluded.
		Expect(pc.UserSignals[0].Theme).To(Equal("theme 7"))
		Expect(pc.UserSignals[0].Count).To(Equal(7))
		Expect(pc.UserSignals[4].Theme).To(Equal("theme 3"))
	})

	It("derives decisions from merged changes, newest first", func() {
		now := time.Now().UTC()
		stores.Changes = &mockChangeStore{
			listMergedSinceFn: func(ctx context.Context, p string, since time.Time) ([]model.MergedChange, error) {
				older := now.Add(-48 * time.Hour)
				newer := now.Add(-2 * time.Hour)
				return []model.MergedChange{
					{Number: 11, Project: p, Title: "Fix token refresh", State: model.ChangeStateMerged,
						LinkedIssueNumbers: []int64{42}, MergedAt: &older, CreatedAt: older},
					{Number: 12, Project: p, Title: "Speed up search indexing", State: model.ChangeStateMerged,
						MergedAt: &newer, CreatedAt: newer},
				}, nil
			},
		}
		stores.Issues = &mockIssueStore{
			getFn: func(ctx context.Context, p string, number int64) (*model.TrackedIssue, error) {
				if number == 42 {
					return &model.TrackedIssue{Number: 42, Project: p, Title: "tokens expire early", State: model.IssueStateOpen}, nil
				}
				return nil, store.ErrNotFound
			},
		}

		pc := distill(nil).Context
		Expect(pc.Decisions).To(HaveLen(2))
		Expect(pc.Decisions[0].What).To(Equal("Speed up search indexing"))
		Expect(pc.Decisions[0].Why).To(Equal("Direct improvement"))
		Expect(pc.Decisions[0].Status).To(Equal(model.DecisionImplemented))
		Expect(pc.Decisions[1].Why).To(Equal("Addresses #42"))
		Expect(pc.Decisions[1].OpenItems).To(Equal([]string{"#42: tokens expire early"}))
	})

	It("filters issues and decisions by scope", func() {
		stores.Issues = &mockIssueStore{
			listOpenSinceFn: func(ctx context.Context, p string, since time.Time) ([]model.TrackedIssue, error) {
				return []model.TrackedIssue{
					{Number: 1, Project: p, Title: "Auth login broken", State: model.IssueStateOpen},
					{Number: 2, Project: p, Title: "Dashboard rendering glitch", State: model.IssueStateOpen},
				}, nil
			},
		}

		pc := distill(strPtr("auth")).Context
		Expect(pc.ActiveIssues).To(HaveLen(1))
		Expect(pc.ActiveIssues[0].Number).To(Equal(int64(1)))
		Expect(pc.Focus).To(Equal(strPtr("auth")))
	})

	It("surfaces the previous session scope", func() {
		stores.Sessions = &mockSessionStore{
			getLatestFn: func(ctx context.Context, p string) (*model.Session, error) {
				return &model.Session{ID: "s1", Project: p, Scope: strPtr("auth"), StartedAt: time.Now().UTC()}, nil
			},
		}

		result := distill(nil)
		Expect(result.Context.Preferences.LastSessionScope).To(Equal("auth"))
		Expect(result.LastSession).NotTo(BeNil())
		Expect(result.LastSession.ID).To(Equal("s1"))
	})

	It("emits codebase notes from mapped features and the review backlog", func() {
		desc := "Login and sessions"
		stores.Features = &mockFeatureStore{
			listFn: func(ctx context.Context) ([]model.Feature, error) {
				return []model.Feature{{ID: "auth", Name: "Auth", Description: &desc}}, nil
			},
		}
		stores.CodeMappings = &mockCodeMappingStore{
			listByFeatureFn: func(ctx context.Context, featureID string) ([]model.CodeMapping, error) {
				return []model.CodeMapping{
					{ID: 1, FeatureID: featureID, Path: "internal/auth/session.go"},
					{ID: 2, FeatureID: featureID, Path: "internal/auth/token.go"},
				}, nil
			},
		}
		stores.Groups = &mockGroupStore{
			countUngroupedThreadsFn: func(ctx context.Context, p string) (int, error) {
				return 60, nil
			},
		}

		pc := distill(nil).Context
		Expect(pc.CodebaseNotes).To(HaveLen(2))
		// Backlog above the high threshold sorts before the medium feature note.
		Expect(pc.CodebaseNotes[0].Area).To(Equal("triage"))
		Expect(pc.CodebaseNotes[0].Priority).To(Equal(model.PriorityHigh))
		Expect(pc.CodebaseNotes[1].Area).To(Equal("Auth"))
		Expect(pc.CodebaseNotes[1].Files).To(Equal([]string{"internal/auth/session.go", "internal/auth/token.go"}))
	})

	It("summarizes recent activity counts", func() {
		stores.Issues = &mockIssueStore{
			countOpenedSinceFn: func(ctx context.Context, p string, since time.Time) (int, error) { return 8, nil },
			countClosedSinceFn: func(ctx context.Context, p string, since time.Time) (int, error) { return 3, nil },
		}
		stores.Changes = &mockChangeStore{
			countOpenedSinceFn: func(ctx context.Context, p string, since time.Time) (int, error) { return 6, nil },
			countMergedSinceFn: func(ctx context.Context, p string, since time.Time) (int, error) { return 4, nil },
		}
		stores.Groups = &mockGroupStore{
			countThreadsSinceFn: func(ctx context.Context, p string, since time.Time) (int, error) { return 25, nil },
		}

		pc := distill(nil).Context
		Expect(pc.RecentActivity).To(Equal(model.RecentActivity{
			IssuesOpened:      8,
			IssuesClosed:      3,
			ChangesOpened:     6,
			ChangesMerged:     4,
			ThreadsClassified: 25,
			Window:            "last 14 days",
		}))
	})
})
