package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/service"
	"pulsehq.app/pulse/internal/store"
)

// nullCache satisfies embedding.Cache for keyword-mode tests where the
// mapper never touches the cache.
type nullCache struct{}

func (nullCache) Get(ctx context.Context, entityID string) (*model.Embedding, error) {
	return nil, store.ErrNotFound
}

func (nullCache) Put(ctx context.Context, entityID string, vector []float32, contentHash, embeddingModel string) error {
	return nil
}

func strPtr(s string) *string { return &s }

var _ = Describe("MappingService", func() {
	var (
		ctx      context.Context
		stores   *store.Stores
		features []model.Feature
		groups   map[string]*model.Group
		batches  [][]store.AssignmentUpdate
	)

	saved := func(id string) []model.FeatureRef {
		for _, batch := range batches {
			for _, u := range batch {
				if u.GroupID == id {
					return u.Features
				}
			}
		}
		return nil
	}

	BeforeEach(func() {
		ctx = context.Background()
		stores = newStores()
		batches = nil

		features = []model.Feature{
			{ID: "auth", Name: "Auth", RelatedKeywords: []string{"login", "token"}},
			{ID: "search", Name: "Search", RelatedKeywords: []string{"index", "query"}},
		}
		groups = map[string]*model.Group{
			"g1": {ID: "g1", Project: "acme/app", SuggestedTitle: strPtr("login is broken for token refresh")},
			"g2": {ID: "g2", Project: "acme/app", SuggestedTitle: strPtr("search index never updates the query results")},
		}

		stores.Features = &mockFeatureStore{
			listFn: func(ctx context.Context) ([]model.Feature, error) { return features, nil },
		}
		stores.Groups = &mockGroupStore{
			getByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
				g, ok := groups[id]
				if !ok {
					return nil, store.ErrNotFound
				}
				return g, nil
			},
			updateAssignmentsFn: func(ctx context.Context, updates []store.AssignmentUpdate) error {
				batches = append(batches, updates)
				return nil
			},
		}
	})

	newService := func(mode mapper.Mode) service.MappingService {
		m := mapper.New(nil, nullCache{}, mapper.WithMode(mode))
		return service.NewMappingService(stores, m, nil)
	}

	It("maps groups and persists the assignments", func() {
		svc := newService(mapper.ModeBestEffort)

		result, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Groups).To(HaveLen(1))
		Expect(result.Groups[0].AffectsFeatures).To(Equal([]model.FeatureRef{{ID: "auth", Name: "Auth"}}))
		Expect(saved("g1")).To(Equal([]model.FeatureRef{{ID: "auth", Name: "Auth"}}))
	})

	It("persists all assignments as a single batch", func() {
		svc := newService(mapper.ModeBestEffort)

		_, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1", "g2"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(batches).To(HaveLen(1))
		Expect(batches[0]).To(HaveLen(2))
		Expect(saved("g1")).To(Equal([]model.FeatureRef{{ID: "auth", Name: "Auth"}}))
		Expect(saved("g2")).To(Equal([]model.FeatureRef{{ID: "search", Name: "Search"}}))
	})

	It("surfaces a rejected assignment batch", func() {
		stores.Groups.(*mockGroupStore).updateAssignmentsFn = func(ctx context.Context, updates []store.AssignmentUpdate) error {
			return errors.New("connection reset")
		}
		svc := newService(mapper.ModeBestEffort)

		_, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1", "g2"},
		})
		Expect(err).To(MatchError(ContainSubstring("persisting assignments")))
	})

	It("skips missing groups but maps the rest", func() {
		svc := newService(mapper.ModeBestEffort)

		result, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1", "missing"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Groups).To(HaveLen(1))
		Expect(result.Skipped).To(Equal([]string{"missing"}))
	})

	It("fails when no requested group exists", func() {
		svc := newService(mapper.ModeBestEffort)

		_, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"missing"},
		})
		Expect(err).To(MatchError(service.ErrGroupNotFound))
	})

	It("rejects an empty group list", func() {
		svc := newService(mapper.ModeBestEffort)

		_, err := svc.MapGroups(ctx, service.MapGroupsParams{Project: "acme/app"})
		Expect(err).To(HaveOccurred())
	})

	It("propagates the strict-mode configuration error", func() {
		svc := newService(mapper.ModeStrict)

		_, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1"},
		})
		Expect(errors.Is(err, mapper.ErrNoEmbedding)).To(BeTrue())
	})

	It("does not persist anything when mapping fails", func() {
		svc := newService(mapper.ModeStrict)

		_, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1"},
		})
		Expect(err).To(HaveOccurred())
		Expect(batches).To(BeEmpty())
	})

	It("assigns general when the catalog is empty", func() {
		features = nil
		svc := newService(mapper.ModeBestEffort)

		result, err := svc.MapGroups(ctx, service.MapGroupsParams{
			Project:  "acme/app",
			GroupIDs: []string{"g1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Groups[0].AffectsFeatures).To(Equal([]model.FeatureRef{model.GeneralFeature()}))
	})
})

var _ = Describe("DistillService", func() {
	var (
		ctx      context.Context
		stores   *store.Stores
		created  []*model.Session
		finished map[string]*string
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newStores()
		created = nil
		finished = map[string]*string{}

		stores.Sessions = &mockSessionStore{
			getLatestFn: func(ctx context.Context, project string) (*model.Session, error) {
				return &model.Session{ID: "prev", Project: project, Scope: strPtr("auth"), StartedAt: time.Now().UTC()}, nil
			},
			createFn: func(ctx context.Context, session *model.Session) error {
				created = append(created, session)
				return nil
			},
			finishFn: func(ctx context.Context, id string, summary *string, endedAt time.Time) error {
				finished[id] = summary
				return nil
			},
		}
	})

	It("distills and records a finished session", func() {
		svc := newDistillService(stores)

		result, err := svc.Distill(ctx, service.DistillParams{Project: "acme/app", Scope: strPtr("auth")})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Context).NotTo(BeNil())
		Expect(result.SessionID).NotTo(BeEmpty())
		Expect(result.LastSession.ID).To(Equal("prev"))
		Expect(result.Context.Preferences.LastSessionScope).To(Equal("auth"))

		Expect(created).To(HaveLen(1))
		Expect(created[0].Scope).To(Equal(strPtr("auth")))
		Expect(finished).To(HaveKey(created[0].ID))
		Expect(*finished[created[0].ID]).To(ContainSubstring("active issues"))
	})

	It("requires a project", func() {
		svc := newDistillService(stores)

		_, err := svc.Distill(ctx, service.DistillParams{})
		Expect(err).To(HaveOccurred())
	})
})
