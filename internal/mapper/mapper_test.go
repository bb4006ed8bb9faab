package mapper_test

import (
	"context"
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsehq.app/pulse/internal/embedding"
	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/model"
)

func strPtr(s string) *string { return &s }

func group(id, title string) model.Group {
	return model.Group{ID: id, Project: "acme/app", SuggestedTitle: strPtr(title)}
}

func feature(id, name string, keywords ...string) model.Feature {
	return model.Feature{ID: id, Name: name, RelatedKeywords: keywords}
}

// unitVec builds a 2-d unit vector whose cosine against [1,0] equals cos.
func unitVec(cos float64) []float32 {
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin)}
}

var _ = Describe("FeatureMapper", func() {
	var (
		ctx      context.Context
		cache    *mockCache
		provider *mockProvider
	)

	BeforeEach(func() {
		ctx = context.Background()
		cache = newMockCache()
		provider = &mockProvider{vectors: map[string][]float32{}}
	})

	Describe("with an empty feature catalog", func() {
		It("assigns general to every group", func() {
			m := mapper.New(provider, cache)
			out, err := m.Map(ctx, []model.Group{group("g1", "login is broken")}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{model.GeneralFeature()}))
			Expect(out[0].IsCrossCutting).To(BeFalse())
		})
	})

	Describe("without an embedding provider", func() {
		It("fails in strict mode", func() {
			m := mapper.New(nil, cache, mapper.WithMode(mapper.ModeStrict))
			_, err := m.Map(ctx, []model.Group{group("g1", "login is broken")},
				[]model.Feature{feature("f1", "Auth", "login", "token")})
			Expect(err).To(MatchError(mapper.ErrNoEmbedding))
			Expect(errors.Is(err, embedding.ErrNoCredential)).To(BeTrue())
		})

		It("falls back to keyword matching in best-effort mode", func() {
			m := mapper.New(nil, cache, mapper.WithMode(mapper.ModeBestEffort))
			out, err := m.Map(ctx,
				[]model.Group{group("g1", "login is broken for token refresh")},
				[]model.Feature{feature("f1", "Auth", "login", "token")})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{{ID: "f1", Name: "Auth"}}))
			Expect(out[0].IsCrossCutting).To(BeFalse())
		})

		It("assigns general when no keywords overlap", func() {
			m := mapper.New(nil, cache)
			out, err := m.Map(ctx,
				[]model.Group{group("g1", "dashboard rendering glitch")},
				[]model.Feature{feature("f1", "Auth", "login", "token")})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{model.GeneralFeature()}))
		})
	})

	Describe("with an embedding provider", func() {
		var (
			auth   model.Feature
			search model.Feature
		)

		BeforeEach(func() {
			auth = feature("f1", "Auth")
			search = feature("f2", "Search")
		})

		stage := func(groups []model.Group, features []model.Feature, cosines map[string]float64) {
			for _, g := range groups {
				provider.vectors[mapper.GroupText(g)] = unitVec(1)
			}
			for _, f := range features {
				provider.vectors[mapper.FeatureText(f)] = unitVec(cosines[f.ID])
			}
		}

		It("assigns all features above the threshold, ordered by similarity", func() {
			g := group("g1", "auth and search are both slow")
			stage([]model.Group{g}, []model.Feature{auth, search},
				map[string]float64{"f1": 0.72, "f2": 0.65})

			m := mapper.New(provider, cache)
			out, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth, search})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{
				{ID: "f1", Name: "Auth"},
				{ID: "f2", Name: "Search"},
			}))
			Expect(out[0].IsCrossCutting).To(BeTrue())
		})

		It("assigns general when every similarity is below the threshold", func() {
			g := group("g1", "something unrelated")
			stage([]model.Group{g}, []model.Feature{auth}, map[string]float64{"f1": 0.2})

			m := mapper.New(provider, cache)
			out, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{model.GeneralFeature()}))
			Expect(out[0].IsCrossCutting).To(BeFalse())
		})

		It("assigns general to a group with no text", func() {
			g := model.Group{ID: "g1", Project: "acme/app"}
			stage(nil, []model.Feature{auth}, map[string]float64{"f1": 0.9})

			m := mapper.New(provider, cache)
			out, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{model.GeneralFeature()}))
		})

		It("caps the assignment at five features", func() {
			var features []model.Feature
			cosines := map[string]float64{}
			for i := 1; i <= 6; i++ {
				f := feature(fmt.Sprintf("f%d", i), fmt.Sprintf("Feature %d", i))
				features = append(features, f)
				cosines[f.ID] = 0.99 - float64(i)*0.01
			}
			g := group("g1", "touches everything")
			stage([]model.Group{g}, features, cosines)

			m := mapper.New(provider, cache)
			out, err := m.Map(ctx, []model.Group{g}, features)
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(HaveLen(5))
			Expect(out[0].IsCrossCutting).To(BeTrue())
		})

		It("reuses cached feature vectors when hash and model match", func() {
			g := group("g1", "login is broken")
			stage([]model.Group{g}, []model.Feature{auth}, map[string]float64{"f1": 0.9})

			text := mapper.FeatureText(auth)
			Expect(cache.Put(ctx, auth.ID, unitVec(0.9), embedding.ContentHash(text), provider.Model())).To(Succeed())

			m := mapper.New(provider, cache)
			_, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth})
			Expect(err).NotTo(HaveOccurred())
			// Only the group text needed embedding.
			Expect(provider.embedManyCall).To(BeZero())
		})

		It("re-embeds when the cached vector is from a different model", func() {
			g := group("g1", "login is broken")
			stage([]model.Group{g}, []model.Feature{auth}, map[string]float64{"f1": 0.9})

			text := mapper.FeatureText(auth)
			Expect(cache.Put(ctx, auth.ID, unitVec(0.9), embedding.ContentHash(text), "older-model")).To(Succeed())

			m := mapper.New(provider, cache)
			_, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth})
			Expect(err).NotTo(HaveOccurred())
			Expect(provider.embedManyCall).To(Equal(1))
		})

		It("retries items individually when the batch fails", func() {
			g := group("g1", "login is broken")
			stage([]model.Group{g}, []model.Feature{auth, search},
				map[string]float64{"f1": 0.9, "f2": 0.8})
			provider.embedManyErr = errors.New("rate limited")
			provider.embedOneErr = map[string]error{
				mapper.FeatureText(search): errors.New("still rate limited"),
			}

			m := mapper.New(provider, cache)
			out, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth, search})
			Expect(err).NotTo(HaveOccurred())
			// Auth embedded via per-item retry; Search skipped entirely.
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{{ID: "f1", Name: "Auth"}}))
		})

		It("is deterministic across repeated runs", func() {
			g := group("g1", "auth and search are both slow")
			stage([]model.Group{g}, []model.Feature{auth, search},
				map[string]float64{"f1": 0.72, "f2": 0.65})

			m := mapper.New(provider, cache)
			first, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth, search})
			Expect(err).NotTo(HaveOccurred())
			second, err := m.Map(ctx, []model.Group{g}, []model.Feature{auth, search})
			Expect(err).NotTo(HaveOccurred())
			Expect(second[0].AffectsFeatures).To(Equal(first[0].AffectsFeatures))
		})

		It("honors a custom similarity threshold", func() {
			g := group("g1", "vaguely about auth")
			stage([]model.Group{g}, []model.Feature{auth}, map[string]float64{"f1": 0.5})

			strict := mapper.New(provider, cache)
			out, err := strict.Map(ctx, []model.Group{g}, []model.Feature{auth})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{model.GeneralFeature()}))

			relaxed := mapper.New(provider, cache, mapper.WithMinSimilarity(0.4))
			out, err = relaxed.Map(ctx, []model.Group{g}, []model.Feature{auth})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].AffectsFeatures).To(Equal([]model.FeatureRef{{ID: "f1", Name: "Auth"}}))
		})
	})
})

var _ = Describe("FeatureText", func() {
	It("concatenates name, description, and keywords", func() {
		desc := "Login and session handling"
		f := model.Feature{ID: "f1", Name: "Auth", Description: &desc, RelatedKeywords: []string{"login", "token"}}
		Expect(mapper.FeatureText(f)).To(Equal("Auth: Login and session handling Keywords: login, token"))
	})

	It("omits empty clauses", func() {
		f := model.Feature{ID: "f1", Name: "Auth"}
		Expect(mapper.FeatureText(f)).To(Equal("Auth"))
	})
})

var _ = Describe("GroupText", func() {
	It("joins title, linked issue title, and member titles", func() {
		g := model.Group{
			ID:               "g1",
			SuggestedTitle:   strPtr("Login failures"),
			LinkedIssueTitle: strPtr("Auth tokens expire early"),
			Members: []model.Thread{
				{ID: "t1", Title: "cannot log in"},
				{ID: "t2", Title: ""},
			},
		}
		Expect(mapper.GroupText(g)).To(Equal("Login failures Auth tokens expire early cannot log in"))
	})

	It("is empty for a group with no textual content", func() {
		Expect(mapper.GroupText(model.Group{ID: "g1"})).To(BeEmpty())
	})
})
