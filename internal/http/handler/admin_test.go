package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsehq.app/pulse/internal/http/handler"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/service"
)

type mockSyncService struct {
	syncFn func(ctx context.Context, project string) (*service.SyncResult, error)
}

func (m *mockSyncService) Sync(ctx context.Context, project string) (*service.SyncResult, error) {
	if m.syncFn != nil {
		return m.syncFn(ctx, project)
	}
	return &service.SyncResult{}, nil
}

type mockExtractService struct {
	extractFn func(ctx context.Context, project string) ([]model.Feature, error)
}

func (m *mockExtractService) Extract(ctx context.Context, project string) ([]model.Feature, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, project)
	}
	return nil, nil
}

var _ = Describe("AdminHandler", func() {
	const apiKey = "test-admin-key"

	var (
		router  *gin.Engine
		sync    *mockSyncService
		extract *mockExtractService
	)

	setup := func(key string) {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		sync = &mockSyncService{}
		extract = &mockExtractService{}
		h := handler.NewAdminHandler(sync, extract, &mockProducer{}, key)

		admin := router.Group("/admin")
		admin.Use(h.RequireAdminAPIKey())
		admin.POST("/sync", h.SyncTracker)
		admin.POST("/features/extract", h.ExtractFeatures)
	}

	post := func(path string, body map[string]any, headers map[string]string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("RequireAdminAPIKey middleware", func() {
		BeforeEach(func() { setup(apiKey) })

		It("rejects requests without a key", func() {
			w := post("/admin/sync", map[string]any{"project": "acme/app"}, nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects requests with the wrong key", func() {
			w := post("/admin/sync", map[string]any{"project": "acme/app"},
				map[string]string{"X-Admin-API-Key": "wrong"})
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the key via the admin header", func() {
			w := post("/admin/sync", map[string]any{"project": "acme/app"},
				map[string]string{"X-Admin-API-Key": apiKey})
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("accepts the key as a bearer token", func() {
			w := post("/admin/sync", map[string]any{"project": "acme/app"},
				map[string]string{"Authorization": "Bearer " + apiKey})
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 503 when no admin key is configured", func() {
			setup("")
			w := post("/admin/sync", map[string]any{"project": "acme/app"},
				map[string]string{"X-Admin-API-Key": apiKey})
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("SyncTracker", func() {
		BeforeEach(func() { setup(apiKey) })

		It("returns the sync counts", func() {
			sync.syncFn = func(_ context.Context, project string) (*service.SyncResult, error) {
				Expect(project).To(Equal("acme/app"))
				return &service.SyncResult{Issues: 12, Changes: 4}, nil
			}

			w := post("/admin/sync", map[string]any{"project": "acme/app"},
				map[string]string{"X-Admin-API-Key": apiKey})

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["issues"]).To(BeEquivalentTo(12))
			Expect(resp["changes"]).To(BeEquivalentTo(4))
		})
	})

	Describe("ExtractFeatures", func() {
		BeforeEach(func() { setup(apiKey) })

		It("returns the created features", func() {
			extract.extractFn = func(_ context.Context, project string) ([]model.Feature, error) {
				return []model.Feature{{ID: "auth", Name: "Auth", RelatedKeywords: []string{"login"}}}, nil
			}

			w := post("/admin/features/extract", map[string]any{"project": "acme/app"},
				map[string]string{"X-Admin-API-Key": apiKey})

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			features := resp["features"].([]any)
			Expect(features).To(HaveLen(1))
			Expect(features[0].(map[string]any)["id"]).To(Equal("auth"))
		})
	})
})
