package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pulsehq.app/pulse/internal/http/dto"
	"pulsehq.app/pulse/internal/queue"
	"pulsehq.app/pulse/internal/service"
)

// AdminHandler exposes operational endpoints: tracker sync and feature
// catalog extraction. Both are gated by the admin API key.
type AdminHandler struct {
	sync        service.TrackerSyncService
	extract     service.FeatureExtractService
	producer    queue.Producer
	adminAPIKey string
}

func NewAdminHandler(
	sync service.TrackerSyncService,
	extract service.FeatureExtractService,
	producer queue.Producer,
	adminAPIKey string,
) *AdminHandler {
	return &AdminHandler{
		sync:        sync,
		extract:     extract,
		producer:    producer,
		adminAPIKey: adminAPIKey,
	}
}

func (h *AdminHandler) SyncTracker(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid sync request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Async {
		if h.producer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue not configured"})
			return
		}
		if err := h.producer.Enqueue(ctx, queue.Task{
			TaskType: queue.TaskTypeTrackerSync,
			Project:  req.Project,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to enqueue sync task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sync task"})
			return
		}
		c.JSON(http.StatusAccepted, dto.SyncResponse{Enqueued: true})
		return
	}

	result, err := h.sync.Sync(ctx, req.Project)
	if err != nil {
		slog.ErrorContext(ctx, "tracker sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tracker sync failed"})
		return
	}

	c.JSON(http.StatusOK, dto.SyncResponse{Issues: result.Issues, Changes: result.Changes})
}

func (h *AdminHandler) ExtractFeatures(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ExtractFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid extract request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	features, err := h.extract.Extract(ctx, req.Project)
	if err != nil {
		slog.ErrorContext(ctx, "feature extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feature extraction failed"})
		return
	}

	resp := dto.ExtractFeaturesResponse{Features: []dto.FeatureResponse{}}
	for _, f := range features {
		resp.Features = append(resp.Features, dto.FeatureResponse{
			ID:              f.ID,
			Name:            f.Name,
			Description:     f.Description,
			RelatedKeywords: f.RelatedKeywords,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// RequireAdminAPIKey middleware checks for valid admin API key
func (h *AdminHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			apiKey = strings.TrimPrefix(apiKey, "Bearer ")
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
