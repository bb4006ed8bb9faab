package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"pulsehq.app/pulse/internal/http/dto"
	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/queue"
	"pulsehq.app/pulse/internal/service"
)

type MappingHandler struct {
	service  service.MappingService
	producer queue.Producer
}

func NewMappingHandler(service service.MappingService, producer queue.Producer) *MappingHandler {
	return &MappingHandler{
		service:  service,
		producer: producer,
	}
}

func (h *MappingHandler) MapFeatures(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.MapFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid map-features request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Async {
		if h.producer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue not configured"})
			return
		}

		task := queue.Task{
			TaskType: queue.TaskTypeMapFeatures,
			Project:  req.Project,
			GroupIDs: req.GroupIDs,
		}
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID := spanCtx.TraceID().String()
			task.TraceID = &traceID
		}

		if err := h.producer.Enqueue(ctx, task); err != nil {
			slog.ErrorContext(ctx, "failed to enqueue mapping task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue mapping task"})
			return
		}

		c.JSON(http.StatusAccepted, dto.MapFeaturesResponse{Enqueued: true})
		return
	}

	result, err := h.service.MapGroups(ctx, service.MapGroupsParams{
		Project:  req.Project,
		GroupIDs: req.GroupIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no such groups"})
		case errors.Is(err, mapper.ErrNoEmbedding):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "embedding provider not configured"})
		default:
			slog.ErrorContext(ctx, "failed to map groups", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to map groups"})
		}
		return
	}

	resp := dto.MapFeaturesResponse{Skipped: result.Skipped}
	for _, g := range result.Groups {
		resp.Groups = append(resp.Groups, dto.GroupAssignment{
			GroupID:         g.ID,
			AffectsFeatures: g.AffectsFeatures,
			IsCrossCutting:  g.IsCrossCutting,
		})
	}

	c.JSON(http.StatusOK, resp)
}
