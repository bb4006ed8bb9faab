package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pulsehq.app/pulse/internal/http/dto"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/service"
)

type DistillHandler struct {
	service service.DistillService
}

func NewDistillHandler(service service.DistillService) *DistillHandler {
	return &DistillHandler{service: service}
}

func (h *DistillHandler) Distill(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.DistillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid distill request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Distill(ctx, service.DistillParams{
		Project: req.Project,
		Scope:   req.Scope,
		Since:   req.Since,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to distill project context", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to distill project context"})
		return
	}

	c.JSON(http.StatusOK, dto.DistillResponse{
		SessionID:   result.SessionID,
		Context:     *result.Context,
		LastSession: toSessionResponse(result.LastSession),
	})
}

func toSessionResponse(s *model.Session) *dto.SessionResponse {
	if s == nil {
		return nil
	}
	resp := &dto.SessionResponse{
		ID:        s.ID,
		Scope:     s.Scope,
		Summary:   s.Summary,
		StartedAt: s.StartedAt.Format(time.RFC3339),
	}
	if s.EndedAt != nil {
		endedAt := s.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &endedAt
	}
	return resp
}
