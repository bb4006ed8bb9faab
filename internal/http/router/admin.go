package router

import (
	"github.com/gin-gonic/gin"

	"pulsehq.app/pulse/internal/http/handler"
)

func AdminRouter(rg *gin.RouterGroup, h *handler.AdminHandler) {
	rg.Use(h.RequireAdminAPIKey())
	rg.POST("/sync", h.SyncTracker)
	rg.POST("/features/extract", h.ExtractFeatures)
}
