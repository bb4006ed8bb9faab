package router

import (
	"github.com/gin-gonic/gin"

	"pulsehq.app/pulse/internal/http/handler"
)

func GroupRouter(rg *gin.RouterGroup, h *handler.MappingHandler) {
	rg.POST("/map-features", h.MapFeatures)
}
