package router

import (
	"github.com/gin-gonic/gin"

	"pulsehq.app/pulse/internal/http/handler"
	"pulsehq.app/pulse/internal/queue"
	"pulsehq.app/pulse/internal/service"
)

type RouterConfig struct {
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, services *service.Services, producer queue.Producer, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		distillHandler := handler.NewDistillHandler(services.Distill())
		v1.POST("/distill", distillHandler.Distill)

		mappingHandler := handler.NewMappingHandler(services.Mapping(), producer)
		GroupRouter(v1.Group("/groups"), mappingHandler)

		adminHandler := handler.NewAdminHandler(services.TrackerSync(), services.FeatureExtract(), producer, cfg.AdminAPIKey)
		AdminRouter(v1.Group("/admin"), adminHandler)
	}
}
