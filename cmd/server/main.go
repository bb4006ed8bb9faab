package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pulsehq.app/pulse/common/id"
	"pulsehq.app/pulse/common/llm"
	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/common/otel"
	"pulsehq.app/pulse/core/config"
	"pulsehq.app/pulse/core/db"
	"pulsehq.app/pulse/internal/distiller"
	"pulsehq.app/pulse/internal/embedding"
	"pulsehq.app/pulse/internal/http/middleware"
	httprouter "pulsehq.app/pulse/internal/http/router"
	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/queue"
	"pulsehq.app/pulse/internal/service"
	"pulsehq.app/pulse/internal/store"
	"pulsehq.app/pulse/internal/tracker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Logger is not set up yet at this point
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "pulse starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	taskProducer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, nil)
	defer taskProducer.Close()

	stores := store.NewStores(database)

	services := buildServices(ctx, cfg, stores)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, taskProducer)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// buildServices wires the optional capabilities: the embedding provider, the
// tracker client, and the extractor model are all absent when unconfigured
// and every service degrades accordingly.
func buildServices(ctx context.Context, cfg config.Config, stores *store.Stores) *service.Services {
	var provider embedding.Provider
	if cfg.OpenAI.Enabled() {
		p, err := embedding.NewOpenAIProvider(cfg.OpenAI)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create embedding provider", "error", err)
			os.Exit(1)
		}
		provider = p
		slog.InfoContext(ctx, "embedding provider configured", "model", cfg.OpenAI.EmbeddingModel)
	} else {
		slog.InfoContext(ctx, "no embedding provider configured", "mapper_mode", cfg.Mapper.Mode)
	}

	featureMapper := mapper.New(provider, stores.Embeddings,
		mapper.WithMinSimilarity(cfg.Mapper.MinSimilarity),
		mapper.WithMode(mapper.Mode(cfg.Mapper.Mode)),
	)

	contextDistiller := distiller.New(stores, cfg.Distill.LookbackDays)

	var trk tracker.Tracker
	if cfg.Tracker.Enabled() {
		t, err := tracker.NewGitLab(cfg.Tracker)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create tracker client", "error", err)
			os.Exit(1)
		}
		trk = t
		slog.InfoContext(ctx, "tracker configured", "project", cfg.Tracker.ProjectID)
	}

	var llmClient llm.Client
	if cfg.ExtractorLLM.Enabled() {
		c, err := llm.New(llm.Config{
			Provider: cfg.ExtractorLLM.Provider,
			APIKey:   cfg.ExtractorLLM.APIKey,
			BaseURL:  cfg.ExtractorLLM.BaseURL,
			Model:    cfg.ExtractorLLM.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create extractor model client", "error", err)
			os.Exit(1)
		}
		llmClient = c
		slog.InfoContext(ctx, "extractor model configured", "provider", cfg.ExtractorLLM.Provider, "model", llmClient.Model())
	}

	return service.NewServices(stores, featureMapper, contextDistiller, trk, llmClient, cfg.Distill.LookbackDays, nil)
}

func setupRouter(cfg config.Config, services *service.Services, producer queue.Producer) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, producer, httprouter.RouterConfig{
		AdminAPIKey: cfg.AdminAPIKey,
	})

	return router
}

const banner = `
██████╗ ██╗   ██╗██╗     ███████╗███████╗
██╔══██╗██║   ██║██║     ██╔════╝██╔════╝
██████╔╝██║   ██║██║     ███████╗█████╗
██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝
██║     ╚██████╔╝███████╗███████║███████╗
╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝
`
