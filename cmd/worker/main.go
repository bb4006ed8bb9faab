package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pulsehq.app/pulse/common/id"
	"pulsehq.app/pulse/common/llm"
	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/common/otel"
	"pulsehq.app/pulse/core/config"
	"pulsehq.app/pulse/core/db"
	"pulsehq.app/pulse/internal/distiller"
	"pulsehq.app/pulse/internal/embedding"
	"pulsehq.app/pulse/internal/mapper"
	"pulsehq.app/pulse/internal/queue"
	"pulsehq.app/pulse/internal/service"
	"pulsehq.app/pulse/internal/store"
	"pulsehq.app/pulse/internal/tracker"
	"pulsehq.app/pulse/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "pulse worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Initialize snowflake ID generator (use different node ID than server)
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
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
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // Process one task at a time
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database)
	services := buildServices(ctx, cfg, stores)

	w := worker.New(consumer, services, worker.Config{
		MaxAttempts: 3,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop reclaimer first (quick)
	reclaimer.Stop()

	// Stop worker (may be processing)
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func buildServices(ctx context.Context, cfg config.Config, stores *store.Stores) *service.Services {
	var provider embedding.Provider
	if cfg.OpenAI.Enabled() {
		p, err := embedding.NewOpenAIProvider(cfg.OpenAI)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create embedding provider", "error", err)
			os.Exit(1)
		}
		provider = p
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
	}

	return service.NewServices(stores, featureMapper, contextDistiller, trk, llmClient, cfg.Distill.LookbackDays, nil)
}

const banner = `
██████╗ ██╗   ██╗██╗     ███████╗███████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██╔══██╗██║   ██║██║     ██╔════╝██╔════╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██████╔╝██║   ██║██║     ███████╗█████╗      ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝      ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║     ╚██████╔╝███████╗███████║███████╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝     ╚═══╝╚═══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
