package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/Asdafers/contenitzer-sub001/config"
	"github.com/Asdafers/contenitzer-sub001/handlers"
	"github.com/Asdafers/contenitzer-sub001/internal/ffmpeg"
	"github.com/Asdafers/contenitzer-sub001/internal/pipeline"
	"github.com/Asdafers/contenitzer-sub001/internal/progress"
	"github.com/Asdafers/contenitzer-sub001/internal/providers"
	"github.com/Asdafers/contenitzer-sub001/internal/providers/gemini"
	"github.com/Asdafers/contenitzer-sub001/internal/providers/openai"
	"github.com/Asdafers/contenitzer-sub001/internal/store"
	"github.com/Asdafers/contenitzer-sub001/internal/store/memory"
	"github.com/Asdafers/contenitzer-sub001/internal/store/supastore"
	"github.com/Asdafers/contenitzer-sub001/internal/worker"
	"github.com/Asdafers/contenitzer-sub001/internal/youtube"
	"github.com/Asdafers/contenitzer-sub001/middleware"
)

func main() {
	// .env is for local development; deployed environments set real env vars.
	_ = godotenv.Load()

	config.InitLogger()
	log := config.Log

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	profile, err := config.LoadPipelineProfile(cfg.PipelineProfile)
	if err != nil {
		log.Fatalf("Failed to load pipeline profile: %v", err)
	}

	for _, dir := range []string{cfg.MediaRoot, cfg.WorkRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	var stores store.Stores
	switch cfg.StoreBackend {
	case "supabase":
		client, err := config.NewSupabaseClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Supabase: %v", err)
		}
		stores = supastore.New(client).Bundle()
		log.Info("Using Supabase store backend")
	default:
		stores = memory.New().Bundle()
		log.Info("Using in-memory store backend")
	}

	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiImageModel, cfg.GeminiTextModel)
	openaiClient := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAITTSModel, cfg.OpenAITTSVoice)

	var publisher pipeline.VideoPublisher
	if cfg.YouTubeClientID != "" && cfg.YouTubeRefreshToken != "" {
		publisher = youtube.NewUploader(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeRefreshToken, log)
	} else {
		log.Warn("YouTube credentials not set; publishing is disabled")
	}

	tracker := progress.NewTracker(log)
	dispatcher := worker.NewDispatcher(cfg.WorkerCount, cfg.JobQueueSize, log)

	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()
	dispatcher.Run(poolCtx)

	executor := pipeline.NewExecutor(pipeline.Options{
		Stores:     stores,
		Tracker:    tracker,
		Dispatcher: dispatcher,
		Images:     geminiClient,
		Audio:      openaiClient,
		Compositor: ffmpeg.NewCompositor(),
		Publisher:  publisher,
		Probe: func(ctx context.Context, filePath string) (float64, error) {
			result, err := ffmpeg.Probe(ctx, filePath)
			if err != nil {
				return 0, err
			}
			return result.DurationSec, nil
		},
		Profile:   profile,
		Logger:    log,
		WorkRoot:  cfg.WorkRoot,
		MediaRoot: cfg.MediaRoot,
	})

	var scripts providers.ScriptService
	if cfg.GeminiAPIKey != "" {
		scripts = geminiClient
	}
	handler := handlers.NewApplicationHandler(executor, stores, tracker, scripts, log)

	app := fiber.New(fiber.Config{
		AppName:               "contentizer",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Range",
	}))
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "contentizer is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	apiV1.Post("/scripts", handler.CreateScript)
	apiV1.Post("/scripts/generate", handler.GenerateScript)
	apiV1.Get("/scripts/:id", handler.GetScript)

	apiV1.Post("/videos/generate", handler.GenerateVideo)
	apiV1.Get("/videos/jobs/:jobId/status", handler.GetJobStatus)
	apiV1.Post("/videos/jobs/:jobId/cancel", handler.CancelJob)
	apiV1.Get("/videos/:id", handler.GetVideo)
	apiV1.Get("/videos/:id/download", handler.DownloadVideo)
	apiV1.Get("/videos/:id/stream", handler.StreamVideo)
	apiV1.Post("/videos/:id/publish", handler.PublishVideo)

	apiV1.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	apiV1.Get("/ws/progress/:sessionId", websocket.New(handlers.ProgressSocket(tracker, log)))

	// Serve and shut down gracefully: stop accepting requests first, then
	// drain the worker pool so in-flight jobs finish their current stage.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorf("Server shutdown error: %v", err)
		}
	}()

	log.Infof("Starting contentizer on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}

	poolCancel()
	dispatcher.Stop()
	log.Info("Shutdown complete")
}
