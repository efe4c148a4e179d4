package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/api/handlers"
	"github.com/chadd28/hackrice-15-sub000/internal/cache/embedcache"
	"github.com/chadd28/hackrice-15-sub000/internal/cache/redis"
	"github.com/chadd28/hackrice-15-sub000/internal/content"
	"github.com/chadd28/hackrice-15-sub000/internal/embedding"
	"github.com/chadd28/hackrice-15-sub000/internal/evaluation"
	"github.com/chadd28/hackrice-15-sub000/internal/metrics"
	"github.com/chadd28/hackrice-15-sub000/internal/middleware/ratelimit"
	"github.com/chadd28/hackrice-15-sub000/internal/middleware/security"
	"github.com/chadd28/hackrice-15-sub000/internal/middleware/validation"
	"github.com/chadd28/hackrice-15-sub000/internal/storage/sqlite"
	"github.com/chadd28/hackrice-15-sub000/pkg/config"
	appLogger "github.com/chadd28/hackrice-15-sub000/pkg/logger"
	"github.com/chadd28/hackrice-15-sub000/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting PrepAI evaluation server")

	metrics.Init()

	provider := embedding.NewProvider(embedding.Config{
		APIKey:       cfg.Embeddings.APIKey,
		Model:        cfg.Embeddings.Model,
		Dimension:    cfg.Embeddings.Dimension,
		Timeout:      time.Duration(cfg.Embeddings.TimeoutSec) * time.Second,
		BatchTimeout: time.Duration(cfg.Embeddings.BatchTimeoutSec) * time.Second,
		MaxBatchSize: cfg.Embeddings.MaxBatchSize,
		Retry: retry.Config{
			MaxAttempts:  cfg.Embeddings.Retry.MaxAttempts,
			InitialDelay: time.Duration(cfg.Embeddings.Retry.InitialDelayMS) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Embeddings.Retry.MaxDelayMS) * time.Millisecond,
			Multiplier:   cfg.Embeddings.Retry.Multiplier,
		},
	})

	embedCache := embedcache.New(
		embedcache.NewFileStore(cfg.Cache.Path),
		provider.Model(),
	)

	historyClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer historyClient.Close()

	if err := historyClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var respCache *redis.Client
	if cfg.Redis.Enabled {
		respCache, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, response caching disabled", zap.Error(err))
			respCache = nil
		} else {
			defer respCache.Close()
		}
	}

	engine := evaluation.NewEngine(
		provider,
		embedCache,
		evaluation.FileBankLoader(cfg.Questions.Path),
		evaluation.ScoringConfig{
			SemanticWeight:     cfg.Scoring.SemanticWeight,
			KeywordWeight:      cfg.Scoring.KeywordWeight,
			ExcellentThreshold: cfg.Scoring.ExcellentThreshold,
			GoodThreshold:      cfg.Scoring.GoodThreshold,
			PartialThreshold:   cfg.Scoring.PartialThreshold,
		},
	)

	initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := engine.Initialize(initCtx); err != nil {
		cancel()
		appLogger.Fatal("Failed to initialize evaluation engine", zap.Error(err))
	}
	cancel()

	scraper := content.NewScraper(
		time.Duration(cfg.Scraper.TimeoutSec)*time.Second,
		cfg.Scraper.MaxKeywords,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	evaluateHandler := handlers.NewEvaluateHandler(engine, respCache, historyClient)
	questionHandler := handlers.NewQuestionHandler(engine)
	postingHandler := handlers.NewPostingHandler(scraper)
	interviewHandler := handlers.NewInterviewHandler(engine)

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Post("/evaluate/batch", evaluateHandler.HandleEvaluateBatch)
	api.Get("/evaluate/history", evaluateHandler.GetHistory)
	api.Get("/evaluate/aggregates", evaluateHandler.GetAggregates)
	api.Post("/evaluate/cache/invalidate", evaluateHandler.HandleInvalidateCache)

	api.Get("/questions", questionHandler.HandleListQuestions)
	api.Get("/questions/role/:role", questionHandler.HandleQuestionsByRole)
	api.Get("/questions/:id", questionHandler.HandleGetQuestion)

	api.Post("/postings/analyze", postingHandler.HandleAnalyzePosting)

	api.Get("/status", questionHandler.HandleStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/interview", websocket.New(interviewHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/ready", func(c *fiber.Ctx) error {
		status := engine.Status()
		if !status.Ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	embedCache.Flush()
	appLogger.Info("Server stopped")
}
