package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/api/handlers"
	"github.com/lawbot/backend/internal/cache/redis"
	"github.com/lawbot/backend/internal/chat"
	"github.com/lawbot/backend/internal/index"
	"github.com/lawbot/backend/internal/learning"
	"github.com/lawbot/backend/internal/llm"
	"github.com/lawbot/backend/internal/metrics"
	"github.com/lawbot/backend/internal/middleware/ratelimit"
	"github.com/lawbot/backend/internal/middleware/security"
	"github.com/lawbot/backend/internal/middleware/validation"
	"github.com/lawbot/backend/internal/quota"
	"github.com/lawbot/backend/internal/search"
	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/internal/storage/sqlite"
	"github.com/lawbot/backend/pkg/config"
	appLogger "github.com/lawbot/backend/pkg/logger"
)

// contentStore adapts the SQLite client to the document listing the
// index and learning layers consume.
type contentStore struct {
	db *sqlite.Client
}

func (s *contentStore) ListPublished(ctx context.Context) ([]models.Document, error) {
	return s.db.ListPublishedDocuments(ctx)
}

func (s *contentStore) Get(ctx context.Context, id int64) (*models.Document, error) {
	return s.db.GetDocument(ctx, id)
}

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

	appLogger.Info("Starting legal assistant API server")

	metrics.Init()

	db, err := sqlite.New(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open SQLite database", zap.Error(err))
	}
	defer db.Close()

	docs := &contentStore{db: db}
	titleIndex := index.NewCache(docs, time.Duration(cfg.Search.IndexTTLSeconds)*time.Second)

	searchEngine := search.NewEngine(titleIndex, db, search.WeightsFromConfig(cfg.Search))
	learner := learning.NewEngine(searchEngine, db, docs, cfg.Learning)
	limiter := quota.NewLimiter(db, cfg.Quota)

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	var answerCache chat.AnswerCache
	var invalidator handlers.AnswerInvalidator
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.AnswerTTLMinutes)*time.Minute,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, answer caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			answerCache = redisClient
			invalidator = redisClient
		}
	}

	chatService := chat.NewService(db, learner, limiter, llmClient, answerCache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	burst := ratelimit.New(ratelimit.Config{})
	defer burst.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{}))

	askHandler := handlers.NewAskHandler(chatService)
	feedbackHandler := handlers.NewFeedbackHandler(learner)
	adminHandler := handlers.NewAdminHandler(db, learner, titleIndex, invalidator, cfg.Learning)
	wsHandler := handlers.NewWebSocketHandler(chatService)

	api := app.Group("/api/v1")

	api.Post("/ask", burst.Middleware(), askHandler.HandleAsk)
	api.Post("/feedback", feedbackHandler.HandleFeedback)

	api.Use("/ask/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ask/ws", websocket.New(wsHandler.HandleConnection))

	admin := api.Group("/admin")
	admin.Get("/stats", adminHandler.GetStatistics)
	admin.Get("/learning", adminHandler.GetLearningStats)
	admin.Get("/missing-topics", adminHandler.ListMissingTopics)
	admin.Post("/missing-topics/:id/handled", adminHandler.MarkMissingTopicHandled)
	admin.Post("/documents", adminHandler.SyncDocuments)
	admin.Post("/documents/refresh", adminHandler.RefreshIndex)
	admin.Delete("/documents/:id", adminHandler.DeleteDocument)
	admin.Post("/maintenance", adminHandler.RunMaintenance)

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if _, err := titleIndex.Entries(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
			})
		}
		return c.JSON(fiber.Map{
			"status":  "ready",
			"indexed": titleIndex.Size(),
		})
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
	appLogger.Info("Server stopped")
}
