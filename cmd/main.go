package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/internal/config"
	"edu-learning-platform/internal/logger"
	"edu-learning-platform/internal/queue"
	"edu-learning-platform/internal/telemetry"
	"edu-learning-platform/middleware"
	"edu-learning-platform/routes"
	"edu-learning-platform/services"
	"edu-learning-platform/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize structured logging
	logger.InitLogger(cfg)

	// Telemetry is best effort: the service runs fine without a collector.
	if shutdown, err := telemetry.InitTracer("edu-learning-platform"); err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdown()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
		metrics = nil
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Connect to Redis (embedding cache, rate limiting, task queue)
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// AI clients
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	llmClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.LLMModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize LLM client:", err)
	}
	defer llmClient.Close()

	// Stores
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.DBName))
	embeddingCache := store.NewRedisEmbeddingCache(redisClient, time.Duration(cfg.EmbeddingCacheTTLSeconds)*time.Second)

	// Services
	chunker, err := services.NewChunkingService(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}

	ingestion := services.NewIngestionService(chunker, embedder, mongoStore, mongoStore, cfg.EmbedRatePerSecond, cfg.EmbedBurst)
	retrieval := services.NewRetrievalService(embedder, mongoStore, embeddingCache, cfg.DefaultTopK, cfg.MaxTopK)
	memory := services.NewMemoryService(retrieval, mongoStore, cfg.ContextBudgetChars, cfg.MemoryTurnLimit)
	synthesis := services.NewSynthesisService(llmClient)
	citations := services.NewCitationService(mongoStore)
	query := services.NewQueryService(memory, synthesis, citations, mongoStore)
	evaluation := services.NewEvaluationService(mongoStore, memory, synthesis, cfg.EvalBatchWidth, cfg.EvalMaxQuestions, cfg.EvalPassThreshold, time.Duration(cfg.EvalQuestionTimeoutSec)*time.Second)

	// Task queue client for oversized ingestion payloads
	redisOpt, err := queue.RedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration for task queue:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg))
	router.Use(middleware.RequestSizeLimit(cfg.MaxRequestBytes))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"mongo": "ok", "redis": "ok"}
		if err := mongoClient.Ping(ctx, nil); err != nil {
			checks["mongo"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{"status": checks, "timestamp": time.Now()})
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg)

	// Setup routes
	routes.SetupDocumentRoutes(router, cfg, ingestion, mongoStore, queueClient, authMiddleware, metrics)
	routes.SetupQueryRoutes(router, cfg, query, citations, mongoStore, authMiddleware, metrics)
	routes.SetupEvaluationRoutes(router, cfg, evaluation, authMiddleware, metrics)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
