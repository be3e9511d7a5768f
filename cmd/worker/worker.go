package main

import (
	"context"
	"log"
	"time"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/internal/config"
	"edu-learning-platform/internal/logger"
	"edu-learning-platform/internal/queue"
	"edu-learning-platform/services"
	"edu-learning-platform/store"

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

	// Embedder for queued ingestion work
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.DBName))

	chunker, err := services.NewChunkingService(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}
	ingestion := services.NewIngestionService(chunker, embedder, mongoStore, mongoStore, cfg.EmbedRatePerSecond, cfg.EmbedBurst)

	// Periodic sweep for chunk generations orphaned by interrupted swaps
	maintenance := services.NewMaintenanceService(mongoStore, time.Duration(cfg.GenerationGCIntervalMin)*time.Minute)
	if err := maintenance.Start(); err != nil {
		log.Fatal("Failed to start maintenance scheduler:", err)
	}
	defer maintenance.Stop()

	// Redis options for Asynq
	redisOpt, err := queue.RedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration for task queue:", err)
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"ingestion": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor and register handlers
	processor := queue.NewTaskProcessor(ingestion)
	mux := asynq.NewServeMux()
	processor.Register(mux)

	logger.Info("Starting ingestion worker", "concurrency", 4, "redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
