package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	JWTSecret   string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini Configuration
	GeminiAPIKey    string
	GeminiTier      string
	LLMModel        string
	EmbeddingsModel string
	VectorDim       int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	DefaultTopK        int
	MaxTopK            int
	ContextBudgetChars int
	MemoryTurnLimit    int

	// Ingestion
	SyncProcessingLimit int64
	MaxRequestBytes     int64
	EmbedRatePerSecond  float64
	EmbedBurst          int

	// HTTP rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Embedding cache
	EmbeddingCacheTTLSeconds int

	// Evaluation
	EvalBatchWidth         int
	EvalMaxQuestions       int
	EvalPassThreshold      float64
	EvalQuestionTimeoutSec int

	// Chunk generation garbage collection (worker)
	GenerationGCIntervalMin int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/edu_platform"),
		DBName:      getEnv("DB_NAME", "edu_platform"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		LLMModel:        getEnv("LLM_MODEL", "gemini-2.0-flash"),
		EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDim:       getEnvInt("VECTOR_DIM", 768),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		DefaultTopK:        getEnvInt("RETRIEVAL_TOP_K", 8),
		MaxTopK:            getEnvInt("RETRIEVAL_MAX_TOP_K", 50),
		ContextBudgetChars: getEnvInt("CONTEXT_BUDGET_CHARS", 8000),
		MemoryTurnLimit:    getEnvInt("MEMORY_TURN_LIMIT", 6),

		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 262144),    // 256KB sync ingestion limit
		MaxRequestBytes:     getEnvInt64("MAX_REQUEST_BYTES", 10*1024*1024), // 10MB upload ceiling
		EmbedRatePerSecond:  getEnvFloat64("EMBED_RATE_PER_SECOND", 2.0),
		EmbedBurst:          getEnvInt("EMBED_BURST", 4),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		EmbeddingCacheTTLSeconds: getEnvInt("EMBEDDING_CACHE_TTL", 3600),

		EvalBatchWidth:         getEnvInt("EVAL_BATCH_WIDTH", 5),
		EvalMaxQuestions:       getEnvInt("EVAL_MAX_QUESTIONS", 200),
		EvalPassThreshold:      getEnvFloat64("EVAL_PASS_THRESHOLD", 0.7),
		EvalQuestionTimeoutSec: getEnvInt("EVAL_QUESTION_TIMEOUT", 60),

		GenerationGCIntervalMin: getEnvInt("GENERATION_GC_INTERVAL_MIN", 60),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
