package store

import (
	"context"
	"encoding/json"
	"time"

	"edu-learning-platform/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisEmbeddingCache caches query embeddings in Redis. Lookups and writes
// fail open: a Redis outage degrades to recomputing embeddings, never to a
// failed query.
type RedisEmbeddingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisEmbeddingCache(rdb *redis.Client, ttl time.Duration) *RedisEmbeddingCache {
	return &RedisEmbeddingCache{rdb: rdb, ttl: ttl}
}

func (c *RedisEmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.rdb.Get(ctx, "embedding:"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("Embedding cache read failed", "error", err)
		}
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (c *RedisEmbeddingCache) Set(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, "embedding:"+key, data, c.ttl).Err(); err != nil {
		logger.Debug("Embedding cache write failed", "error", err)
	}
}
