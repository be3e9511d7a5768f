package queue

import (
	"strings"

	"edu-learning-platform/internal/config"

	"github.com/hibiken/asynq"
)

// RedisOpt builds the asynq Redis connection options from the shared config,
// accepting the same REDIS_URL forms as the cache client.
func RedisOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return asynq.RedisClientOpt{}, err
		}
		if clientOpt, ok := opt.(asynq.RedisClientOpt); ok {
			return clientOpt, nil
		}
	}

	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
