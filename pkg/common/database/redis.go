package database

import (
	"context"
	"fmt"
	"time"

	"github.com/healthpredictor/platform/pkg/common/config"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// OpenRedis returns a client even when the initial ping fails; callers treat
// Redis as an optional cache.
func OpenRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to connect to Redis")
	} else {
		logger.Log.Info("Connected to Redis")
	}
	return client
}
