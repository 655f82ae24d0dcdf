package redisstore

import (
	"github.com/redis/go-redis/v9"
	"github.com/saas-starter-api/internal/config"
)

// NewClient creates a Redis client from config.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
