// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"salonbook/config"

	"github.com/go-redis/redis/v8"
)

// CacheClient backs the shared rate limiter and the health monitor.
var CacheClient *redis.Client

// RedisConfigured reports whether a Redis address is set.
func RedisConfigured() bool {
	return config.AppConfig.RedisAddr != ""
}

// InitCache initializes the generic Redis client on REDIS_CACHE_DB and checks
// that it answers.
func InitCache() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to Redis (cache): %w", err)
	}
	CacheClient = client
	return nil
}

// GetCacheClient returns the generic cache client, nil until InitCache succeeds.
func GetCacheClient() *redis.Client {
	return CacheClient
}
