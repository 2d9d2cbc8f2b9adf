package utils

import (
	"context"
	"fmt"
	"time"

	"courtbook/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient backs message de-duplication and the busy-interval cache.
	CacheClient *redis.Client
)

// InitCache connects the cache client using REDIS_CACHE_DB.
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

// GetCacheClient returns the cache client, or nil when Redis is disabled or unreachable.
func GetCacheClient() *redis.Client {
	if CacheClient == nil && config.AppConfig.RedisEnabled {
		if err := InitCache(); err != nil {
			GetLogger().Sugar().Warnf("cache disabled: %v", err)
			return nil
		}
	}
	return CacheClient
}
