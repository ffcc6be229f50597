package utils

import (
	"context"
	"sync"
	"time"

	"doemais/config"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

var (
	authCacheOnce sync.Once
	// AuthCacheClient holds token hashes and carries auth events.
	AuthCacheClient *redis.Client
)

func newRedisClient(db int, purpose string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		GetLogger().Fatal("Failed to connect to Redis", zap.String("purpose", purpose), zap.Int("db", db), zap.Error(err))
	}
	return client
}

// GetAuthCacheClient returns the Redis client of the auth database, dialing it on first use.
func GetAuthCacheClient() *redis.Client {
	authCacheOnce.Do(func() {
		AuthCacheClient = newRedisClient(config.AppConfig.RedisAuthDB, "auth")
	})
	return AuthCacheClient
}

// QueueRedisOpt returns the connection options of the task queue database.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}
