package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	DataSource string    `json:"dataSource"`
	Mongo      bool      `json:"mongo"`
	Redis      []bool    `json:"redis"`
	CheckedAt  time.Time `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

func setHealthStatus(h HealthStatus) {
	mu.Lock()
	currentHealth = h
	mu.Unlock()
}

// MarkFixtureHealth records a healthy status for the in-process data source.
func MarkFixtureHealth() {
	setHealthStatus(HealthStatus{DataSource: "fixture", Mongo: false, CheckedAt: time.Now()})
}

func checkOnce(ctx context.Context, redisClients []*redis.Client, mongoClient *mongo.Client) {
	var redisHealth []bool
	for _, client := range redisClients {
		err := client.Ping(ctx).Err()
		redisHealth = append(redisHealth, err == nil)
	}

	mongoHealthy := mongoClient != nil && mongoClient.Ping(ctx, nil) == nil

	setHealthStatus(HealthStatus{
		DataSource: "mongo",
		Mongo:      mongoHealthy,
		Redis:      redisHealth,
		CheckedAt:  time.Now(),
	})
}

// StartHealthMonitor performs periodic health checks until ctx ends.
func StartHealthMonitor(ctx context.Context, redisClients []*redis.Client, mongoClient *mongo.Client) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		checkOnce(ctx, redisClients, mongoClient)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkOnce(ctx, redisClients, mongoClient)
			}
		}
	}()
}
