package redis

import (
	"context"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/config"
	redisv9 "github.com/redis/go-redis/v9"
)

var (
	client *redisv9.Client
	once   sync.Once
)

// GetClient returns the process-wide client for redis.addr.
func GetClient() *redisv9.Client {
	once.Do(func() {
		client = redisv9.NewClient(&redisv9.Options{
			Addr:         config.GetRedisAddr(),
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
	})
	return client
}

// Ping checks that the configured server answers within timeout.
func Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return GetClient().Ping(ctx).Err()
}

// Close releases the singleton client if one was created.
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// ResetClientForTest resets the Redis client singleton. Use only in tests.
func ResetClientForTest() {
	once = sync.Once{}
	client = nil
}
