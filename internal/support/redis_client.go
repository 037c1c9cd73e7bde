package support

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisURL = "redis://localhost:6379/0"

// NewRedisClient connects to REDIS_URL and verifies the connection with a ping.
// The caller owns the returned client and must close it.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	redisURL := GetEnv("REDIS_URL", defaultRedisURL)

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL %q: %w", redisURL, err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
