package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker probes a Redis server
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a checker for an existing client
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name returns "redis"
func (r *RedisChecker) Name() string {
	return "redis"
}

// Check pings the server
func (r *RedisChecker) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
