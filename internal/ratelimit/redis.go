package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps one counter per key and window in Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter wraps client; counters are namespaced under prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow counts one hit for key in the window holding now.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	start := windowStart(now)
	counter := counterKey(l.prefix, key, start)

	var hits *redis.IntCmd
	if _, errPipe := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, counter)
		// Counters outlive their window by one so a late reader still sees them.
		pipe.Expire(ctx, counter, 2*Window)
		return nil
	}); errPipe != nil {
		return Result{}, fmt.Errorf("rate limit: redis count: %w", errPipe)
	}
	return resultFor(int(hits.Val()), limit, windowReset(start)), nil
}

// counterKey names the counter of key for the window starting at start.
func counterKey(prefix, key string, start int64) string {
	if prefix == "" {
		return fmt.Sprintf("%s:%d", key, start)
	}
	return fmt.Sprintf("%s:%s:%d", prefix, key, start)
}
