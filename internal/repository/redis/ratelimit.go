package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "chatlimit:"

// RateLimiter throttles chat sends per user with a fixed one-minute window
// counted in Redis, so the limit holds across server restarts and replicas.
type RateLimiter struct {
	client            *Client
	requestsPerMinute int
	burst             int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
	}
}

// Allow reports whether the user may send another chat message this minute.
// Returns (allowed, remaining, resetTime, error).
func (r *RateLimiter) Allow(ctx context.Context, username string) (bool, int, time.Time, error) {
	now := time.Now().UTC()
	windowStart := now.Truncate(time.Minute)
	windowEnd := windowStart.Add(time.Minute)

	// The window start is part of the key, so counters never leak across
	// windows even when expiry lags.
	key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, username, windowStart.Unix())

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := incrCmd.Val()
	limit := int64(r.requestsPerMinute + r.burst)
	remaining := int(limit - count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, windowEnd, nil
}

// Reset clears the user's counter for the current window
func (r *RateLimiter) Reset(ctx context.Context, username string) error {
	windowStart := time.Now().UTC().Truncate(time.Minute)
	key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, username, windowStart.Unix())
	return r.client.rdb.Del(ctx, key).Err()
}
