// internal/domain/user/limiter.go
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts sign-in attempts per email
type AttemptLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

// RedisAttemptLimiter allows max attempts per email inside a fixed window
type RedisAttemptLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

// NewRedisAttemptLimiter creates a limiter backed by redis counters
func NewRedisAttemptLimiter(client *redis.Client, max int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{client: client, max: int64(max), window: window}
}

func (l *RedisAttemptLimiter) key(email string) string {
	return fmt.Sprintf("auth:attempts:%s", email)
}

// Allow records an attempt and reports whether it is within the limit
func (l *RedisAttemptLimiter) Allow(ctx context.Context, email string) (bool, error) {
	key := l.key(email)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count login attempt: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set attempt window: %w", err)
		}
	}
	return n <= l.max, nil
}

// Reset clears the counter after a successful sign-in
func (l *RedisAttemptLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, l.key(email)).Err()
}

type noLimit struct{}

func (noLimit) Allow(context.Context, string) (bool, error) { return true, nil }
func (noLimit) Reset(context.Context, string) error         { return nil }
