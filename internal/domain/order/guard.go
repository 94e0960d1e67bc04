// internal/domain/order/guard.go
package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard serializes submissions of one session
type Guard interface {
	Acquire(ctx context.Context, sessionID string) (release func(), ok bool, err error)
}

// NewGuard returns the redis lock when several instances share storage and
// the in-process guard for a single local-mode instance
func NewGuard(client *redis.Client, ttl time.Duration, shared bool) Guard {
	if shared {
		return NewRedisGuard(client, ttl)
	}
	return NewMemoryGuard()
}

// RedisGuard holds a SETNX lock per session for the duration of a submission
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard whose locks expire after ttl
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Acquire takes the session lock. ok is false when a submission is already running.
func (g *RedisGuard) Acquire(ctx context.Context, sessionID string) (func(), bool, error) {
	key := fmt.Sprintf("order:submit:%s", sessionID)
	ok, err := g.client.SetNX(ctx, key, time.Now().UnixMilli(), g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		g.client.Del(context.WithoutCancel(ctx), key)
	}, true, nil
}

// MemoryGuard is the in-process guard used when redis is not shared between instances
type MemoryGuard struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewMemoryGuard creates an empty in-process guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{running: make(map[string]bool)}
}

// Acquire marks the session as submitting
func (g *MemoryGuard) Acquire(_ context.Context, sessionID string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running[sessionID] {
		return nil, false, nil
	}
	g.running[sessionID] = true
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.running, sessionID)
	}, true, nil
}
