// internal/infrastructure/cache/cache.go
package cache

import (
	"context"
	"errors"
	"time"
)

// Store is a byte oriented key/value store
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")
