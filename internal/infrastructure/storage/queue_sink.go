// internal/infrastructure/storage/queue_sink.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueSink appends JSON records to a redis list. Identifiers have the form
// <prefix>_<unix millis> and are unique within the process.
type QueueSink[T Record] struct {
	client *redis.Client
	key    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// NewQueueSink creates a local queue sink stored under key
func NewQueueSink[T Record](client *redis.Client, key, prefix string) *QueueSink[T] {
	return &QueueSink[T]{
		client: client,
		key:    key,
		prefix: prefix,
		now:    time.Now,
	}
}

// Append serializes rec and pushes it with one RPUSH
func (s *QueueSink[T]) Append(ctx context.Context, rec T) (Receipt, error) {
	id := s.nextID()
	rec.SetID(id)

	data, err := json.Marshal(rec)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to serialize record: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return Receipt{}, fmt.Errorf("failed to append to %s: %w", s.key, err)
	}
	return Receipt{ID: id, Backend: BackendLocal}, nil
}

// Entries returns the raw queued records, oldest first
func (s *QueueSink[T]) Entries(ctx context.Context) ([]json.RawMessage, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out, nil
}

// Replace rewrites the entry at index i atomically with respect to other writers of the key
func (s *QueueSink[T]) Replace(ctx context.Context, i int64, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	if err := s.client.LSet(ctx, s.key, i, data).Err(); err != nil {
		return fmt.Errorf("failed to update %s[%d]: %w", s.key, i, err)
	}
	return nil
}

func (s *QueueSink[T]) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	millis := s.now().UnixMilli()
	if millis <= s.last {
		millis = s.last + 1
	}
	s.last = millis
	return s.prefix + "_" + strconv.FormatInt(millis, 10)
}
