// internal/domain/cart/persistence.go
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/infrastructure/cache"
)

// Persister mirrors cart state to durable storage
type Persister interface {
	Save(ctx context.Context, lines []Line)
	Restore(ctx context.Context) []Line
}

// Persistence stores a session cart snapshot under a fixed key.
// Save is best effort and never reports failures to the caller.
type Persistence struct {
	store  cache.Store
	key    string
	maxAge time.Duration
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewPersistence creates the adapter for one storage key
func NewPersistence(store cache.Store, key string, maxAge time.Duration, logger logrus.FieldLogger) *Persistence {
	return &Persistence{
		store:  store,
		key:    key,
		maxAge: maxAge,
		logger: logger.WithField("cart_key", key),
		now:    time.Now,
	}
}

// SessionKey builds the storage key of a session cart
func SessionKey(sessionID, storageKey string) string {
	return fmt.Sprintf("cart:session:%s:%s", sessionID, storageKey)
}

// Save writes {items, savedAt}
func (p *Persistence) Save(ctx context.Context, lines []Line) {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(Snapshot{Items: lines, SavedAt: p.now().UTC()})
	if err != nil {
		p.logger.WithError(err).Warn("failed to serialize cart")
		return
	}
	if err := p.store.Set(ctx, p.key, data, p.maxAge); err != nil {
		p.logger.WithError(err).Warn("failed to save cart")
	}
}

// Restore returns the saved lines, or an empty cart when the entry is missing,
// corrupt or older than the max age. Corrupt and stale entries are removed.
func (p *Persistence) Restore(ctx context.Context) []Line {
	data, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.WithError(err).Warn("failed to read saved cart")
		}
		return []Line{}
	}

	lines, savedAt, err := decodeSnapshot(data)
	if err != nil {
		p.logger.WithError(err).Warn("discarding corrupt cart snapshot")
		p.discard(ctx)
		return []Line{}
	}

	if savedAt != nil && p.now().Sub(*savedAt) > p.maxAge {
		p.logger.WithField("saved_at", savedAt).Info("discarding stale cart snapshot")
		p.discard(ctx)
		return []Line{}
	}

	return lines
}

func (p *Persistence) discard(ctx context.Context) {
	if err := p.store.Delete(ctx, p.key); err != nil {
		p.logger.WithError(err).Warn("failed to delete cart snapshot")
	}
}

type wireSnapshot struct {
	Items     []Line     `json:"items"`
	SavedAt   *time.Time `json:"savedAt"`
	Timestamp *time.Time `json:"timestamp"`
}

// decodeSnapshot accepts the wrapped form and the legacy bare array.
// A nil time means the snapshot carries no age (legacy array).
func decodeSnapshot(data []byte) ([]Line, *time.Time, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var lines []Line
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return nil, nil, fmt.Errorf("invalid legacy cart: %w", err)
		}
		if lines == nil {
			lines = []Line{}
		}
		return lines, nil, nil
	}

	var snap wireSnapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, nil, fmt.Errorf("invalid cart snapshot: %w", err)
	}
	savedAt := snap.SavedAt
	if savedAt == nil {
		savedAt = snap.Timestamp
	}
	if savedAt == nil {
		return nil, nil, errors.New("cart snapshot has no savedAt")
	}
	if snap.Items == nil {
		snap.Items = []Line{}
	}
	return snap.Items, savedAt, nil
}
