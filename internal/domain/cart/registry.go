// internal/domain/cart/registry.go
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/cache"
	"github.com/bella-notte/ordering-backend/internal/pkg/metrics"
)

// emptyIdle caps how long a session without items is kept in memory
const emptyIdle = 5 * time.Minute

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// Registry hands out one Store per session, restoring it from storage on first use
type Registry struct {
	catalog    Catalog
	rules      pricing.Rules
	limits     Limits
	kv         cache.Store
	storageKey string
	maxAge     time.Duration
	idle       time.Duration
	logger     logrus.FieldLogger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu     sync.Mutex
	stores map[string]*registryEntry
}

// NewRegistry creates a session registry from the restaurant configuration
func NewRegistry(catalog Catalog, kv cache.Store, cfg config.RestaurantConfig, logger logrus.FieldLogger, m *metrics.Metrics) *Registry {
	return &Registry{
		catalog:    catalog,
		rules:      pricing.RulesFromConfig(cfg),
		limits:     Limits{MaxItems: cfg.MaxCartItems, MaxLineQuantity: cfg.MaxLineQuantity},
		kv:         kv,
		storageKey: cfg.CartStorageKey,
		maxAge:     cfg.CartMaxAge,
		idle:       cfg.CartSessionIdle,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		stores:     make(map[string]*registryEntry),
	}
}

// Get returns the session's store, creating and restoring it when needed.
// Restoring reads storage, so it runs without holding the registry lock.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	if store, ok := r.lookup(sessionID); ok {
		return store
	}

	logger := r.logger.WithField("session_id", sessionID)
	persistence := NewPersistence(r.kv, SessionKey(sessionID, r.storageKey), r.maxAge, logger)
	store := NewStore(r.catalog, r.rules, r.limits, persistence, logger, r.metrics)
	store.Restore(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[sessionID]; ok {
		e.lastSeen = r.now()
		return e.store
	}
	r.stores[sessionID] = &registryEntry{store: store, lastSeen: r.now()}
	return store
}

func (r *Registry) lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.store, true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep drops stores idle for longer than the idle window and without observers.
// Empty stores use the shorter of the idle window and emptyIdle.
// Their state stays in storage and is restored on next access.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.idle)
	emptyCutoff := cutoff
	if emptyIdle < r.idle {
		emptyCutoff = now.Add(-emptyIdle)
	}
	removed := 0
	for id, e := range r.stores {
		limit := cutoff
		if e.store.Count() == 0 {
			limit = emptyCutoff
		}
		if e.lastSeen.Before(limit) && !e.store.Observed() {
			delete(r.stores, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.WithField("evicted", n).Debug("evicted idle carts")
			}
		}
	}
}
