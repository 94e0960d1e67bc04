// internal/domain/menu/provider.go
package menu

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/metrics"
)

var (
	ErrItemNotFound    = apperrors.New(apperrors.CodeNotFound, "Item not found")
	ErrItemUnavailable = apperrors.New(apperrors.CodeUnavailable, "This item is currently unavailable")
)

const loadKey = "menu"

const (
	// fetchTimeout bounds one source fetch, independent of the caller that triggered it
	fetchTimeout = 5 * time.Second
	// fallbackRetry is how long the built-in catalog is served before the source is tried again
	fallbackRetry = 15 * time.Second
)

// Provider serves the catalog. Load never returns an empty list.
type Provider struct {
	source  Source
	ttl     time.Duration
	retry   time.Duration
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	items    []MenuItem
	index    map[string]int
	loadedAt time.Time
	fallback bool
}

// NewProvider creates a menu provider. A nil source always serves the built-in catalog.
func NewProvider(source Source, ttl time.Duration, logger logrus.FieldLogger, m *metrics.Metrics) *Provider {
	return &Provider{
		source:  source,
		ttl:     ttl,
		retry:   fallbackRetry,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Load returns the available menu, fetching from the source when the cache is cold
func (p *Provider) Load(ctx context.Context) []MenuItem {
	if items, ok := p.cached(); ok {
		return items
	}

	// the fetch is shared by every waiting caller, so it must outlive the one that started it
	v, _, _ := p.group.Do(loadKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		items, fallback := p.fetch(fetchCtx)
		p.store(items, fallback)
		return items, nil
	})
	return cloneItems(v.([]MenuItem))
}

// FromFallback reports whether the current catalog is the built-in one
func (p *Provider) FromFallback() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fallback
}

// Find returns a catalog item by id. Unavailable items are returned with their flag set.
func (p *Provider) Find(ctx context.Context, id string) (MenuItem, error) {
	p.Load(ctx)

	p.mu.RLock()
	if i, ok := p.index[id]; ok {
		item := p.items[i]
		p.mu.RUnlock()
		return item, nil
	}
	fallback := p.fallback
	p.mu.RUnlock()

	// the loaded list only holds available items, so ask the source for disabled ones
	if p.source == nil || fallback {
		return MenuItem{}, ErrItemNotFound
	}
	item, err := p.source.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			p.logger.WithError(err).WithField("item_id", id).Warn("menu lookup failed")
		}
		return MenuItem{}, ErrItemNotFound
	}
	return *item, nil
}

// ByCategory filters the loaded menu
func (p *Provider) ByCategory(ctx context.Context, category Category) []MenuItem {
	var out []MenuItem
	for _, item := range p.Load(ctx) {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

// Popular returns items flagged popular
func (p *Provider) Popular(ctx context.Context) []MenuItem {
	var out []MenuItem
	for _, item := range p.Load(ctx) {
		if item.IsPopular {
			out = append(out, item)
		}
	}
	return out
}

// Invalidate drops the cached catalog
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.index = nil
	p.loadedAt = time.Time{}
}

func (p *Provider) cached() ([]MenuItem, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ttl := p.ttl
	if p.fallback && p.source != nil && p.retry < ttl {
		ttl = p.retry
	}
	if len(p.items) == 0 || p.now().Sub(p.loadedAt) > ttl {
		return nil, false
	}
	return cloneItems(p.items), true
}

func (p *Provider) fetch(ctx context.Context) ([]MenuItem, bool) {
	if p.source == nil {
		p.metrics.MenuFallback()
		return BuiltinCatalog(), true
	}

	items, err := p.source.ListAvailable(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("menu fetch failed, serving built-in catalog")
		p.metrics.MenuFallback()
		return BuiltinCatalog(), true
	}
	if len(items) == 0 {
		p.logger.Info("remote menu is empty, serving built-in catalog")
		p.metrics.MenuFallback()
		return BuiltinCatalog(), true
	}
	return items, false
}

func (p *Provider) store(items []MenuItem, fallback bool) {
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	p.index = index
	p.loadedAt = p.now()
	p.fallback = fallback
}

func cloneItems(items []MenuItem) []MenuItem {
	out := make([]MenuItem, len(items))
	copy(out, items)
	return out
}
