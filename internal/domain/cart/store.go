// internal/domain/cart/store.go
package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/metrics"
)

var (
	ErrItemNotFound    = menu.ErrItemNotFound
	ErrItemUnavailable = menu.ErrItemUnavailable
	ErrCartFull        = apperrors.New(apperrors.CodeCapacity, "cart full")
	ErrLineLimit       = apperrors.New(apperrors.CodeCapacity, "per-line limit exceeded")
	ErrEmptyCart       = apperrors.New(apperrors.CodeValidation, "Your cart is empty")
	ErrBelowMinimum    = apperrors.New(apperrors.CodeValidation, "minimum order value not reached")
	errInconsistent    = apperrors.New(apperrors.CodeInternal, "cart invariant violated")
)

// Catalog resolves menu items for the cart
type Catalog interface {
	Find(ctx context.Context, id string) (menu.MenuItem, error)
}

// Limits bound the cart size
type Limits struct {
	MaxItems        int
	MaxLineQuantity int
}

// Store owns the lines of one cart. Every mutation checks invariants,
// notifies observers and then writes through to the persister before returning.
// Observers run while the store is locked and must not call back into it.
type Store struct {
	catalog   Catalog
	rules     pricing.Rules
	limits    Limits
	persister Persister
	logger    logrus.FieldLogger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu        sync.Mutex
	lines     []Line
	observers map[int]func(Event)
	nextObs   int
}

// NewStore creates an empty store. Call Restore to load persisted lines.
func NewStore(catalog Catalog, rules pricing.Rules, limits Limits, persister Persister, logger logrus.FieldLogger, m *metrics.Metrics) *Store {
	return &Store{
		catalog:   catalog,
		rules:     rules,
		limits:    limits,
		persister: persister,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		lines:     []Line{},
		observers: make(map[int]func(Event)),
	}
}

// Restore replaces the lines with the persisted snapshot, dropping lines
// that would break the cart invariants
func (s *Store) Restore(ctx context.Context) {
	restored := s.persister.Restore(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(restored))
	lines := make([]Line, 0, len(restored))
	total := 0
	for _, l := range restored {
		if l.Key == "" || seen[l.Key] || l.Quantity < 1 || l.Quantity > s.limits.MaxLineQuantity ||
			total+l.Quantity > s.limits.MaxItems || l.UnitPrice.IsNegative() {
			s.logger.WithField("cart_key", l.Key).Warn("dropping invalid restored cart line")
			continue
		}
		seen[l.Key] = true
		total += l.Quantity
		lines = append(lines, l)
	}
	s.lines = lines
}

// AddItem adds one unit of an item with the given customization
func (s *Store) AddItem(ctx context.Context, itemID string, c menu.Customization) (Line, error) {
	item, err := s.catalog.Find(ctx, itemID)
	if err != nil {
		s.metrics.CartRejection("not_found")
		return Line{}, err
	}
	if !item.IsAvailable {
		s.metrics.CartRejection("unavailable")
		return Line{}, ErrItemUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if countItems(s.lines)+1 > s.limits.MaxItems {
		s.metrics.CartRejection("cart_full")
		return Line{}, ErrCartFull.WithDetails(map[string]int{"max": s.limits.MaxItems})
	}

	key := CompositeKey(itemID, c)
	next := cloneLines(s.lines)
	idx := indexOf(next, key)
	if idx >= 0 {
		if next[idx].Quantity+1 > s.limits.MaxLineQuantity {
			s.metrics.CartRejection("line_limit")
			return Line{}, ErrLineLimit.WithDetails(map[string]int{"max": s.limits.MaxLineQuantity})
		}
		next[idx].Quantity++
	} else {
		next = append(next, Line{
			Key:           key,
			ItemID:        item.ID,
			Name:          item.Name,
			Category:      item.Category,
			Image:         item.Image,
			BasePrice:     item.Price,
			Customization: c,
			Quantity:      1,
			UnitPrice:     s.rules.UnitPrice(item.Price, c),
			AddedAt:       s.now().UTC(),
		})
		idx = len(next) - 1
	}

	line := next[idx]
	if err := s.commit(ctx, next, Event{Type: EventItemAdded, Key: key, Line: &line}); err != nil {
		return Line{}, err
	}
	s.metrics.CartMutation("add")
	return line, nil
}

// ChangeQuantity adds delta to a line's quantity. A result at or below zero
// removes the line. Unknown keys are a no-op.
func (s *Store) ChangeQuantity(ctx context.Context, key string, delta int) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.lines, key)
	if idx < 0 {
		return Change{}, nil
	}
	current := s.lines[idx]
	if delta == 0 {
		return Change{Line: current, Found: true}, nil
	}

	qty := current.Quantity + delta
	if qty <= 0 {
		if err := s.removeLocked(ctx, idx); err != nil {
			return Change{}, err
		}
		return Change{Line: current, Found: true, Removed: true}, nil
	}
	if qty > s.limits.MaxLineQuantity {
		s.metrics.CartRejection("line_limit")
		return Change{}, ErrLineLimit.WithDetails(map[string]int{"max": s.limits.MaxLineQuantity})
	}
	if delta > 0 && countItems(s.lines)+delta > s.limits.MaxItems {
		s.metrics.CartRejection("cart_full")
		return Change{}, ErrCartFull.WithDetails(map[string]int{"max": s.limits.MaxItems})
	}

	next := cloneLines(s.lines)
	next[idx].Quantity = qty
	line := next[idx]
	if err := s.commit(ctx, next, Event{Type: EventQuantityChanged, Key: key, Line: &line}); err != nil {
		return Change{}, err
	}
	s.metrics.CartMutation("change_quantity")
	return Change{Line: line, Found: true}, nil
}

// RemoveItem removes a line and reports it. Removing an absent key is a no-op.
func (s *Store) RemoveItem(ctx context.Context, key string) (Line, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.lines, key)
	if idx < 0 {
		return Line{}, false, nil
	}
	removed := s.lines[idx]
	if err := s.removeLocked(ctx, idx); err != nil {
		return Line{}, false, err
	}
	return removed, true, nil
}

// Clear empties the cart unconditionally
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, []Line{}, Event{Type: EventCleared}); err != nil {
		return err
	}
	s.metrics.CartMutation("clear")
	return nil
}

// Consume removes the ordered quantities from the cart. Units added after the
// order snapshot was taken stay in the cart.
func (s *Store) Consume(ctx context.Context, ordered []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[string]int, len(ordered))
	for _, l := range ordered {
		taken[l.Key] += l.Quantity
	}

	next := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		l.Quantity -= taken[l.Key]
		if l.Quantity > 0 {
			next = append(next, l)
		}
	}

	ev := Event{Type: EventOrdered}
	if len(next) == 0 {
		ev.Type = EventCleared
	}
	if err := s.commit(ctx, next, ev); err != nil {
		return err
	}
	s.metrics.CartMutation("consume")
	return nil
}

// Lines returns a copy of the lines in insertion order
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Count is the sum of line quantities
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countItems(s.lines)
}

// Totals prices the current lines
func (s *Store) Totals(deliveryType pricing.DeliveryType) pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.Compute(amounts(s.lines), deliveryType)
}

// TotalsFor prices lines with this cart's rules
func (s *Store) TotalsFor(lines []Line, deliveryType pricing.DeliveryType) pricing.Totals {
	return s.rules.Compute(amounts(lines), deliveryType)
}

// Snapshot returns the lines and their totals computed from the same state
func (s *Store) Snapshot(deliveryType pricing.DeliveryType) ([]Line, pricing.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := cloneLines(s.lines)
	return lines, s.rules.Compute(amounts(lines), deliveryType)
}

// FreeDeliveryRemaining is the amount left before delivery becomes free
func (s *Store) FreeDeliveryRemaining() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.FreeDeliveryRemaining(pricing.Subtotal(amounts(s.lines)))
}

// CheckoutReady verifies the cart can proceed to checkout
func (s *Store) CheckoutReady(minOrder decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return ErrEmptyCart
	}
	subtotal := pricing.Subtotal(amounts(s.lines))
	if subtotal.LessThan(minOrder) {
		return &apperrors.Error{
			Code:    apperrors.CodeValidation,
			Message: fmt.Sprintf("Minimum order value is ₹%s", minOrder.String()),
			Details: map[string]string{"subtotal": pricing.Format(subtotal), "minimum": pricing.Format(minOrder)},
			Err:     ErrBelowMinimum,
		}
	}
	return nil
}

// Subscribe registers an observer and returns a function that removes it
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
		})
	}
}

// Observed reports whether any observer is subscribed
func (s *Store) Observed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers) > 0
}

func (s *Store) removeLocked(ctx context.Context, idx int) error {
	removed := s.lines[idx]
	next := make([]Line, 0, len(s.lines)-1)
	next = append(next, s.lines[:idx]...)
	next = append(next, s.lines[idx+1:]...)
	if err := s.commit(ctx, next, Event{Type: EventItemRemoved, Key: removed.Key, Line: &removed}); err != nil {
		return err
	}
	s.metrics.CartMutation("remove")
	return nil
}

// commit must be called with mu held
func (s *Store) commit(ctx context.Context, next []Line, ev Event) error {
	if err := s.check(next); err != nil {
		s.logger.WithError(err).Error("rejecting cart mutation")
		return apperrors.Wrap(apperrors.CodeInternal, err, errInconsistent.Message)
	}
	s.lines = next

	ev.Lines = cloneLines(next)
	ev.Count = countItems(next)
	for _, fn := range s.observers {
		fn(ev)
	}

	s.persister.Save(context.WithoutCancel(ctx), cloneLines(next))
	return nil
}

func (s *Store) check(lines []Line) error {
	seen := make(map[string]bool, len(lines))
	total := 0
	for _, l := range lines {
		if seen[l.Key] {
			return fmt.Errorf("duplicate line key %q", l.Key)
		}
		seen[l.Key] = true
		if l.Quantity < 1 || l.Quantity > s.limits.MaxLineQuantity {
			return fmt.Errorf("line %q has quantity %d", l.Key, l.Quantity)
		}
		total += l.Quantity
	}
	if total > s.limits.MaxItems {
		return fmt.Errorf("cart holds %d items, max %d", total, s.limits.MaxItems)
	}
	return nil
}

func indexOf(lines []Line, key string) int {
	for i, l := range lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}
