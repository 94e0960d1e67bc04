// internal/domain/order/service.go
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// LocalIDPrefix marks orders stored in the local queue
const LocalIDPrefix = "local"

// RecentLimit is the number of orders shown in a customer's history
const RecentLimit = 10

var (
	ErrOrderNotFound = apperrors.New(apperrors.CodeNotFound, "Order not found")
	ErrNotOwner      = apperrors.New(apperrors.CodeForbidden, "This order belongs to another account")
	ErrCannotCancel  = apperrors.New(apperrors.CodeConflict, "This order can no longer be cancelled")
)

// Service reads and cancels stored orders
type Service struct {
	db           *gorm.DB
	queue        *storage.QueueSink[*Order]
	cancelWindow time.Duration
	logger       logrus.FieldLogger
	now          func() time.Time
}

// NewService creates the order service. db is nil when only the local queue is in use.
func NewService(db *gorm.DB, queue *storage.QueueSink[*Order], cancelWindow time.Duration, logger logrus.FieldLogger) *Service {
	return &Service{
		db:           db,
		queue:        queue,
		cancelWindow: cancelWindow,
		logger:       logger,
		now:          time.Now,
	}
}

// IsLocalID reports whether id was issued by the local queue
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix+"_")
}

// Get returns an order by id from whichever store issued it
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if IsLocalID(id) || s.db == nil {
		o, _, err := s.findLocal(ctx, id)
		return o, err
	}

	var o Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// GetFor returns the order when the requester placed it. Account orders
// answer ErrNotOwner to other callers; guest orders answer ErrOrderNotFound to
// every session but the one that placed them.
func (s *Service) GetFor(ctx context.Context, id string, userID *uint, sessionID string) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.PlacedBy(userID, sessionID) {
		if o.UserID == nil {
			return nil, ErrOrderNotFound
		}
		return nil, ErrNotOwner
	}
	return o.Public(), nil
}

// Recent returns the user's latest orders, newest first
func (s *Service) Recent(ctx context.Context, userID uint) ([]Order, error) {
	if s.db == nil {
		return s.recentLocal(ctx, userID)
	}

	var orders []Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(RecentLimit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent orders: %w", err)
	}
	return orders, nil
}

// Cancel cancels a pending order within the cancel window. Only the signed-in
// account that placed the order may cancel it; guest orders cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id string, userID *uint) (*Order, error) {
	if IsLocalID(id) || s.db == nil {
		return s.cancelLocal(ctx, id, userID)
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(o, userID) {
		return nil, ErrNotOwner
	}
	now := s.now().UTC()
	if !o.CanBeCancelled(now, s.cancelWindow) {
		return nil, ErrCannotCancel
	}

	result := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", id, OrderStatusPending).
		Updates(map[string]any{"status": OrderStatusCancelled, "cancelled_at": now})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrCannotCancel
	}

	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	s.logger.WithField("order_id", id).Info("order cancelled")
	return o.Public(), nil
}

func (s *Service) cancelLocal(ctx context.Context, id string, userID *uint) (*Order, error) {
	o, idx, err := s.findLocal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(o, userID) {
		return nil, ErrNotOwner
	}
	now := s.now().UTC()
	if !o.CanBeCancelled(now, s.cancelWindow) {
		return nil, ErrCannotCancel
	}

	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	if err := s.queue.Replace(ctx, int64(idx), o); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	s.logger.WithField("order_id", id).Info("local order cancelled")
	return o.Public(), nil
}

func (s *Service) findLocal(ctx context.Context, id string) (*Order, int, error) {
	orders, err := s.localOrders(ctx)
	if err != nil {
		return nil, -1, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], i, nil
		}
	}
	return nil, -1, ErrOrderNotFound
}

func (s *Service) recentLocal(ctx context.Context, userID uint) ([]Order, error) {
	orders, err := s.localOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, RecentLimit)
	for _, o := range orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > RecentLimit {
		out = out[:RecentLimit]
	}
	return publicOrders(out), nil
}

// localOrders decodes the queue. Undecodable entries keep their position as zero values
// so indexes stay aligned with the list.
func (s *Service) localOrders(ctx context.Context) ([]Order, error) {
	if s.queue == nil {
		return nil, nil
	}
	entries, err := s.queue.Entries(ctx)
	if err != nil {
		return nil, err
	}
	orders := make([]Order, len(entries))
	for i, raw := range entries {
		if err := json.Unmarshal(raw, &orders[i]); err != nil {
			s.logger.WithError(err).WithField("index", i).Warn("skipping unreadable local order")
			orders[i] = Order{}
		}
	}
	return orders, nil
}

// ownedBy is the cancel check. A guest order has no owner.
func ownedBy(o *Order, userID *uint) bool {
	return o.UserID != nil && userID != nil && *userID == *o.UserID
}

func publicOrders(orders []Order) []Order {
	for i := range orders {
		orders[i].SessionKey = ""
	}
	return orders
}
