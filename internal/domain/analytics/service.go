// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Event names
const (
	EventAddToCart      = "add_to_cart"
	EventRemoveFromCart = "remove_from_cart"
	EventClearCart      = "clear_cart"
	EventViewCart       = "view_cart"
	EventBeginCheckout  = "begin_checkout"
	EventPurchase       = "purchase"
)

// DefaultRetention is how long an idle session's events are kept
const DefaultRetention = 7 * 24 * time.Hour

// Event is a tracked storefront interaction
type Event struct {
	Event     string         `json:"event"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Service records per-session events in a capped redis list
type Service struct {
	client    *redis.Client
	limit     int64
	retention time.Duration
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewService creates the analytics service keeping the last limit events per session
func NewService(client *redis.Client, limit int, logger logrus.FieldLogger) *Service {
	if limit <= 0 {
		limit = 100
	}
	return &Service{
		client:    client,
		limit:     int64(limit),
		retention: DefaultRetention,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) key(sessionID string) string {
	return fmt.Sprintf("analytics:%s", sessionID)
}

// Track appends an event for the session. Failures are logged and never returned.
func (s *Service) Track(ctx context.Context, sessionID, name string, params map[string]any) {
	if s == nil || s.client == nil || sessionID == "" {
		return
	}

	data, err := json.Marshal(Event{Event: name, Params: params, Timestamp: s.now().UTC()})
	if err != nil {
		s.logger.WithError(err).WithField("event", name).Warn("failed to encode analytics event")
		return
	}

	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -s.limit, -1)
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      name,
			"session_id": sessionID,
		}).Warn("failed to record analytics event")
		return
	}

	s.logger.WithFields(logrus.Fields{"event": name, "session_id": sessionID}).Debug("analytics event")
}

// Recent returns the session's events, oldest first
func (s *Service) Recent(ctx context.Context, sessionID string) ([]Event, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics events: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			s.logger.WithError(err).Warn("skipping malformed analytics event")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
