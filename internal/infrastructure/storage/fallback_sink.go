// internal/infrastructure/storage/fallback_sink.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"

	"github.com/bella-notte/ordering-backend/internal/pkg/metrics"
)

// BreakerSettings configure when the remote store is considered unreachable
type BreakerSettings struct {
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// FallbackSink tries the remote sink first and diverts to the local sink when
// it fails or its breaker is open
type FallbackSink[T Record] struct {
	collection string
	remote     Sink[T]
	local      Sink[T]
	breaker    *gobreaker.CircuitBreaker[Receipt]
	logger     logrus.FieldLogger
	metrics    *metrics.Metrics
}

// NewFallbackSink wires remote and local sinks for one collection
func NewFallbackSink[T Record](collection string, remote, local Sink[T], settings BreakerSettings, logger logrus.FieldLogger, m *metrics.Metrics) *FallbackSink[T] {
	logger = logger.WithField("collection", collection)
	breaker := gobreaker.NewCircuitBreaker[Receipt](gobreaker.Settings{
		Name:        collection,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Warn("remote store breaker changed state")
		},
	})

	return &FallbackSink[T]{
		collection: collection,
		remote:     remote,
		local:      local,
		breaker:    breaker,
		logger:     logger,
		metrics:    m,
	}
}

// Append writes to the remote sink, or to the local one when the remote is unavailable
func (s *FallbackSink[T]) Append(ctx context.Context, rec T) (Receipt, error) {
	receipt, remoteErr := s.breaker.Execute(func() (Receipt, error) {
		return s.remote.Append(ctx, rec)
	})
	if remoteErr == nil {
		return receipt, nil
	}

	s.logger.WithError(remoteErr).Warn("remote write failed, using local queue")
	s.metrics.StorageFallback(s.collection)

	receipt, localErr := s.local.Append(ctx, rec)
	if localErr != nil {
		return Receipt{}, fmt.Errorf("failed to store %s record: %w", s.collection, multierr.Combine(remoteErr, localErr))
	}
	return receipt, nil
}

// State exposes the breaker state for health reporting
func (s *FallbackSink[T]) State() string {
	return s.breaker.State().String()
}
