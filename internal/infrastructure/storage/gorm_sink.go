// internal/infrastructure/storage/gorm_sink.go
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSink writes records, including their associations, to the relational store
type GormSink[T Record] struct {
	db *gorm.DB
}

// NewGormSink creates a remote sink
func NewGormSink[T Record](db *gorm.DB) *GormSink[T] {
	return &GormSink[T]{db: db}
}

// Append inserts rec with a fresh uuid in a single transaction
func (s *GormSink[T]) Append(ctx context.Context, rec T) (Receipt, error) {
	id := uuid.NewString()
	rec.SetID(id)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return Receipt{ID: id, Backend: BackendRemote}, nil
}
