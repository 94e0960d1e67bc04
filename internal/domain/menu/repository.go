// internal/domain/menu/repository.go
package menu

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Source is a remote origin of menu records
type Source interface {
	ListAvailable(ctx context.Context) ([]MenuItem, error)
	Get(ctx context.Context, id string) (*MenuItem, error)
}

// Repository reads menu items from the relational store
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed menu source
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListAvailable returns items flagged available, in display order
func (r *Repository) ListAvailable(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	err := r.db.WithContext(ctx).
		Where("is_available = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	return items, nil
}

// Get returns a single item regardless of availability
func (r *Repository) Get(ctx context.Context, id string) (*MenuItem, error) {
	var item MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return &item, nil
}

// Upsert inserts or replaces items, used for seeding
func (r *Repository) Upsert(ctx context.Context, items []MenuItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			if err := tx.Save(&items[i]).Error; err != nil {
				return fmt.Errorf("failed to save menu item %s: %w", items[i].ID, err)
			}
		}
		return nil
	})
}
