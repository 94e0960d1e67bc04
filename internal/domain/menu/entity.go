// internal/domain/menu/entity.go
package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups menu items on the storefront
type Category string

const (
	CategoryPizza      Category = "pizza"
	CategoryPasta      Category = "pasta"
	CategoryAppetizers Category = "appetizers"
	CategoryDesserts   Category = "desserts"
	CategoryBeverages  Category = "beverages"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryPizza, CategoryPasta, CategoryAppetizers, CategoryDesserts, CategoryBeverages:
		return true
	}
	return false
}

// MenuItem is a catalog entry. Items are immutable once loaded.
type MenuItem struct {
	ID          string          `gorm:"primaryKey;size:64" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    Category        `gorm:"size:32;not null;index" json:"category"`
	Image       string          `gorm:"size:500" json:"image,omitempty"`
	Tags        []string        `gorm:"serializer:json" json:"tags"`
	IsAvailable bool            `gorm:"not null;index" json:"isAvailable"`
	IsPopular   bool            `gorm:"not null" json:"isPopular"`
	SortOrder   int             `gorm:"default:0" json:"-"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

// TableName overrides the table name
func (MenuItem) TableName() string {
	return "menu_items"
}

// Customization is the set of options chosen for a cart line.
// The zero value means no customization.
type Customization struct {
	Size          string   `json:"size,omitempty"`
	ExtraCheese   bool     `json:"extraCheese,omitempty"`
	ExtraToppings []string `json:"extraToppings,omitempty"`
	SpiceLevel    string   `json:"spiceLevel,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// Size values understood by the pricing rules
const (
	SizeRegular = "regular"
	SizeLarge   = "large"
)

// IsZero reports whether no option was selected
func (c Customization) IsZero() bool {
	return c.Size == "" && !c.ExtraCheese && len(c.ExtraToppings) == 0 && c.SpiceLevel == "" && c.Notes == ""
}
