// internal/domain/cart/entity.go
package cart

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
)

// Line is one purchasable entry of the cart. UnitPrice is frozen when the line is created.
type Line struct {
	Key           string             `json:"cartKey"`
	ItemID        string             `json:"id"`
	Name          string             `json:"name"`
	Category      menu.Category      `json:"category,omitempty"`
	Image         string             `json:"image,omitempty"`
	BasePrice     decimal.Decimal    `json:"price"`
	Customization menu.Customization `json:"customization"`
	Quantity      int                `json:"quantity"`
	UnitPrice     decimal.Decimal    `json:"finalPrice"`
	AddedAt       time.Time          `json:"addedAt"`
}

// LineTotal is UnitPrice × Quantity
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CompositeKey identifies a line by item and customization
func CompositeKey(itemID string, c menu.Customization) string {
	// marshalling a struct of strings, bools and string slices cannot fail
	data, _ := json.Marshal(c)
	return itemID + "_" + string(data)
}

// Snapshot is the persisted form of a cart
type Snapshot struct {
	Items   []Line    `json:"items"`
	SavedAt time.Time `json:"savedAt"`
}

// EventType names a cart change
type EventType string

const (
	EventItemAdded       EventType = "item_added"
	EventQuantityChanged EventType = "quantity_changed"
	EventItemRemoved     EventType = "item_removed"
	EventCleared         EventType = "cleared"
	EventOrdered         EventType = "ordered"
)

// Event is delivered to observers after every mutation
type Event struct {
	Type  EventType `json:"type"`
	Key   string    `json:"key,omitempty"`
	Line  *Line     `json:"line,omitempty"`
	Lines []Line    `json:"lines"`
	Count int       `json:"count"`
}

// Change reports the outcome of a quantity change
type Change struct {
	Line    Line
	Found   bool
	Removed bool
}

func amounts(lines []Line) []pricing.LineAmount {
	out := make([]pricing.LineAmount, len(lines))
	for i, l := range lines {
		out[i] = pricing.LineAmount{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

func countItems(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
