// internal/domain/order/entity.go
package order

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusCashOnDelivery PaymentStatus = "cash_on_delivery"
	PaymentStatusPending        PaymentStatus = "pending"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

// Order is the persisted order record. Amounts are rounded to two decimals.
type Order struct {
	ID            string               `gorm:"primaryKey;size:64" json:"id"`
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Subtotal      decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax           decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"tax"`
	DeliveryFee   decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"deliveryFee"`
	Total         decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"total"`
	PaymentMethod PaymentMethod        `gorm:"size:16;not null" json:"paymentMethod"`
	DeliveryType  pricing.DeliveryType `gorm:"size:16;not null" json:"deliveryType"`

	// Customer fields are null when not collected
	Name         *string `gorm:"size:255" json:"name"`
	Phone        *string `gorm:"size:32" json:"phone"`
	Email        *string `gorm:"size:255" json:"email"`
	AddressLine  *string `gorm:"size:500" json:"addressLine"`
	City         *string `gorm:"size:100" json:"city"`
	Pincode      *string `gorm:"size:6" json:"pincode"`
	Instructions *string `gorm:"type:text" json:"instructions"`

	// Payment placeholders, never a full card number or CVV
	CardMasked *string `gorm:"size:32" json:"cardMasked,omitempty"`
	UpiID      *string `gorm:"size:100" json:"upiId,omitempty"`

	UserID        *uint         `gorm:"index" json:"uid"`
	SessionKey    string        `gorm:"size:64;index" json:"sessionKey,omitempty"`
	Status        OrderStatus   `gorm:"size:32;not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:32;not null" json:"paymentStatus"`
	CreatedAt     time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time     `json:"-"`
	CancelledAt   *time.Time    `json:"cancelledAt,omitempty"`
}

// OrderItem is a line of an order with its frozen unit price
type OrderItem struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	OrderID       string          `gorm:"size:64;not null;index" json:"-"`
	Position      int             `gorm:"not null" json:"-"`
	ItemID        string          `gorm:"size:64;not null" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Quantity      int             `gorm:"column:qty;not null" json:"qty"`
	Customization string          `gorm:"size:500" json:"customization,omitempty"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// SetID assigns the storage identifier
func (o *Order) SetID(id string) {
	o.ID = id
	for i := range o.Items {
		o.Items[i].OrderID = id
	}
}

// CanBeCancelled checks if the order is still pending and inside the cancel window
func (o *Order) CanBeCancelled(now time.Time, window time.Duration) bool {
	return o.Status == OrderStatusPending && now.Sub(o.CreatedAt) <= window
}

// ItemCount is the sum of item quantities
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Totals returns the stored amounts
func (o *Order) Totals() pricing.Totals {
	return pricing.Totals{
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		DeliveryFee: o.DeliveryFee,
		Total:       o.Total,
	}
}

// SessionKey hashes a session id so orders never hold the raw cookie value
func SessionKey(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

// PlacedBy reports whether the requester placed the order. Account orders
// belong to the account; guest orders belong to the session that placed them.
func (o *Order) PlacedBy(userID *uint, sessionID string) bool {
	if o.UserID != nil {
		return userID != nil && *userID == *o.UserID
	}
	return o.SessionKey != "" && sessionID != "" && o.SessionKey == SessionKey(sessionID)
}

// Public returns a copy without the session binding
func (o *Order) Public() *Order {
	out := *o
	out.SessionKey = ""
	return &out
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
