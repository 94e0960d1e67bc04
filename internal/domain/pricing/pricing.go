// internal/domain/pricing/pricing.go
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/domain/menu"
)

// DeliveryType selects how the order reaches the customer
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Rules holds the configured pricing parameters
type Rules struct {
	TaxRate               decimal.Decimal
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	LargeSizeSurcharge    decimal.Decimal
	ExtraCheeseSurcharge  decimal.Decimal
	ToppingSurcharge      decimal.Decimal
}

// RulesFromConfig extracts the pricing rules from the restaurant configuration
func RulesFromConfig(cfg config.RestaurantConfig) Rules {
	return Rules{
		TaxRate:               cfg.TaxRate,
		DeliveryFee:           cfg.DeliveryFee,
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		LargeSizeSurcharge:    cfg.LargeSizeSurcharge,
		ExtraCheeseSurcharge:  cfg.ExtraCheeseSurcharge,
		ToppingSurcharge:      cfg.ToppingSurcharge,
	}
}

// DefaultRules returns the house pricing: 12% tax, ₹40 delivery, free above ₹500
func DefaultRules() Rules {
	return Rules{
		TaxRate:               decimal.RequireFromString("0.12"),
		DeliveryFee:           decimal.NewFromInt(40),
		FreeDeliveryThreshold: decimal.NewFromInt(500),
		LargeSizeSurcharge:    decimal.NewFromInt(100),
		ExtraCheeseSurcharge:  decimal.NewFromInt(50),
		ToppingSurcharge:      decimal.NewFromInt(30),
	}
}

// LineAmount is the priced part of a cart line
type LineAmount struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals are unrounded order amounts. Total always equals Subtotal + Tax + DeliveryFee.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// UnitPrice is the price of one unit with customization surcharges
func (r Rules) UnitPrice(base decimal.Decimal, c menu.Customization) decimal.Decimal {
	price := base
	if c.Size == menu.SizeLarge {
		price = price.Add(r.LargeSizeSurcharge)
	}
	if c.ExtraCheese {
		price = price.Add(r.ExtraCheeseSurcharge)
	}
	if n := len(c.ExtraToppings); n > 0 {
		price = price.Add(r.ToppingSurcharge.Mul(decimal.NewFromInt(int64(n))))
	}
	return price
}

// Subtotal sums frozen unit prices times quantities
func Subtotal(lines []LineAmount) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// DeliveryFeeFor returns the fee for a subtotal. Pickup is always free.
func (r Rules) DeliveryFeeFor(subtotal decimal.Decimal, deliveryType DeliveryType) decimal.Decimal {
	if deliveryType == DeliveryTypePickup {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(r.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return r.DeliveryFee
}

// Compute derives all order amounts from a single snapshot of lines
func (r Rules) Compute(lines []LineAmount, deliveryType DeliveryType) Totals {
	subtotal := Subtotal(lines)
	tax := subtotal.Mul(r.TaxRate)
	fee := r.DeliveryFeeFor(subtotal, deliveryType)
	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       subtotal.Add(tax).Add(fee),
	}
}

// FreeDeliveryRemaining is how much more is needed for free delivery.
// It is zero for an empty cart or once the threshold is reached.
func (r Rules) FreeDeliveryRemaining(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || subtotal.GreaterThanOrEqual(r.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return r.FreeDeliveryThreshold.Sub(subtotal)
}

// Rounded returns the totals rounded to paise for display and storage
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:    Round(t.Subtotal),
		Tax:         Round(t.Tax),
		DeliveryFee: Round(t.DeliveryFee),
		Total:       Round(t.Total),
	}
}

// Round rounds a monetary amount to two decimal places
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount with two decimals, e.g. "2452.80"
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
