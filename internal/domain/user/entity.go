// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Theme values
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// MaxFavoriteItems bounds the favorites kept in a profile
const MaxFavoriteItems = 10

// Preferences are the customer's settings
type Preferences struct {
	Notifications bool   `gorm:"not null" json:"notifications"`
	Marketing     bool   `gorm:"not null" json:"marketing"`
	Theme         string `gorm:"size:16;not null" json:"theme"`
}

// DefaultPreferences are applied to new accounts
func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, Marketing: false, Theme: ThemeLight}
}

// Stats summarize the customer's orders
type Stats struct {
	TotalOrders   int             `gorm:"not null;default:0" json:"totalOrders"`
	TotalSpent    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"totalSpent"`
	FavoriteItems []string        `gorm:"serializer:json" json:"favoriteItems"`
}

// User represents a customer account
type User struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	Email                 string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password              string         `gorm:"not null;size:255" json:"-"`
	DisplayName           string         `gorm:"size:100" json:"displayName"`
	Phone                 string         `gorm:"size:20" json:"phone"`
	EmailVerified         bool           `gorm:"not null" json:"emailVerified"`
	EmailVerifiedAt       *time.Time     `json:"emailVerifiedAt,omitempty"`
	VerificationToken     *string        `gorm:"uniqueIndex;size:64" json:"-"`
	VerificationExpiresAt *time.Time     `json:"-"`
	Preferences           Preferences    `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	Stats                 Stats          `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	LastLoginAt           *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	Addresses []Address `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"addresses,omitempty"`
}

// Address is a saved delivery address
type Address struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"-"`
	Label        string    `gorm:"size:20;not null" json:"label"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Phone        string    `gorm:"size:20;not null" json:"phone"`
	AddressLine  string    `gorm:"size:500;not null" json:"addressLine"`
	City         string    `gorm:"size:100;not null" json:"city"`
	Pincode      string    `gorm:"size:6;not null" json:"pincode"`
	Instructions string    `gorm:"type:text" json:"instructions,omitempty"`
	IsDefault    bool      `gorm:"not null" json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = normalizeEmail(u.Email)
	return nil
}

// GetDisplayName returns display name (name or email)
func (u *User) GetDisplayName() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.Email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
