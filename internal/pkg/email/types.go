// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeWelcome             EmailType = "welcome"
	EmailTypeEmailVerification   EmailType = "email_verification"
	EmailTypeOrderConfirmation   EmailType = "order_confirmation"
	EmailTypeReservationReceived EmailType = "reservation_received"
)

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLContent string
	Type        EmailType
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string
	SiteURL   string
	UserName  string
	UserEmail string
	Year      int
}

// OrderConfirmationData contains data for the order confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderID       string
	OrderDate     string
	DeliveryType  string
	PaymentMethod string
	Items         []OrderLine
	Subtotal      string
	Tax           string
	DeliveryFee   string
	Total         string
	OrderURL      string
	LocalQueue    bool
}

// OrderLine is one item row of a confirmation
type OrderLine struct {
	Name          string
	Customization string
	Quantity      int
	Price         string
	Total         string
}

// EmailVerificationData contains data for email verification
type EmailVerificationData struct {
	EmailTemplateData
	VerificationURL string
	ExpiryTime      string
}

// ReservationData contains data for the reservation acknowledgement
type ReservationData struct {
	EmailTemplateData
	ReservationID string
	Date          string
	Time          string
	Guests        int
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
