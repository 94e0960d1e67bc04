// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
	"github.com/bella-notte/ordering-backend/internal/domain/reservation"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
)

// EmailService renders and sends customer emails
type EmailService struct {
	sender    Sender
	siteName  string
	baseURL   string
	templates map[EmailType]*template.Template
	logger    logrus.FieldLogger
}

// NewEmailService creates a new email service
func NewEmailService(sender Sender, siteName, baseURL string, logger logrus.FieldLogger) (*EmailService, error) {
	service := &EmailService{
		sender:    sender,
		siteName:  siteName,
		baseURL:   baseURL,
		templates: make(map[EmailType]*template.Template, len(contentTemplates)),
		logger:    logger,
	}

	for name, content := range contentTemplates {
		tmpl, err := template.New(string(name)).Parse(layoutTemplate)
		if err == nil {
			_, err = tmpl.Parse(content)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		service.templates[name] = tmpl
	}
	return service, nil
}

// OrderPlaced sends the order confirmation when the customer left an email address
func (s *EmailService) OrderPlaced(ctx context.Context, o *order.Order, receipt storage.Receipt) error {
	if o.Email == nil {
		return nil
	}

	data := OrderConfirmationData{
		EmailTemplateData: GetBaseTemplateData(s.siteName, s.baseURL, deref(o.Name), *o.Email),
		OrderID:           o.ID,
		OrderDate:         o.CreatedAt.Format("02 Jan 2006, 15:04"),
		DeliveryType:      string(o.DeliveryType),
		PaymentMethod:     paymentLabel(o.PaymentMethod),
		Subtotal:          pricing.Format(o.Subtotal),
		Tax:               pricing.Format(o.Tax),
		DeliveryFee:       pricing.Format(o.DeliveryFee),
		Total:             pricing.Format(o.Total),
		OrderURL:          fmt.Sprintf("%s/orders/%s", s.baseURL, url.PathEscape(o.ID)),
		LocalQueue:        receipt.Local(),
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, OrderLine{
			Name:          item.Name,
			Customization: item.Customization,
			Quantity:      item.Quantity,
			Price:         pricing.Format(item.Price),
			Total:         pricing.Format(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}

	return s.send(ctx, EmailTypeOrderConfirmation, *o.Email, fmt.Sprintf("Your %s order %s", s.siteName, o.ID), data)
}

// ReservationReceived acknowledges a table request
func (s *EmailService) ReservationReceived(ctx context.Context, r *reservation.Reservation) error {
	if r.Email == nil {
		return nil
	}
	data := ReservationData{
		EmailTemplateData: GetBaseTemplateData(s.siteName, s.baseURL, r.Name, *r.Email),
		ReservationID:     r.ID,
		Date:              r.Date,
		Time:              r.Time,
		Guests:            r.Guests,
	}
	return s.send(ctx, EmailTypeReservationReceived, *r.Email, fmt.Sprintf("Your table request at %s", s.siteName), data)
}

// SendVerification sends the email verification link
func (s *EmailService) SendVerification(ctx context.Context, to, name, token string) error {
	data := EmailVerificationData{
		EmailTemplateData: GetBaseTemplateData(s.siteName, s.baseURL, name, to),
		VerificationURL:   fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, url.QueryEscape(token)),
		ExpiryTime:        "24 hours",
	}
	return s.send(ctx, EmailTypeEmailVerification, to, "Verify your email address", data)
}

func (s *EmailService) send(ctx context.Context, kind EmailType, to, subject string, data any) error {
	htmlContent, err := s.renderTemplate(kind, data)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, &Email{
		To:          []string{to},
		Subject:     subject,
		HTMLContent: htmlContent,
		Type:        kind,
	}); err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	s.logger.WithFields(logrus.Fields{"type": kind, "to": to}).Debug("email sent")
	return nil
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(kind EmailType, data any) (string, error) {
	tmpl, exists := s.templates[kind]
	if !exists {
		return "", fmt.Errorf("template %s not found", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", kind, err)
	}
	return buf.String(), nil
}

func paymentLabel(m order.PaymentMethod) string {
	switch m {
	case order.PaymentMethodCOD:
		return "cash on delivery"
	case order.PaymentMethodCard:
		return "card"
	case order.PaymentMethodUPI:
		return "UPI"
	}
	return string(m)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
