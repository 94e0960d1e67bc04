// internal/domain/contact/contact.go
package contact

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// IDPrefix marks messages stored in the local queue
const IDPrefix = "msg"

// StatusNew is the state of an unread message
const StatusNew = "new"

// Message is a contact form submission
type Message struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	Subject   string    `gorm:"size:255" json:"subject"`
	Body      string    `gorm:"column:message;type:text;not null" json:"message"`
	UserID    *uint     `gorm:"index" json:"userId"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	CreatedAt time.Time `json:"timestamp"`
}

// TableName overrides
func (Message) TableName() string { return "contact_messages" }

// SetID assigns the storage identifier
func (m *Message) SetID(id string) { m.ID = id }

// Input is the contact form
type Input struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=255"`
	Message string `json:"message" validate:"required,max=5000"`
	UserID  *uint  `json:"-"`
}

var messages = map[string]string{
	"name":    "Name is required",
	"email":   "Please enter a valid email address",
	"subject": "Subject is too long",
	"message": "Message is required",
}

// Service stores contact messages
type Service struct {
	sink     storage.Sink[*Message]
	validate *validator.Validate
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewService creates the contact service
func NewService(sink storage.Sink[*Message], logger logrus.FieldLogger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{sink: sink, validate: v, logger: logger, now: time.Now}
}

// Submit validates and stores a message with status new
func (s *Service) Submit(ctx context.Context, in Input) (*Message, storage.Receipt, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if err := s.validate.Struct(&in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, storage.Receipt{}, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = messages[fe.Field()]
		}
		return nil, storage.Receipt{}, apperrors.New(apperrors.CodeValidation, messages[verrs[0].Field()]).WithDetails(fields)
	}

	m := &Message{
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Body:      in.Message,
		UserID:    in.UserID,
		Status:    StatusNew,
		CreatedAt: s.now().UTC(),
	}
	receipt, err := s.sink.Append(ctx, m)
	if err != nil {
		return nil, storage.Receipt{}, apperrors.Wrap(apperrors.CodeDependency, err, "Failed to send message. Please try again.")
	}
	s.logger.WithFields(logrus.Fields{"message_id": receipt.ID, "backend": receipt.Backend}).Info("contact message received")
	return m, receipt, nil
}
