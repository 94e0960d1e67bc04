// internal/domain/reservation/reservation.go
package reservation

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// IDPrefix marks reservations stored in the local queue
const IDPrefix = "res"

// Guest limits
const (
	DefaultGuests = 2
	MaxGuests     = 20
)

// StatusPending is the state of a new reservation
const StatusPending = "pending"

var phonePattern = regexp.MustCompile(`^[\+]?[0-9\s\-\(\)]{8,15}$`)

// Reservation is a table request
type Reservation struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Phone     string    `gorm:"size:32;not null" json:"phone"`
	Email     *string   `gorm:"size:255" json:"email"`
	Date      string    `gorm:"size:10;not null;index" json:"date"`
	Time      string    `gorm:"size:5;not null" json:"time"`
	Guests    int       `gorm:"not null" json:"guests"`
	Note      *string   `gorm:"type:text" json:"note"`
	UserID    *uint     `gorm:"index" json:"userId"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	CreatedAt time.Time `json:"timestamp"`
}

// TableName overrides
func (Reservation) TableName() string { return "reservations" }

// SetID assigns the storage identifier
func (r *Reservation) SetID(id string) { r.ID = id }

// Input is the reservation form
type Input struct {
	Name   string `json:"name" validate:"required,min=2"`
	Phone  string `json:"phone" validate:"required,bn_phone"`
	Email  string `json:"email" validate:"omitempty,email"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string `json:"time" validate:"required,datetime=15:04"`
	Guests int    `json:"guests" validate:"min=1,max=20"`
	Note   string `json:"note" validate:"max=1000"`
	UserID *uint  `json:"-"`
}

var messages = map[string]string{
	"name":   "Name is required",
	"phone":  "Valid phone is required",
	"email":  "Please enter a valid email address",
	"date":   "Please choose a date",
	"time":   "Please choose a time",
	"guests": "Guests must be between 1 and 20",
	"note":   "Note is too long",
}

// ErrDateInPast rejects reservations before today
var ErrDateInPast = apperrors.New(apperrors.CodeValidation, "Reservation date cannot be in the past")

// Notifier is told about every stored reservation
type Notifier interface {
	ReservationReceived(ctx context.Context, r *Reservation) error
}

// Service validates and stores reservations
type Service struct {
	sink      storage.Sink[*Reservation]
	validate  *validator.Validate
	notifiers []Notifier
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewService creates the reservation service
func NewService(sink storage.Sink[*Reservation], logger logrus.FieldLogger, notifiers ...Notifier) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("bn_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Service{sink: sink, validate: v, notifiers: notifiers, logger: logger, now: time.Now}
}

// Submit stores a reservation request with status pending
func (s *Service) Submit(ctx context.Context, in Input) (*Reservation, storage.Receipt, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Note = strings.TrimSpace(in.Note)
	if in.Guests == 0 {
		in.Guests = DefaultGuests
	}

	if err := s.validate.Struct(&in); err != nil {
		return nil, storage.Receipt{}, validationError(err)
	}
	// parse errors are impossible after the datetime rule
	day, _ := time.ParseInLocation("2006-01-02", in.Date, time.Local)
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if day.Before(today) {
		return nil, storage.Receipt{}, ErrDateInPast
	}

	r := &Reservation{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     optional(in.Email),
		Date:      in.Date,
		Time:      in.Time,
		Guests:    in.Guests,
		Note:      optional(in.Note),
		UserID:    in.UserID,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
	receipt, err := s.sink.Append(ctx, r)
	if err != nil {
		return nil, storage.Receipt{}, apperrors.Wrap(apperrors.CodeDependency, err, "Failed to submit reservation. Please try again.")
	}

	for _, n := range s.notifiers {
		if err := n.ReservationReceived(ctx, r); err != nil {
			s.logger.WithError(err).WithField("reservation_id", r.ID).Warn("reservation notifier failed")
		}
	}
	s.logger.WithFields(logrus.Fields{"reservation_id": receipt.ID, "backend": receipt.Backend}).Info("reservation received")
	return r, receipt, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	first := ""
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		if first == "" {
			first = msg
		}
		fields[fe.Field()] = msg
	}
	return apperrors.New(apperrors.CodeValidation, first).WithDetails(fields)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
