// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// Address labels
const (
	LabelHome  = "home"
	LabelWork  = "work"
	LabelOther = "other"
)

// MaxAddresses bounds the saved addresses per account
const MaxAddresses = 10

var pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)

var (
	ErrAddressNotFound  = apperrors.New(apperrors.CodeNotFound, "Address not found")
	ErrTooManyAddresses = apperrors.New(apperrors.CodeCapacity, fmt.Sprintf("You can save at most %d addresses", MaxAddresses))
)

var addressMessages = map[string]string{
	"label":        "Label must be home, work or other",
	"name":         "Name is required",
	"phone":        "Please enter a valid phone number",
	"addressLine":  "Address is required",
	"city":         "City is required",
	"pincode":      "Valid 6-digit pincode is required",
	"instructions": "Instructions are too long",
}

// AddressService handles saved delivery addresses
type AddressService struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB) *AddressService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("bn_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bn_pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	})
	return &AddressService{db: db, validate: v}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	Label        string `json:"label" validate:"omitempty,oneof=home work other"`
	Name         string `json:"name" validate:"required,min=2"`
	Phone        string `json:"phone" validate:"required,bn_phone"`
	AddressLine  string `json:"addressLine" validate:"required"`
	City         string `json:"city" validate:"required"`
	Pincode      string `json:"pincode" validate:"required,bn_pincode"`
	Instructions string `json:"instructions" validate:"max=500"`
	IsDefault    bool   `json:"isDefault"`
}

// List returns the user's addresses, default first then newest
func (s *AddressService) List(ctx context.Context, userID uint) ([]Address, error) {
	var addresses []Address
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// Get retrieves a specific address for a user
func (s *AddressService) Get(ctx context.Context, userID, addressID uint) (*Address, error) {
	var address Address
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", err)
	}
	return &address, nil
}

// Default returns the user's default address, used to prefill checkout
func (s *AddressService) Default(ctx context.Context, userID uint) (*Address, error) {
	var address Address
	err := s.db.WithContext(ctx).Where("user_id = ? AND is_default = ?", userID, true).First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to retrieve default address: %w", err)
	}
	return &address, nil
}

// Create saves a new address. The first address always becomes the default.
func (s *AddressService) Create(ctx context.Context, userID uint, req *CreateAddressRequest) (*Address, error) {
	req.Label = strings.ToLower(strings.TrimSpace(req.Label))
	if req.Label == "" {
		req.Label = LabelHome
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.AddressLine = strings.TrimSpace(req.AddressLine)
	req.City = strings.TrimSpace(req.City)
	req.Pincode = strings.TrimSpace(req.Pincode)
	req.Instructions = strings.TrimSpace(req.Instructions)

	if err := s.validate.Struct(req); err != nil {
		return nil, addressValidationError(err)
	}

	address := Address{
		UserID:       userID,
		Label:        req.Label,
		Name:         req.Name,
		Phone:        req.Phone,
		AddressLine:  req.AddressLine,
		City:         req.City,
		Pincode:      req.Pincode,
		Instructions: req.Instructions,
		IsDefault:    req.IsDefault,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count addresses: %w", err)
		}
		if count >= MaxAddresses {
			return ErrTooManyAddresses
		}
		if count == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := unsetDefaultAddresses(tx, userID); err != nil {
				return err
			}
		}
		if err := tx.Create(&address).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// Delete removes an address. When the default goes, the newest remaining address takes over.
func (s *AddressService) Delete(ctx context.Context, userID, addressID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var address Address
		if err := tx.Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return fmt.Errorf("failed to retrieve address: %w", err)
		}

		if err := tx.Delete(&address).Error; err != nil {
			return fmt.Errorf("failed to delete address: %w", err)
		}
		if !address.IsDefault {
			return nil
		}

		var next Address
		err := tx.Where("user_id = ?", userID).Order("created_at DESC, id DESC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find replacement default: %w", err)
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}

// SetDefault makes an address the user's default
func (s *AddressService) SetDefault(ctx context.Context, userID, addressID uint) (*Address, error) {
	address, err := s.Get(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unsetDefaultAddresses(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(address).Update("is_default", true).Error; err != nil {
			return fmt.Errorf("failed to set default address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	address.IsDefault = true
	return address, nil
}

func unsetDefaultAddresses(tx *gorm.DB, userID uint) error {
	if err := tx.Model(&Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error; err != nil {
		return fmt.Errorf("failed to unset default addresses: %w", err)
	}
	return nil
}

func addressValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	first := ""
	for _, fe := range verrs {
		msg, ok := addressMessages[fe.Field()]
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
