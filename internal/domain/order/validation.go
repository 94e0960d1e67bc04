// internal/domain/order/validation.go
package order

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
)

var (
	phoneDigits = regexp.MustCompile(`^[0-9]{8,15}$`)
	pincode     = regexp.MustCompile(`^\d{6}$`)
)

// CheckoutInput is the checkout form as submitted. CVV and expiry are accepted
// so clients can post the whole form, but neither is ever stored.
type CheckoutInput struct {
	DeliveryType  string `json:"deliveryType" validate:"required,oneof=delivery pickup"`
	Name          string `json:"name" validate:"required_if=DeliveryType delivery"`
	Phone         string `json:"phone" validate:"required_if=DeliveryType delivery,bn_phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	AddressLine   string `json:"addressLine" validate:"required_if=DeliveryType delivery"`
	City          string `json:"city" validate:"required_if=DeliveryType delivery"`
	Pincode       string `json:"pincode" validate:"required_if=DeliveryType delivery,bn_pincode"`
	Instructions  string `json:"instructions"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cod card upi"`
	UpiID         string `json:"upiId" validate:"required_if=PaymentMethod upi"`
	CardNumber    string `json:"cardNumber" validate:"required_if=PaymentMethod card"`
	CardName      string `json:"cardName" validate:"required_if=PaymentMethod card"`
	ExpiryDate    string `json:"expiryDate"`
	CVV           string `json:"cvv"`
	UserID        *uint  `json:"-"`
}

// Normalize trims every text field
func (in *CheckoutInput) Normalize() {
	for _, f := range []*string{
		&in.DeliveryType, &in.Name, &in.Phone, &in.Email, &in.AddressLine, &in.City, &in.Pincode,
		&in.Instructions, &in.PaymentMethod, &in.UpiID, &in.CardNumber, &in.CardName, &in.ExpiryDate, &in.CVV,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// FieldError is one failed checkout rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists failed rules in form order
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return v[0].Message
}

// Has reports whether field failed
func (v ValidationErrors) Has(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

var fieldMessages = map[string]string{
	"deliveryType":  "Delivery type required",
	"name":          "Name is required",
	"phone":         "Valid phone is required",
	"email":         "Please enter a valid email address",
	"addressLine":   "Address is required",
	"city":          "City is required",
	"pincode":       "Valid 6-digit pincode required",
	"paymentMethod": "Payment method required",
	"upiId":         "Please provide UPI ID",
	"cardNumber":    "Card details required (card processing not integrated)",
	"cardName":      "Card details required (card processing not integrated)",
}

// Validator checks checkout input
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the checkout rules
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// errors are impossible here: tags are non-empty and functions non-nil
	_ = v.RegisterValidation("bn_phone", onDelivery(func(s string) bool {
		return phoneDigits.MatchString(strings.Join(strings.Fields(s), ""))
	}))
	_ = v.RegisterValidation("bn_pincode", onDelivery(pincode.MatchString))
	return &Validator{validate: v}
}

// Check validates the form and the cart size
func (v *Validator) Check(in *CheckoutInput, cartLines int) error {
	var out ValidationErrors

	if err := v.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			msg, ok := fieldMessages[fe.Field()]
			if !ok {
				msg = fe.Field() + " is invalid"
			}
			out = append(out, FieldError{Field: fe.Field(), Message: msg})
		}
	}
	if cartLines == 0 {
		out = append(out, FieldError{Field: "cart", Message: "Cart is empty"})
	}

	if len(out) > 0 {
		return out
	}
	return nil
}

// onDelivery applies check only to delivery orders and to non-empty values
func onDelivery(check func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		parent := reflect.Indirect(fl.Parent())
		if parent.FieldByName("DeliveryType").String() != string(pricing.DeliveryTypeDelivery) {
			return true
		}
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return check(value)
	}
}

// MaskCardNumber keeps the last four digits and masks the rest with '*',
// preserving the length of the submitted value
func MaskCardNumber(number string) string {
	digits := strings.Join(strings.Fields(number), "")
	last := digits
	if len(digits) > 4 {
		last = digits[len(digits)-4:]
	}
	pad := len(number) - len(last)
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("*", pad) + last
}
