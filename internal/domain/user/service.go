// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/auth"
)

// VerificationTTL is how long an email verification link stays valid
const VerificationTTL = 48 * time.Hour

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\+]?[0-9\s\-\(\)]{8,15}$`)
)

var (
	ErrUserNotFound     = apperrors.New(apperrors.CodeNotFound, "No account found with this email address")
	ErrWrongPassword    = apperrors.New(apperrors.CodeUnauthorized, "Incorrect password")
	ErrEmailInUse       = apperrors.New(apperrors.CodeConflict, "An account already exists with this email")
	ErrInvalidEmail     = apperrors.New(apperrors.CodeValidation, "Invalid email address")
	ErrTooManyAttempts  = apperrors.New(apperrors.CodeCapacity, "Too many attempts. Please try again later")
	ErrInvalidToken     = apperrors.New(apperrors.CodeUnauthorized, "Invalid or expired token")
	ErrAccountNotFound  = apperrors.New(apperrors.CodeNotFound, "Account not found")
	ErrAlreadyVerified  = apperrors.New(apperrors.CodeConflict, "Email address is already verified")
	ErrInvalidThemeName = apperrors.New(apperrors.CodeValidation, "Theme must be light or dark")
)

// Mailer delivers verification links
type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
}

// Service handles account business logic
type Service struct {
	db                  *gorm.DB
	passwordManager     *auth.PasswordManager
	jwtManager          *auth.JWTManager
	limiter             AttemptLimiter
	mailer              Mailer
	requireVerification bool
	logger              logrus.FieldLogger
	now                 func() time.Time
}

// Options configures optional collaborators of the service
type Options struct {
	Limiter             AttemptLimiter
	Mailer              Mailer
	RequireVerification bool
}

// NewService creates a new user service
func NewService(db *gorm.DB, passwords *auth.PasswordManager, tokens *auth.JWTManager, logger logrus.FieldLogger, opts Options) *Service {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = noLimit{}
	}
	return &Service{
		db:                  db,
		passwordManager:     passwords,
		jwtManager:          tokens,
		limiter:             limiter,
		mailer:              opts.Mailer,
		requireVerification: opts.RequireVerification,
		logger:              logger,
		now:                 time.Now,
	}
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest represents login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	User *User `json:"user"`
	*auth.TokenPair
}

// UpdateProfileRequest carries profile changes; nil fields are left untouched
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Phone       *string `json:"phone"`
}

// PreferencesRequest carries preference changes; nil fields are left untouched
type PreferencesRequest struct {
	Notifications *bool   `json:"notifications"`
	Marketing     *bool   `json:"marketing"`
	Theme         *string `json:"theme"`
}

// ValidateRegistration applies the storefront sign-up rules in order and returns the first failure
func ValidateRegistration(req *RegisterRequest) error {
	switch {
	case len(strings.TrimSpace(req.Name)) < 2:
		return validation("Name must be at least 2 characters")
	case !emailPattern.MatchString(strings.TrimSpace(req.Email)):
		return validation("Please enter a valid email address")
	case req.Phone != "" && !phonePattern.MatchString(req.Phone):
		return validation("Please enter a valid phone number")
	case len(req.Password) < 8:
		return validation("Password must be at least 8 characters")
	case req.Password != req.ConfirmPassword:
		return validation("Passwords do not match")
	case !auth.IsStrong(req.Password):
		return validation("Password must contain uppercase, lowercase, number, and special character")
	}
	return nil
}

func validation(msg string) error {
	return apperrors.New(apperrors.CodeValidation, msg)
}

// Register creates a new account and signs it in
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := ValidateRegistration(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailInUse
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := User{
		Email:       email,
		Password:    hashedPassword,
		DisplayName: strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Preferences: DefaultPreferences(),
		Stats:       Stats{TotalSpent: decimal.Zero, FavoriteItems: []string{}},
		LastLoginAt: &now,
	}
	var token string
	if s.requireVerification {
		token = uuid.NewString()
		expires := now.Add(VerificationTTL)
		user.VerificationToken = &token
		user.VerificationExpiresAt = &expires
	} else {
		user.EmailVerified = true
		user.EmailVerifiedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if token != "" {
		s.sendVerification(ctx, &user, token)
	}

	return s.respond(&user)
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.logger.WithError(err).Warn("login attempt limiter unavailable")
	} else if !allowed {
		return nil, ErrTooManyAttempts
	}

	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, ErrWrongPassword
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.WithError(err).Warn("failed to reset login attempts")
	}

	now := s.now().UTC()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to update last login")
	}

	return s.respond(&user)
}

// Refresh exchanges a refresh token for a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.Validate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, err, ErrInvalidToken.Message)
	}

	user, err := s.Profile(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.respond(user)
}

func (s *Service) respond(user *User) (*AuthResponse, error) {
	pair, err := s.jwtManager.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, TokenPair: pair}, nil
}

// Profile returns the account with its preferences and stats
func (s *Service) Profile(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the display name and phone
func (s *Service) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*User, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if len(name) < 2 {
			return nil, validation("Name must be at least 2 characters")
		}
		updates["display_name"] = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			return nil, validation("Please enter a valid phone number")
		}
		updates["phone"] = phone
	}
	return s.applyUpdates(ctx, userID, updates)
}

// UpdatePreferences changes the notification, marketing and theme settings
func (s *Service) UpdatePreferences(ctx context.Context, userID uint, req *PreferencesRequest) (*User, error) {
	updates := map[string]interface{}{}
	if req.Notifications != nil {
		updates["pref_notifications"] = *req.Notifications
	}
	if req.Marketing != nil {
		updates["pref_marketing"] = *req.Marketing
	}
	if req.Theme != nil {
		if *req.Theme != ThemeLight && *req.Theme != ThemeDark {
			return nil, ErrInvalidThemeName
		}
		updates["pref_theme"] = *req.Theme
	}
	return s.applyUpdates(ctx, userID, updates)
}

func (s *Service) applyUpdates(ctx context.Context, userID uint, updates map[string]interface{}) (*User, error) {
	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrAccountNotFound
		}
	}
	return s.Profile(ctx, userID)
}

// VerifyEmail marks the account holding token as verified
func (s *Service) VerifyEmail(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user User
	if err := s.db.WithContext(ctx).Where("verification_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find verification token: %w", err)
	}

	now := s.now().UTC()
	if user.VerificationExpiresAt != nil && now.After(*user.VerificationExpiresAt) {
		return nil, ErrInvalidToken
	}

	err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"email_verified":          true,
		"email_verified_at":       now,
		"verification_token":      nil,
		"verification_expires_at": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	return s.Profile(ctx, user.ID)
}

// ResendVerification issues a fresh verification token and emails it
func (s *Service) ResendVerification(ctx context.Context, userID uint) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	token := uuid.NewString()
	expires := s.now().UTC().Add(VerificationTTL)
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": expires,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	s.sendVerification(ctx, user, token)
	return nil
}

func (s *Service) sendVerification(ctx context.Context, user *User, token string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendVerification(ctx, user.Email, user.GetDisplayName(), token); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to send verification email")
	}
}

// OrderPlaced records a remotely stored order in the customer's stats
func (s *Service) OrderPlaced(ctx context.Context, o *order.Order, receipt storage.Receipt) error {
	if o.UserID == nil || receipt.Local() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.First(&user, *o.UserID).Error; err != nil {
			return fmt.Errorf("failed to load user stats: %w", err)
		}

		user.Stats.TotalOrders++
		user.Stats.TotalSpent = user.Stats.TotalSpent.Add(o.Total)
		user.Stats.FavoriteItems = mergeFavorites(user.Stats.FavoriteItems, o.Items)
		err := tx.Model(&user).
			Select("stats_total_orders", "stats_total_spent", "stats_favorite_items").
			Updates(&user).Error
		if err != nil {
			return fmt.Errorf("failed to update user stats: %w", err)
		}
		return nil
	})
}

// mergeFavorites puts the newly ordered item ids first, keeps each id once and caps the list
func mergeFavorites(current []string, items []order.OrderItem) []string {
	merged := make([]string, 0, MaxFavoriteItems)
	seen := make(map[string]bool)
	add := func(id string) {
		if id == "" || seen[id] || len(merged) >= MaxFavoriteItems {
			return
		}
		seen[id] = true
		merged = append(merged, id)
	}
	for _, item := range items {
		add(item.ItemID)
	}
	for _, id := range current {
		add(id)
	}
	return merged
}
