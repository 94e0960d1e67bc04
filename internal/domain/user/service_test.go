package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/auth"
)

type capturedMail struct {
	to, name, token string
}

type captureMailer struct {
	sent []capturedMail
}

func (m *captureMailer) SendVerification(_ context.Context, to, name, token string) error {
	m.sent = append(m.sent, capturedMail{to: to, name: name, token: token})
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Address{}))
	return db
}

func newTestService(t *testing.T, opts Options) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:             "test-secret-that-is-long-enough-for-hs256",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}, "bella-notte")
	log, _ := test.NewNullLogger()
	return NewService(db, auth.NewPasswordManager(4), jwt, log, opts), db
}

func validRegistration() *RegisterRequest {
	return &RegisterRequest{
		Name:            "Giulia Rossi",
		Email:           "Giulia@Example.com",
		Phone:           "+91 98765 43210",
		Password:        "Secret@123",
		ConfirmPassword: "Secret@123",
	}
}

func TestValidateRegistration(t *testing.T) {
	cases := []struct {
		mutate func(r *RegisterRequest)
		want   string
	}{
		{func(r *RegisterRequest) { r.Name = "G" }, "Name must be at least 2 characters"},
		{func(r *RegisterRequest) { r.Email = "giulia@example" }, "Please enter a valid email address"},
		{func(r *RegisterRequest) { r.Phone = "12ab" }, "Please enter a valid phone number"},
		{func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "Ab@1", "Ab@1" }, "Password must be at least 8 characters"},
		{func(r *RegisterRequest) { r.ConfirmPassword = "Secret@124" }, "Passwords do not match"},
		{func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "secret123", "secret123" }, "Password must contain uppercase, lowercase, number, and special character"},
	}
	for _, tc := range cases {
		req := validRegistration()
		tc.mutate(req)
		err := ValidateRegistration(req)
		require.Error(t, err, tc.want)
		assert.Equal(t, tc.want, apperrors.As(err).Message)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	}

	req := validRegistration()
	req.Phone = ""
	assert.NoError(t, ValidateRegistration(req))
}

func TestRegisterCreatesProfileWithDefaults(t *testing.T) {
	mailer := &captureMailer{}
	s, db := newTestService(t, Options{Mailer: mailer, RequireVerification: true})

	resp, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "giulia@example.com", resp.User.Email)
	assert.False(t, resp.User.EmailVerified)

	var stored User
	require.NoError(t, db.First(&stored, resp.User.ID).Error)
	assert.Equal(t, DefaultPreferences(), stored.Preferences)
	assert.Equal(t, 0, stored.Stats.TotalOrders)
	assert.True(t, stored.Stats.TotalSpent.IsZero())
	assert.Empty(t, stored.Stats.FavoriteItems)
	assert.NotEqual(t, "Secret@123", stored.Password)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "giulia@example.com", mailer.sent[0].to)
	assert.Equal(t, "Giulia Rossi", mailer.sent[0].name)
	require.NotNil(t, stored.VerificationToken)
	assert.Equal(t, *stored.VerificationToken, mailer.sent[0].token)
}

func TestRegisterWithoutVerificationMarksVerified(t *testing.T) {
	mailer := &captureMailer{}
	s, _ := newTestService(t, Options{Mailer: mailer})

	resp, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.True(t, resp.User.EmailVerified)
	assert.Empty(t, mailer.sent)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, _ := newTestService(t, Options{})
	_, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	req := validRegistration()
	req.Email = "  GIULIA@example.com "
	_, err = s.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.Equal(t, "An account already exists with this email", apperrors.As(err).Message)
}

func TestLogin(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = s.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "Secret@123"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, "No account found with this email address", apperrors.As(err).Message)

	_, err = s.Login(ctx, &LoginRequest{Email: "giulia@example.com", Password: "Wrong@123"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = s.Login(ctx, &LoginRequest{Email: "not an email", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	resp, err := s.Login(ctx, &LoginRequest{Email: "GIULIA@example.com", Password: "Secret@123"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginAttemptLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisAttemptLimiter(client, 3, 15*time.Minute)
	s, _ := newTestService(t, Options{Limiter: limiter})
	ctx := context.Background()
	_, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = s.Login(ctx, &LoginRequest{Email: "giulia@example.com", Password: "Wrong@123"})
		assert.ErrorIs(t, err, ErrWrongPassword)
	}
	_, err = s.Login(ctx, &LoginRequest{Email: "giulia@example.com", Password: "Secret@123"})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, "Too many attempts. Please try again later", apperrors.As(err).Message)
	assert.Equal(t, 15*time.Minute, mr.TTL("auth:attempts:giulia@example.com"))

	mr.FastForward(16 * time.Minute)
	_, err = s.Login(ctx, &LoginRequest{Email: "giulia@example.com", Password: "Secret@123"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("auth:attempts:giulia@example.com"))
}

func TestLoginSucceedsWhenLimiterIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s, _ := newTestService(t, Options{Limiter: NewRedisAttemptLimiter(client, 3, time.Minute)})
	ctx := context.Background()
	_, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	mr.Close()
	_, err = s.Login(ctx, &LoginRequest{Email: "giulia@example.com", Password: "Secret@123"})
	assert.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	resp, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	refreshed, err := s.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)

	_, err = s.Refresh(ctx, resp.AccessToken)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestVerifyEmail(t *testing.T) {
	mailer := &captureMailer{}
	s, _ := newTestService(t, Options{Mailer: mailer, RequireVerification: true})
	ctx := context.Background()
	resp, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	_, err = s.VerifyEmail(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)

	u, err := s.VerifyEmail(ctx, mailer.sent[0].token)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.NotNil(t, u.EmailVerifiedAt)

	_, err = s.VerifyEmail(ctx, mailer.sent[0].token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.ErrorIs(t, s.ResendVerification(ctx, resp.User.ID), ErrAlreadyVerified)
}

func TestVerifyEmailExpired(t *testing.T) {
	mailer := &captureMailer{}
	s, _ := newTestService(t, Options{Mailer: mailer, RequireVerification: true})
	ctx := context.Background()
	_, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(VerificationTTL + time.Hour) }
	_, err = s.VerifyEmail(ctx, mailer.sent[0].token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResendVerificationIssuesNewToken(t *testing.T) {
	mailer := &captureMailer{}
	s, _ := newTestService(t, Options{Mailer: mailer, RequireVerification: true})
	ctx := context.Background()
	resp, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	require.NoError(t, s.ResendVerification(ctx, resp.User.ID))
	require.Len(t, mailer.sent, 2)
	assert.NotEqual(t, mailer.sent[0].token, mailer.sent[1].token)

	_, err = s.VerifyEmail(ctx, mailer.sent[0].token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.VerifyEmail(ctx, mailer.sent[1].token)
	assert.NoError(t, err)
}

func TestUpdatePreferencesAndProfile(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	resp, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)

	off, dark := false, ThemeDark
	u, err := s.UpdatePreferences(ctx, resp.User.ID, &PreferencesRequest{Notifications: &off, Theme: &dark})
	require.NoError(t, err)
	assert.Equal(t, Preferences{Notifications: false, Marketing: false, Theme: ThemeDark}, u.Preferences)

	neon := "neon"
	_, err = s.UpdatePreferences(ctx, resp.User.ID, &PreferencesRequest{Theme: &neon})
	assert.ErrorIs(t, err, ErrInvalidThemeName)

	name := "Giulia R."
	u, err = s.UpdateProfile(ctx, resp.User.ID, &UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Giulia R.", u.DisplayName)

	_, err = s.UpdatePreferences(ctx, 999, &PreferencesRequest{Theme: &dark})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestOrderPlacedUpdatesStats(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	resp, err := s.Register(ctx, validRegistration())
	require.NoError(t, err)
	uid := resp.User.ID

	first := &order.Order{UserID: &uid, Total: decimal.RequireFromString("1612.8"), Items: []order.OrderItem{{ItemID: "1"}, {ItemID: "4"}}}
	second := &order.Order{UserID: &uid, Total: decimal.NewFromInt(504), Items: []order.OrderItem{{ItemID: "7"}, {ItemID: "1"}}}
	require.NoError(t, s.OrderPlaced(ctx, first, storage.Receipt{ID: "a", Backend: storage.BackendRemote}))
	require.NoError(t, s.OrderPlaced(ctx, second, storage.Receipt{ID: "b", Backend: storage.BackendRemote}))

	// local orders are not counted
	require.NoError(t, s.OrderPlaced(ctx, second, storage.Receipt{ID: "local_1", Backend: storage.BackendLocal}))
	// guest orders are ignored
	require.NoError(t, s.OrderPlaced(ctx, &order.Order{Total: decimal.NewFromInt(10)}, storage.Receipt{Backend: storage.BackendRemote}))

	u, err := s.Profile(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Stats.TotalOrders)
	assert.True(t, decimal.RequireFromString("2116.8").Equal(u.Stats.TotalSpent), u.Stats.TotalSpent.String())
	assert.Equal(t, []string{"7", "1", "4"}, u.Stats.FavoriteItems)
}

func TestMergeFavoritesCaps(t *testing.T) {
	var current []string
	for i := 0; i < MaxFavoriteItems; i++ {
		current = append(current, fmt.Sprint(i))
	}
	merged := mergeFavorites(current, []order.OrderItem{{ItemID: "new"}, {ItemID: "3"}})
	assert.Len(t, merged, MaxFavoriteItems)
	assert.Equal(t, []string{"new", "3", "0", "1"}, merged[:4])
}
