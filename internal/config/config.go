// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage modes for orders, reservations and contact messages
const (
	StorageModeRemote = "remote"
	StorageModeLocal  = "local"
)

// Config holds all configuration for the ordering backend
type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Security   SecurityConfig
	Restaurant RestaurantConfig
	Storage    StorageConfig
	Email      EmailConfig
	PDF        PDFConfig
	Logging    LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
	BaseURL     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	BcryptCost         int
	RateLimitPerMinute int
	LoginMaxAttempts   int
	LoginAttemptWindow time.Duration
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
	SecureCookies      bool
}

// RestaurantConfig holds cart limits and pricing rules
type RestaurantConfig struct {
	Name                  string
	MaxCartItems          int
	MaxLineQuantity       int
	CartMaxAge            time.Duration
	CartStorageKey        string
	CartSessionIdle       time.Duration
	TaxRate               decimal.Decimal
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	MinOrderValue         decimal.Decimal
	OrderCancelWindow     time.Duration
	LargeSizeSurcharge    decimal.Decimal
	ExtraCheeseSurcharge  decimal.Decimal
	ToppingSurcharge      decimal.Decimal
	MenuCacheTTL          time.Duration
	AnalyticsEventLimit   int
	SubmitLockTTL         time.Duration
}

// StorageConfig selects where orders, reservations and messages are written
type StorageConfig struct {
	Mode                string
	OrdersQueueKey      string
	ReservationsKey     string
	ContactMessagesKey  string
	BreakerMaxFailures  uint32
	BreakerOpenTimeout  time.Duration
	BreakerHalfOpenReqs uint32
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Enabled             bool
	FromEmail           string
	FromName            string
	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPass            string
	SMTPUseTLS          bool
	ReplyTo             string
	RequireVerification bool
}

// PDFConfig contains receipt rendering configuration
type PDFConfig struct {
	WkhtmltopdfPath string
	PageSize        string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Bella Notte Ordering"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 15*time.Second),
			MaxBodyBytes:   getEnvAsInt64("SERVER_MAX_BODY_BYTES", 1<<20),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "bella_notte"),
			User:         getEnv("DB_USER", "bella_notte"),
			Password:     getEnv("DB_PASSWORD", "bella_notte"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getEnvAsDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "bella-notte-development-secret-change-me"),
			AccessTokenExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
			RefreshTokenExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRE", 7*24*time.Hour),
		},
		Security: SecurityConfig{
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginAttemptWindow: getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5500"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			SecureCookies:      getEnvAsBool("SECURE_COOKIES", false),
		},
		Restaurant: RestaurantConfig{
			Name:                  getEnv("RESTAURANT_NAME", "Bella Notte"),
			MaxCartItems:          getEnvAsInt("CART_MAX_ITEMS", 50),
			MaxLineQuantity:       getEnvAsInt("CART_MAX_LINE_QUANTITY", 10),
			CartMaxAge:            getEnvAsDuration("CART_MAX_AGE", 24*time.Hour),
			CartStorageKey:        getEnv("CART_STORAGE_KEY", "bellaNotteCart"),
			CartSessionIdle:       getEnvAsDuration("CART_SESSION_IDLE", 24*time.Hour),
			TaxRate:               getEnvAsDecimal("TAX_RATE", "0.12"),
			DeliveryFee:           getEnvAsDecimal("DELIVERY_FEE", "40"),
			FreeDeliveryThreshold: getEnvAsDecimal("FREE_DELIVERY_THRESHOLD", "500"),
			MinOrderValue:         getEnvAsDecimal("MIN_ORDER_VALUE", "200"),
			OrderCancelWindow:     getEnvAsDuration("ORDER_CANCEL_WINDOW", 5*time.Minute),
			LargeSizeSurcharge:    getEnvAsDecimal("SURCHARGE_LARGE", "100"),
			ExtraCheeseSurcharge:  getEnvAsDecimal("SURCHARGE_EXTRA_CHEESE", "50"),
			ToppingSurcharge:      getEnvAsDecimal("SURCHARGE_TOPPING", "30"),
			MenuCacheTTL:          getEnvAsDuration("MENU_CACHE_TTL", 5*time.Minute),
			AnalyticsEventLimit:   getEnvAsInt("ANALYTICS_EVENT_LIMIT", 100),
			SubmitLockTTL:         getEnvAsDuration("SUBMIT_LOCK_TTL", 30*time.Second),
		},
		Storage: StorageConfig{
			Mode:                getEnv("STORAGE_MODE", StorageModeRemote),
			OrdersQueueKey:      getEnv("STORAGE_ORDERS_KEY", "localOrders"),
			ReservationsKey:     getEnv("STORAGE_RESERVATIONS_KEY", "reservations"),
			ContactMessagesKey:  getEnv("STORAGE_CONTACT_KEY", "contactMessages"),
			BreakerMaxFailures:  uint32(getEnvAsInt("STORAGE_BREAKER_MAX_FAILURES", 3)),
			BreakerOpenTimeout:  getEnvAsDuration("STORAGE_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			BreakerHalfOpenReqs: uint32(getEnvAsInt("STORAGE_BREAKER_HALF_OPEN_REQUESTS", 1)),
		},
		Email: EmailConfig{
			Enabled:             getEnvAsBool("EMAIL_ENABLED", false),
			FromEmail:           getEnv("FROM_EMAIL", "orders@bellanotte.example"),
			FromName:            getEnv("FROM_NAME", "Bella Notte"),
			SMTPHost:            getEnv("SMTP_HOST", ""),
			SMTPPort:            getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:            getEnv("SMTP_USER", ""),
			SMTPPass:            getEnv("SMTP_PASS", ""),
			SMTPUseTLS:          getEnvAsBool("SMTP_USE_TLS", false),
			ReplyTo:             getEnv("REPLY_TO_EMAIL", ""),
			RequireVerification: getEnvAsBool("EMAIL_VERIFICATION_REQUIRED", true),
		},
		PDF: PDFConfig{
			WkhtmltopdfPath: getEnv("WKHTMLTOPDF_PATH", ""),
			PageSize:        getEnv("PDF_PAGE_SIZE", "A5"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Storage.Mode != StorageModeRemote && c.Storage.Mode != StorageModeLocal {
		return fmt.Errorf("STORAGE_MODE must be %q or %q", StorageModeRemote, StorageModeLocal)
	}
	if c.Storage.Mode == StorageModeRemote {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	r := c.Restaurant
	if r.MaxCartItems <= 0 || r.MaxLineQuantity <= 0 {
		return fmt.Errorf("cart limits must be positive")
	}
	if r.MaxLineQuantity > r.MaxCartItems {
		return fmt.Errorf("CART_MAX_LINE_QUANTITY cannot exceed CART_MAX_ITEMS")
	}
	if r.TaxRate.IsNegative() || r.DeliveryFee.IsNegative() || r.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("pricing values must not be negative")
	}
	if r.CartStorageKey == "" {
		return fmt.Errorf("CART_STORAGE_KEY is required")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// RemoteStorageEnabled reports whether the relational backend is configured
func (c *Config) RemoteStorageEnabled() bool {
	return c.Storage.Mode == StorageModeRemote
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}
