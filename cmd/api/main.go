// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/domain/analytics"
	"github.com/bella-notte/ordering-backend/internal/domain/cart"
	"github.com/bella-notte/ordering-backend/internal/domain/contact"
	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/domain/reservation"
	"github.com/bella-notte/ordering-backend/internal/domain/user"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/cache"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/database/postgres"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/database/redis"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/handlers"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/routes"
	"github.com/bella-notte/ordering-backend/internal/pkg/auth"
	"github.com/bella-notte/ordering-backend/internal/pkg/email"
	"github.com/bella-notte/ordering-backend/internal/pkg/logger"
	"github.com/bella-notte/ordering-backend/internal/pkg/metrics"
	"github.com/bella-notte/ordering-backend/internal/pkg/pdf"
)

const cartSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.Logging)
	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// a missing database degrades the service to local queues instead of
	// refusing to start
	var database *postgres.DB
	var db *gorm.DB
	if cfg.RemoteStorageEnabled() {
		database, err = postgres.NewConnection(cfg)
		if err != nil {
			log.Printf("⚠️ Database unavailable, continuing with local storage only: %v", err)
		} else {
			db = database.GetDB()
			prepareDatabase(cfg, db)
		}
	} else {
		log.Println("📦 Remote storage disabled, orders are queued locally")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := http.NewServer(cfg, buildDependencies(ctx, cfg, db, redisClient, registry, m, appLogger))
	if err != nil {
		log.Fatalf("Failed to build HTTP server: %v", err)
	}

	log.Println("✅ All systems operational!")

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	err = server.Stop(shutdownCtx)
	err = multierr.Append(err, redisClient.Close())
	if database != nil {
		err = multierr.Append(err, database.Close())
	}
	for _, e := range multierr.Errors(err) {
		log.Printf("Shutdown error: %v", e)
	}

	log.Println("✅ Server shutdown completed")
}

func prepareDatabase(cfg *config.Config, db *gorm.DB) {
	migration := postgres.NewMigration(db)
	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}

	ctx := context.Background()
	if err := migration.SeedMenu(ctx); err != nil {
		log.Printf("Warning: Menu seeding failed: %v", err)
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedTestUser(ctx); err != nil {
			log.Printf("Warning: Test user seeding failed: %v", err)
		}
		migration.LogTableInfo(ctx)
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config, db *gorm.DB, redisClient *redis.Client, registry *prometheus.Registry, m *metrics.Metrics, appLogger *logrus.Logger) http.Dependencies {
	client := redisClient.GetClient()

	var menuSource menu.Source
	if db != nil {
		menuSource = menu.NewRepository(db)
	}
	provider := menu.NewProvider(menuSource, cfg.Restaurant.MenuCacheTTL, appLogger, m)

	carts := cart.NewRegistry(provider, cache.NewRedisStore(client), cfg.Restaurant, appLogger, m)
	go carts.Run(ctx, cartSweepInterval)

	breaker := storage.BreakerSettings{
		MaxFailures:      cfg.Storage.BreakerMaxFailures,
		OpenTimeout:      cfg.Storage.BreakerOpenTimeout,
		HalfOpenRequests: cfg.Storage.BreakerHalfOpenReqs,
	}
	orderQueue := storage.NewQueueSink[*order.Order](client, cfg.Storage.OrdersQueueKey, order.LocalIDPrefix)
	reservationQueue := storage.NewQueueSink[*reservation.Reservation](client, cfg.Storage.ReservationsKey, reservation.IDPrefix)
	messageQueue := storage.NewQueueSink[*contact.Message](client, cfg.Storage.ContactMessagesKey, contact.IDPrefix)

	// the storage strategy is chosen once here, never per call
	var (
		orderSink       storage.Sink[*order.Order]             = orderQueue
		reservationSink storage.Sink[*reservation.Reservation] = reservationQueue
		messageSink     storage.Sink[*contact.Message]         = messageQueue
	)
	if db != nil {
		orderSink = storage.NewFallbackSink[*order.Order]("orders", storage.NewGormSink[*order.Order](db), orderQueue, breaker, appLogger, m)
		reservationSink = storage.NewFallbackSink[*reservation.Reservation]("reservations", storage.NewGormSink[*reservation.Reservation](db), reservationQueue, breaker, appLogger, m)
		messageSink = storage.NewFallbackSink[*contact.Message]("contact_messages", storage.NewGormSink[*contact.Message](db), messageQueue, breaker, appLogger, m)
	}

	var sender email.Sender = email.NewLogSender(appLogger)
	if cfg.Email.Enabled {
		sender = email.NewSMTPSender(cfg.Email)
	}
	mailer, err := email.NewEmailService(sender, cfg.Restaurant.Name, cfg.App.BaseURL, appLogger)
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg.JWT, cfg.App.Name)
	notifiers := []order.Notifier{mailer}

	var users *user.Service
	var addresses *user.AddressService
	if db != nil {
		limiter := user.NewRedisAttemptLimiter(client, cfg.Security.LoginMaxAttempts, cfg.Security.LoginAttemptWindow)
		users = user.NewService(db, auth.NewPasswordManager(cfg.Security.BcryptCost), jwtManager, appLogger, user.Options{
			Limiter:             limiter,
			Mailer:              mailer,
			RequireVerification: cfg.Email.RequireVerification,
		})
		addresses = user.NewAddressService(db)
		notifiers = append(notifiers, users)
	}

	workflow := order.NewWorkflow(orderSink, order.NewGuard(client, cfg.Restaurant.SubmitLockTTL, cfg.RemoteStorageEnabled()), appLogger, m, notifiers...)
	orders := order.NewService(db, orderQueue, cfg.Restaurant.OrderCancelWindow, appLogger)
	tracker := analytics.NewService(client, cfg.Restaurant.AnalyticsEventLimit, appLogger)

	h := &routes.Handlers{
		Menu:      handlers.NewMenuHandler(provider),
		Cart:      handlers.NewCartHandler(carts, cfg.Restaurant.MinOrderValue, tracker, cfg.Security.CORSAllowedOrigins, appLogger),
		Orders:    handlers.NewOrderHandler(carts, workflow, orders, pdf.NewService(cfg.PDF, cfg.Restaurant.Name), tracker),
		Enquiries: handlers.NewEnquiryHandler(reservation.NewService(reservationSink, appLogger, mailer), contact.NewService(messageSink, appLogger)),
		Analytics: handlers.NewAnalyticsHandler(tracker),
	}
	if users != nil {
		h.Auth = handlers.NewAuthHandler(users)
		h.Users = handlers.NewUserHandler(users, addresses)
	}

	return http.Dependencies{
		DB:          db,
		RedisClient: client,
		RedisHealth: redisClient,
		Gatherer:    registry,
		JWT:         jwtManager,
		Handlers:    h,
		Logger:      appLogger,
	}
}
