// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bella-notte/ordering-backend/internal/domain/contact"
	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/domain/reservation"
	"github.com/bella-notte/ordering-backend/internal/domain/user"
)

// Development account seeded outside production
const (
	testUserEmail    = "test@bellanotte.example"
	testUserPassword = "Test@1234"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.Address{},
		&menu.MenuItem{},
		&order.Order{},
		&order.OrderItem{},
		&reservation.Reservation{},
		&contact.Message{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates the composite indexes gorm tags cannot express
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order_position ON order_items(order_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_menu_items_category_available ON menu_items(category, is_available)",
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_default ON addresses(user_id, is_default)",
		"CREATE INDEX IF NOT EXISTS idx_reservations_date_time ON reservations(\"date\", \"time\")",
		"CREATE INDEX IF NOT EXISTS idx_contact_messages_status ON contact_messages(status, created_at DESC)",
	}

	successCount := 0
	failCount := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	if failCount > 0 {
		return fmt.Errorf("%d indexes failed", failCount)
	}
	return nil
}

// SeedMenu writes the built-in catalog so the remote menu is never empty
func (m *Migration) SeedMenu(ctx context.Context) error {
	log.Println("🍝 Seeding menu...")

	items := menu.BuiltinCatalog()
	if err := menu.NewRepository(m.db).Upsert(ctx, items); err != nil {
		return fmt.Errorf("failed to seed menu: %w", err)
	}

	log.Printf("✅ Seeded %d menu items", len(items))
	return nil
}

// SeedTestUser creates a verified account for local development
func (m *Migration) SeedTestUser(ctx context.Context) error {
	log.Println("👤 Seeding test user...")

	var count int64
	if err := m.db.WithContext(ctx).Model(&user.User{}).Where("email = ?", testUserEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up test user: %w", err)
	}
	if count > 0 {
		log.Println("⏭️ Test user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(testUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	testUser := user.User{
		Email:         testUserEmail,
		Password:      string(hashedPassword),
		DisplayName:   "Test Guest",
		Phone:         "+919876543210",
		EmailVerified: true,
		Preferences:   user.DefaultPreferences(),
		Stats:         user.Stats{FavoriteItems: []string{}},
	}
	if err := m.db.WithContext(ctx).Create(&testUser).Error; err != nil {
		return fmt.Errorf("failed to create test user: %w", err)
	}

	log.Printf("✅ Created test user: %s (password: %s)", testUserEmail, testUserPassword)
	return nil
}

// TableCounts returns the number of rows per migrated table
func (m *Migration) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		var count int64
		if err := m.db.WithContext(ctx).Table(stmt.Schema.Table).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", stmt.Schema.Table, err)
		}
		counts[stmt.Schema.Table] = count
	}
	return counts, nil
}

// LogTableInfo prints row counts per table
func (m *Migration) LogTableInfo(ctx context.Context) {
	counts, err := m.TableCounts(ctx)
	if err != nil {
		log.Printf("⚠️ Failed to read table info: %v", err)
		return
	}

	log.Println("📊 Database Tables Information:")
	var total int64
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		_ = stmt.Parse(model)
		count := counts[stmt.Schema.Table]
		total += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}
		log.Printf("%s %-20s | %d records", status, stmt.Schema.Table, count)
	}
	log.Printf("📈 Total records across all tables: %d", total)
}
