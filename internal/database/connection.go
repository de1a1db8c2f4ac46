// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error

	gormConfig := &gorm.Config{Logger: newLogger(cfg.LogLevel)}

	switch cfg.Driver {
	case "sqlite":
		DB, err = gorm.Open(sqlite.Open(cfg.DSN()), gormConfig)
	default:
		DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool. SQLite allows a single writer, so
	// transactions are serialized through one connection.
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established successfully (%s)", cfg.Driver)
	return DB, nil
}

// OpenInMemory returns a migrated, private in-memory SQLite database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Initialize(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel:   "silent",
	})
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newLogger(level string) logger.Interface {
	switch level {
	case "silent":
		return logger.Default.LogMode(logger.Silent)
	case "error":
		return logger.Default.LogMode(logger.Error)
	case "warn":
		return logger.Default.LogMode(logger.Warn)
	default:
		return logger.Default.LogMode(logger.Info)
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.MemberProfile{},
		&models.EarlyAccessQuota{},
		&models.Contract{},
		&models.ContractSection{},
		&models.SigningToken{},
		&models.AuditLog{},
		&models.AdminNotification{},
		&models.KVEntry{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status)",

		// Contract indexes
		"CREATE INDEX IF NOT EXISTS idx_contracts_created_at ON contracts(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_contract_sections_contract_role ON contract_sections(contract_id, role)",
		"CREATE INDEX IF NOT EXISTS idx_signing_tokens_contract_role ON signing_tokens(contract_id, role)",

		// Membership indexes
		"CREATE INDEX IF NOT EXISTS idx_member_profiles_early_access ON member_profiles(is_early_access, status)",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_status ON admin_notifications(status, priority)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the default administrator and any missing quota rows.
// Existing quota rows are left untouched so live counts survive restarts.
func SeedInitialData(db *gorm.DB, quotas []config.QuotaSeed) error {
	log.Println("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@estatedesk.app",
			Role:     models.UserRoleAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	if _, err := SeedQuotas(db, quotas); err != nil {
		return err
	}

	log.Println("Initial data seeding completed")
	return nil
}

// SeedQuotas inserts quota rows for roles that have none and reports how
// many were created.
func SeedQuotas(db *gorm.DB, quotas []config.QuotaSeed) (int, error) {
	created := 0
	for _, seed := range quotas {
		var count int64
		if err := db.Model(&models.EarlyAccessQuota{}).Where("role = ?", seed.Role).Count(&count).Error; err != nil {
			return created, fmt.Errorf("failed to check quota %s: %w", seed.Role, err)
		}
		if count > 0 {
			continue
		}

		quota := &models.EarlyAccessQuota{
			Role:     models.UserRole(seed.Role),
			MaxCount: seed.MaxCount,
			IsActive: seed.Active(),
		}
		if err := db.Create(quota).Error; err != nil {
			return created, fmt.Errorf("failed to create quota %s: %w", seed.Role, err)
		}
		created++
	}
	return created, nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
