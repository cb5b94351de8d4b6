// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (%s): %w", cfg.RedactedDSN(), err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established")
	return db, nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Gemstone{},
		&models.InventoryAlert{},
		&models.CartItem{},
		&models.Favorite{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.ChatMessage{},
		&models.Activity{},
		&models.ExchangeRate{},
		&models.AdminSettings{},
		&models.AuditLog{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed")
	return nil
}

var indexStatements = []string{
	// Catalog
	"CREATE INDEX IF NOT EXISTS idx_gemstones_type_color ON gemstones(type, color)",
	"CREATE INDEX IF NOT EXISTS idx_gemstones_status_price ON gemstones(status, price)",
	"CREATE INDEX IF NOT EXISTS idx_gemstones_stock ON gemstones(stock_quantity) WHERE deleted_at IS NULL",
	"CREATE INDEX IF NOT EXISTS idx_gemstones_created_at ON gemstones(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_gemstones_search ON gemstones USING GIN(" + models.GemstoneSearchDocument + ")",

	// Orders
	"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_order_items_gemstone ON order_items(gemstone_id)",

	// Feeds
	"CREATE INDEX IF NOT EXISTS idx_activities_user_created ON activities(user_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages(user_id, created_at)",
	"DROP INDEX IF EXISTS idx_inventory_alerts_open",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_alerts_one_open ON inventory_alerts(gemstone_id) WHERE resolved = false AND deleted_at IS NULL",

	// Admin
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_admin_settings_category ON admin_settings(category, key)",
}

func createIndexes(db *gorm.DB) {
	for _, index := range indexStatements {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("statement", index).Warn("Failed to create index")
		}
	}
}

// SeedInitialData creates the default admin account and platform settings.
func SeedInitialData(db *gorm.DB, adminEmail, adminPassword string) error {
	logrus.Info("Seeding initial data...")

	var adminCount int64
	if err := db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("failed to count admin users: %w", err)
	}

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    adminEmail,
			Role:     models.UserRoleAdmin,
			Status:   models.UserStatusActive,
			Preferences: models.UserPreferences{
				Currency:           "USD",
				EmailNotifications: true,
				OrderUpdates:       true,
			},
			ProfileData: models.JSONB{
				"full_name": "Store Administrator",
			},
		}

		if err := admin.SetPassword(adminPassword); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		logrus.WithField("email", adminEmail).Info("Default admin user created")
	}

	for _, setting := range defaultSettings() {
		var count int64
		db.Model(&models.AdminSettings{}).Where("category = ? AND key = ?", setting.Category, setting.Key).Count(&count)
		if count > 0 {
			continue
		}
		setting := setting
		if err := db.Create(&setting).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create setting %s.%s", setting.Category, setting.Key)
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

func defaultSettings() []models.AdminSettings {
	return []models.AdminSettings{
		{
			Category:    "general",
			Key:         "store_name",
			Value:       models.JSONB{"value": "Gemstore"},
			DataType:    "string",
			Description: "Store name displayed to customers",
		},
		{
			Category:    "inventory",
			Key:         "low_stock_threshold",
			Value:       models.JSONB{"value": 3},
			DataType:    "integer",
			Description: "Stock level at or below which an inventory alert is raised",
		},
		{
			Category:    "payments",
			Key:         "tax_rate_percent",
			Value:       models.JSONB{"value": 8.0},
			DataType:    "float",
			Description: "Sales tax applied at checkout",
		},
		{
			Category:    "content",
			Key:         "max_image_size_mb",
			Value:       models.JSONB{"value": 10},
			DataType:    "integer",
			Description: "Maximum gemstone image size in MB",
		},
	}
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
