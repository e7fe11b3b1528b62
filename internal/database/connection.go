// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		}
	} else {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Info),
			TranslateError: true,
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
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
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Artwork{},
		&models.Auction{},
		&models.Bid{},
		&models.AuctionPurchase{},
		&models.NotificationOutbox{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Artwork indexes
		"CREATE INDEX IF NOT EXISTS idx_artworks_creator ON artworks(creator_id)",
		"CREATE INDEX IF NOT EXISTS idx_artworks_category_sale ON artworks(category, for_sale)",
		"CREATE INDEX IF NOT EXISTS idx_artworks_created_at ON artworks(created_at DESC)",

		// Auction indexes: the sweep scans active auctions whose window closed
		"CREATE INDEX IF NOT EXISTS idx_auctions_active_end ON auctions(is_active, end_time)",
		"CREATE INDEX IF NOT EXISTS idx_bids_auction_amount ON bids(auction_id, amount DESC)",
		"CREATE INDEX IF NOT EXISTS idx_bids_auction_created ON bids(auction_id, created_at DESC)",

		// Purchase indexes: artwork_id uniqueness is what makes purchase
		// creation race-safe, recreate it explicitly in case the column
		// predates the constraint
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_auction_purchases_artwork ON auction_purchases(artwork_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_auction_purchases_auction_id ON auction_purchases(auction_id)",
		"CREATE INDEX IF NOT EXISTS idx_auction_purchases_status_expiry ON auction_purchases(status, expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_auction_purchases_winner ON auction_purchases(winner_id)",
		"CREATE INDEX IF NOT EXISTS idx_auction_purchases_artist ON auction_purchases(artist_id)",

		// Outbox drain order
		"CREATE INDEX IF NOT EXISTS idx_notification_outbox_queued ON notification_outboxes(status, created_at)",

		// Full-text search
		"CREATE INDEX IF NOT EXISTS idx_artworks_search ON artworks USING GIN(to_tsvector('english', title || ' ' || description))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
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
