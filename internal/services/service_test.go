// internal/services/service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/models"
)

// newTestDB opens an in-memory database with the full schema. A single
// connection keeps the database alive for the whole test and serializes
// concurrent transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Artwork{},
		&models.Auction{},
		&models.Bid{},
		&models.AuctionPurchase{},
		&models.NotificationOutbox{},
	))

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Auction: config.AuctionConfig{
			MinimumIncrement:    5,
			PlatformFeePercent:  5,
			ShippingFee:         25,
			DefaultDurationDays: 7,
			PurchaseExpiryDays:  7,
			ReminderAfterDays:   5,
		},
		Scheduler: config.SchedulerConfig{
			OutboxWorkers:     2,
			OutboxMaxAttempts: 5,
		},
		Frontend: config.FrontendConfig{BaseURL: "http://localhost:3000"},
	}
}

func newTestServices(t *testing.T, db *gorm.DB) (*AuctionService, *PurchaseService) {
	t.Helper()

	cfg := newTestConfig()
	notifications := NewNotificationService(db, cfg)
	payments := NewPaymentService(db, cfg)
	purchases := NewPurchaseService(db, cfg, notifications, payments)
	return NewAuctionService(db, cfg, purchases), purchases
}

func createTestUser(t *testing.T, db *gorm.DB, username string, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("Sup3r$ecret"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestArtwork(t *testing.T, db *gorm.DB, creatorID uuid.UUID, price float64) *models.Artwork {
	t.Helper()

	artwork := &models.Artwork{
		CreatorID:   creatorID,
		Title:       "Dusk Over the Harbor",
		Description: "Oil on canvas, 60x80cm",
		Category:    "painting",
		Price:       price,
		ForSale:     true,
	}
	require.NoError(t, db.Create(artwork).Error)
	return artwork
}

func createTestAuction(t *testing.T, db *gorm.DB, artworkID uuid.UUID, startingPrice float64, endTime time.Time) *models.Auction {
	t.Helper()

	auction := &models.Auction{
		ArtworkID:        artworkID,
		StartTime:        time.Now().Add(-time.Hour),
		EndTime:          endTime,
		StartingPrice:    startingPrice,
		MinimumIncrement: 5,
		IsActive:         true,
	}
	require.NoError(t, db.Create(auction).Error)
	return auction
}

func countPurchases(t *testing.T, db *gorm.DB, artworkID uuid.UUID) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.AuctionPurchase{}).
		Where("artwork_id = ?", artworkID).Count(&count).Error)
	return count
}
