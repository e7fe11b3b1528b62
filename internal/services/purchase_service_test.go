// internal/services/purchase_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/models"
)

type purchaseFixture struct {
	artist  *models.User
	winner  *models.User
	artwork *models.Artwork
	auction *models.Auction
}

func newPurchaseFixture(t *testing.T, db *gorm.DB) purchaseFixture {
	t.Helper()

	artist := createTestUser(t, db, "vera", models.UserTypeArtist)
	winner := createTestUser(t, db, "alice", models.UserTypeCollector)
	artwork := createTestArtwork(t, db, artist.ID, 100)
	auction := createTestAuction(t, db, artwork.ID, 100, time.Now().Add(-time.Hour))

	bid := 105.0
	auction.CurrentBid = &bid
	auction.HighestBidderID = &winner.ID
	auction.WinnerID = &winner.ID
	require.NoError(t, db.Model(auction).Updates(map[string]interface{}{
		"current_bid":       bid,
		"highest_bidder_id": winner.ID,
		"winner_id":         winner.ID,
		"is_active":         false,
	}).Error)

	return purchaseFixture{artist: artist, winner: winner, artwork: artwork, auction: auction}
}

func (f purchaseFixture) create(t *testing.T, db *gorm.DB, purchases *PurchaseService) *models.AuctionPurchase {
	t.Helper()

	var purchase *models.AuctionPurchase
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		purchase, err = purchases.CreatePurchaseIfAbsent(tx, f.artwork, f.auction)
		return err
	}))
	return purchase
}

func TestCreatePurchaseIfAbsentIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	_, purchases := newTestServices(t, db)
	f := newPurchaseFixture(t, db)

	first := f.create(t, db, purchases)
	second := f.create(t, db, purchases)

	assert.Equal(t, first.AuctionID, second.AuctionID)
	assert.EqualValues(t, 1, countPurchases(t, db, f.artwork.ID))

	var queued int64
	require.NoError(t, db.Model(&models.NotificationOutbox{}).
		Where("template = ?", "auction_won").Count(&queued).Error)
	assert.EqualValues(t, 1, queued)
}

// A competing settle that lands between the existence check and the insert
// trips the unique constraint; the loser must come back with the surviving
// row instead of an error.
func TestCreatePurchaseIfAbsentReturnsSurvivorOnLostRace(t *testing.T) {
	db := newTestDB(t)
	_, purchases := newTestServices(t, db)
	f := newPurchaseFixture(t, db)

	rivalAuctionID := uuid.NewString()
	fired := false
	require.NoError(t, db.Callback().Query().After("gorm:query").
		Register("competing_settle", func(tx *gorm.DB) {
			if fired || tx.Statement.Table != "auction_purchases" {
				return
			}
			fired = true
			err := tx.Session(&gorm.Session{NewDB: true}).Exec(
				`INSERT INTO auction_purchases
				 (id, auction_id, artwork_id, artist_id, winner_id, winning_bid,
				  platform_fee, shipping_fee, total_amount, status, expires_at,
				  created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.New(), rivalAuctionID, f.artwork.ID, f.artist.ID, f.winner.ID,
				105.0, 5.25, 25.0, 135.25, "pending",
				time.Now().AddDate(0, 0, 7), time.Now(), time.Now(),
			).Error
			require.NoError(t, err)
		}))
	t.Cleanup(func() { db.Callback().Query().Remove("competing_settle") })

	got := f.create(t, db, purchases)

	assert.Equal(t, rivalAuctionID, got.AuctionID)
	assert.EqualValues(t, 1, countPurchases(t, db, f.artwork.ID))
}

func TestPurchaseLifecycleFlow(t *testing.T) {
	db := newTestDB(t)
	_, purchases := newTestServices(t, db)
	f := newPurchaseFixture(t, db)
	created := f.create(t, db, purchases)

	address := &ShippingAddressRequest{
		FullName:   "Alice Moreau",
		Street:     "12 Quai des Peintres",
		City:       "Lyon",
		PostalCode: "69002",
		Country:    "France",
	}

	// Only the winner provides the address.
	_, err := purchases.ProvideShippingAddress(created.AuctionID, f.artist.ID, address)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := purchases.ProvideShippingAddress(created.AuctionID, f.winner.ID, address)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusAddressProvided, p.Status)
	require.NotNil(t, p.AddressProvidedAt)

	// The address is written once.
	_, err = purchases.ProvideShippingAddress(created.AuctionID, f.winner.ID, address)
	assert.ErrorIs(t, err, ErrStateConflict)

	p, err = purchases.CompletePayment(created.AuctionID, f.winner.ID,
		&CompletePaymentRequest{PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusPaid, p.Status)
	require.NotNil(t, p.PaidAt)
	assert.True(t, p.ArtistNotified)

	var artistMail int64
	require.NoError(t, db.Model(&models.NotificationOutbox{}).
		Where("template = ?", "payment_received").Count(&artistMail).Error)
	assert.EqualValues(t, 1, artistMail)

	// Shipping updates belong to the artist.
	_, err = purchases.UpdateShippingStatus(created.AuctionID, f.winner.ID,
		&UpdateShippingStatusRequest{Status: models.PurchaseStatusShipped})
	assert.ErrorIs(t, err, ErrForbidden)

	p, err = purchases.UpdateShippingStatus(created.AuctionID, f.artist.ID,
		&UpdateShippingStatusRequest{
			Status:         models.PurchaseStatusShipped,
			TrackingNumber: "TRK-445",
			Carrier:        "UPS",
		})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusShipped, p.Status)
	assert.Equal(t, "TRK-445", p.TrackingNumber)

	p, err = purchases.UpdateShippingStatus(created.AuctionID, f.artist.ID,
		&UpdateShippingStatusRequest{Status: models.PurchaseStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusDelivered, p.Status)

	p, err = purchases.UpdateShippingStatus(created.AuctionID, f.artist.ID,
		&UpdateShippingStatusRequest{Status: models.PurchaseStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, p.Status)

	// Completed is terminal.
	_, err = purchases.UpdateShippingStatus(created.AuctionID, f.artist.ID,
		&UpdateShippingStatusRequest{Status: models.PurchaseStatusCompleted})
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestExpireStaleTransitionsPendingOnce(t *testing.T) {
	db := newTestDB(t)
	_, purchases := newTestServices(t, db)
	f := newPurchaseFixture(t, db)
	created := f.create(t, db, purchases)

	require.NoError(t, db.Model(&models.AuctionPurchase{}).
		Where("auction_id = ?", created.AuctionID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	expired, err := purchases.ExpireStale()
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	expired, err = purchases.ExpireStale()
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	// Mutations on the lapsed purchase are rejected.
	_, err = purchases.ProvideShippingAddress(created.AuctionID, f.winner.ID,
		&ShippingAddressRequest{
			FullName:   "Alice Moreau",
			Street:     "12 Quai des Peintres",
			City:       "Lyon",
			PostalCode: "69002",
			Country:    "France",
		})
	assert.ErrorIs(t, err, ErrPurchaseExpired)
}
