// internal/services/auction_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/models"
)

func TestPlaceBidEnforcesMinimumIncrement(t *testing.T) {
	db := newTestDB(t)
	auctions, _ := newTestServices(t, db)

	artist := createTestUser(t, db, "vera", models.UserTypeArtist)
	alice := createTestUser(t, db, "alice", models.UserTypeCollector)
	bob := createTestUser(t, db, "bob", models.UserTypeCollector)

	artwork := createTestArtwork(t, db, artist.ID, 100)
	createTestAuction(t, db, artwork.ID, 100, time.Now().AddDate(0, 0, 7))

	// Below the floor plus increment.
	_, err := auctions.PlaceBid(artwork.ID, alice.ID, 104)
	assert.ErrorIs(t, err, ErrStateConflict)

	// The creator never bids on their own artwork.
	_, err = auctions.PlaceBid(artwork.ID, artist.ID, 150)
	assert.ErrorIs(t, err, ErrStateConflict)

	auction, err := auctions.PlaceBid(artwork.ID, alice.ID, 105)
	require.NoError(t, err)
	require.NotNil(t, auction.CurrentBid)
	assert.InDelta(t, 105, *auction.CurrentBid, 0.001)

	// A later bid must clear the leader by the full increment.
	_, err = auctions.PlaceBid(artwork.ID, bob.ID, 106)
	assert.ErrorIs(t, err, ErrStateConflict)

	auction, err = auctions.PlaceBid(artwork.ID, bob.ID, 110)
	require.NoError(t, err)
	require.NotNil(t, auction.CurrentBid)
	assert.InDelta(t, 110, *auction.CurrentBid, 0.001)
	require.NotNil(t, auction.HighestBidderID)
	assert.Equal(t, bob.ID, *auction.HighestBidderID)
}

// A bid that passed validation is still rejected by the guarded leader update
// when another bid lands on the auction first.
func TestPlaceBidRejectedWhenLeaderAdvances(t *testing.T) {
	db := newTestDB(t)
	auctions, _ := newTestServices(t, db)

	artist := createTestUser(t, db, "vera", models.UserTypeArtist)
	alice := createTestUser(t, db, "alice", models.UserTypeCollector)
	rival := createTestUser(t, db, "rita", models.UserTypeCollector)

	artwork := createTestArtwork(t, db, artist.ID, 100)
	auction := createTestAuction(t, db, artwork.ID, 100, time.Now().AddDate(0, 0, 7))

	// Slip a competing bid in after alice's ledger append but before her
	// leader update, on the same connection.
	require.NoError(t, db.Callback().Create().After("gorm:create").
		Register("competing_bid", func(tx *gorm.DB) {
			if tx.Statement.Table != "bids" {
				return
			}
			tx.Session(&gorm.Session{NewDB: true}).Exec(
				"UPDATE auctions SET current_bid = ?, highest_bidder_id = ? WHERE id = ?",
				200.0, rival.ID, auction.ID)
		}))
	t.Cleanup(func() { db.Callback().Create().Remove("competing_bid") })

	_, err := auctions.PlaceBid(artwork.ID, alice.ID, 105)
	require.ErrorIs(t, err, ErrStateConflict)
	assert.ErrorContains(t, err, "higher bid")

	// The rejected attempt rolled back, including its ledger entry.
	var bidCount int64
	require.NoError(t, db.Model(&models.Bid{}).
		Where("auction_id = ?", auction.ID).Count(&bidCount).Error)
	assert.EqualValues(t, 0, bidCount)
}

func TestSweepAndManualEndSettleOnce(t *testing.T) {
	db := newTestDB(t)
	auctions, _ := newTestServices(t, db)

	artist := createTestUser(t, db, "vera", models.UserTypeArtist)
	alice := createTestUser(t, db, "alice", models.UserTypeCollector)

	artwork := createTestArtwork(t, db, artist.ID, 100)
	auction := createTestAuction(t, db, artwork.ID, 100, time.Now().Add(-time.Hour))

	require.NoError(t, db.Create(&models.Bid{
		AuctionID: auction.ID,
		BidderID:  alice.ID,
		Amount:    105,
	}).Error)
	require.NoError(t, db.Model(auction).Updates(map[string]interface{}{
		"current_bid":       105.0,
		"highest_bidder_id": alice.ID,
	}).Error)

	ended, err := auctions.SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, ended)

	var purchase models.AuctionPurchase
	require.NoError(t, db.Where("artwork_id = ?", artwork.ID).First(&purchase).Error)
	assert.Equal(t, alice.ID, purchase.WinnerID)
	assert.InDelta(t, 105, purchase.WinningBid, 0.001)
	assert.InDelta(t, 5.25, purchase.PlatformFee, 0.001)
	assert.InDelta(t, 25, purchase.ShippingFee, 0.001)
	assert.InDelta(t, 135.25, purchase.TotalAmount, 0.001)

	var sold models.Artwork
	require.NoError(t, db.First(&sold, artwork.ID).Error)
	assert.True(t, sold.IsSold)

	// Rerunning the sweep is a no-op, and a manual end afterwards reports the
	// conflict. Either way the purchase stays unique.
	ended, err = auctions.SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, 0, ended)

	_, err = auctions.EndAuction(artwork.ID, artist.ID)
	assert.ErrorIs(t, err, ErrStateConflict)

	assert.EqualValues(t, 1, countPurchases(t, db, artwork.ID))

	var queued int64
	require.NoError(t, db.Model(&models.NotificationOutbox{}).
		Where("template = ?", "auction_won").Count(&queued).Error)
	assert.EqualValues(t, 1, queued)
}
