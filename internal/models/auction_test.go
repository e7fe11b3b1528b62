// internal/models/auction_test.go
package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func activeAuction(startingPrice float64) *Auction {
	now := time.Now()
	return &Auction{
		StartTime:        now.Add(-time.Hour),
		EndTime:          now.Add(24 * time.Hour),
		StartingPrice:    startingPrice,
		MinimumIncrement: DefaultMinimumIncrement,
		IsActive:         true,
	}
}

func TestMinimumNextBid(t *testing.T) {
	a := activeAuction(100)

	// Empty ledger: floor is the starting price
	assert.Equal(t, 105.0, a.MinimumNextBid())

	// With a current bid the floor moves up
	current := 150.0
	a.CurrentBid = &current
	assert.Equal(t, 155.0, a.MinimumNextBid())
}

func TestMinimumNextBidDefaultsIncrement(t *testing.T) {
	a := activeAuction(100)
	a.MinimumIncrement = 0

	assert.Equal(t, 105.0, a.MinimumNextBid())
}

func TestValidateBidAcceptsAtFloor(t *testing.T) {
	a := activeAuction(100)
	bidder := uuid.New()
	creator := uuid.New()

	// 104 is below starting price + increment, 105 is exactly at it
	assert.ErrorIs(t, a.ValidateBid(bidder, creator, 104, time.Now()), ErrBidTooLow)
	assert.NoError(t, a.ValidateBid(bidder, creator, 105, time.Now()))
}

func TestValidateBidMonotonic(t *testing.T) {
	a := activeAuction(100)
	bidder := uuid.New()
	creator := uuid.New()

	current := 150.0
	a.CurrentBid = &current

	// Equal to the current bid is not enough, neither is current + 4
	assert.ErrorIs(t, a.ValidateBid(bidder, creator, 150, time.Now()), ErrBidTooLow)
	assert.ErrorIs(t, a.ValidateBid(bidder, creator, 154, time.Now()), ErrBidTooLow)
	assert.NoError(t, a.ValidateBid(bidder, creator, 155, time.Now()))
}

func TestValidateBidRejectsNonPositive(t *testing.T) {
	a := activeAuction(100)
	bidder := uuid.New()
	creator := uuid.New()

	assert.ErrorIs(t, a.ValidateBid(bidder, creator, 0, time.Now()), ErrBidNotPositive)
	assert.ErrorIs(t, a.ValidateBid(bidder, creator, -10, time.Now()), ErrBidNotPositive)
}

func TestValidateBidRejectsSelfBid(t *testing.T) {
	a := activeAuction(100)
	creator := uuid.New()

	err := a.ValidateBid(creator, creator, 200, time.Now())
	assert.ErrorIs(t, err, ErrBidOwnArtwork)
}

func TestValidateBidSelfBidBeatsAmountCheck(t *testing.T) {
	a := activeAuction(100)
	creator := uuid.New()

	// A creator bidding below the floor is reported as self-bidding, the
	// ownership rule is checked before the amount
	err := a.ValidateBid(creator, creator, 1, time.Now())
	assert.ErrorIs(t, err, ErrBidOwnArtwork)
}

func TestValidateBidRejectsInactiveAuction(t *testing.T) {
	a := activeAuction(100)
	a.IsActive = false

	err := a.ValidateBid(uuid.New(), uuid.New(), 200, time.Now())
	assert.ErrorIs(t, err, ErrAuctionInactive)
}

func TestValidateBidRejectsEndedAuction(t *testing.T) {
	a := activeAuction(100)
	a.EndTime = time.Now().Add(-time.Minute)

	err := a.ValidateBid(uuid.New(), uuid.New(), 200, time.Now())
	assert.ErrorIs(t, err, ErrAuctionEnded)
}

func TestHasEnded(t *testing.T) {
	a := activeAuction(100)

	assert.False(t, a.HasEnded(a.EndTime.Add(-time.Second)))
	assert.True(t, a.HasEnded(a.EndTime.Add(time.Second)))
}

func TestLeadingBidEmptyLedger(t *testing.T) {
	assert.Nil(t, LeadingBid(nil))
	assert.Nil(t, LeadingBid([]Bid{}))
}

func TestLeadingBidMaxAmount(t *testing.T) {
	bids := []Bid{
		{Amount: 105},
		{Amount: 120},
		{Amount: 110},
	}

	leader := LeadingBid(bids)
	assert.NotNil(t, leader)
	assert.Equal(t, 120.0, leader.Amount)
}

func TestLeadingBidTieGoesToEarlier(t *testing.T) {
	early := time.Now().Add(-time.Hour)
	late := time.Now()
	first := uuid.New()
	second := uuid.New()

	bids := []Bid{
		{BaseModel: BaseModel{CreatedAt: late}, BidderID: second, Amount: 120},
		{BaseModel: BaseModel{CreatedAt: early}, BidderID: first, Amount: 120},
	}

	leader := LeadingBid(bids)
	assert.NotNil(t, leader)
	assert.Equal(t, first, leader.BidderID)
}
