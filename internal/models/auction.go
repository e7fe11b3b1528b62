// internal/models/auction.go
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const DefaultMinimumIncrement = 5.0

// Bid validation errors, surfaced to clients as 400-level failures.
var (
	ErrBidNotPositive  = errors.New("bid amount must be a positive number")
	ErrBidOwnArtwork   = errors.New("cannot bid on your own artwork")
	ErrBidTooLow       = errors.New("bid is below the minimum required amount")
	ErrAuctionNotFound = errors.New("artwork has no auction")
	ErrAuctionInactive = errors.New("auction is not active")
	ErrAuctionEnded    = errors.New("auction has ended")
)

// Auction is the time-boxed bidding window attached to an artwork. The bid
// ledger (Bids) is the source of truth; CurrentBid and HighestBidderID are a
// cache of its leading entry and are only ever written through a conditional
// update that keeps them equal to the ledger maximum.
type Auction struct {
	BaseModel
	ArtworkID        uuid.UUID  `json:"artwork_id" gorm:"type:uuid;not null;uniqueIndex"`
	StartTime        time.Time  `json:"start_time" gorm:"not null"`
	EndTime          time.Time  `json:"end_time" gorm:"not null;index"`
	StartingPrice    float64    `json:"starting_price" gorm:"type:decimal(10,2);not null"`
	MinimumIncrement float64    `json:"minimum_increment" gorm:"type:decimal(10,2);default:5"`
	CurrentBid       *float64   `json:"current_bid" gorm:"type:decimal(10,2)"`
	HighestBidderID  *uuid.UUID `json:"highest_bidder_id" gorm:"type:uuid"`
	WinnerID         *uuid.UUID `json:"winner_id" gorm:"type:uuid"`
	IsActive         bool       `json:"is_active" gorm:"default:true;index"`

	// Relationships
	Artwork       Artwork `json:"artwork,omitempty" gorm:"foreignKey:ArtworkID"`
	HighestBidder *User   `json:"highest_bidder,omitempty" gorm:"foreignKey:HighestBidderID"`
	Winner        *User   `json:"winner,omitempty" gorm:"foreignKey:WinnerID"`
	Bids          []Bid   `json:"bids,omitempty" gorm:"foreignKey:AuctionID"`
}

// Bid is one append-only ledger entry.
type Bid struct {
	BaseModel
	AuctionID uuid.UUID `json:"auction_id" gorm:"type:uuid;not null;index"`
	BidderID  uuid.UUID `json:"bidder_id" gorm:"type:uuid;not null;index"`
	Amount    float64   `json:"amount" gorm:"type:decimal(10,2);not null"`

	// Relationships
	Bidder User `json:"bidder,omitempty" gorm:"foreignKey:BidderID"`
}

// HasEnded reports whether the bidding window has closed at the given time.
func (a *Auction) HasEnded(now time.Time) bool {
	return now.After(a.EndTime)
}

// MinimumNextBid returns the smallest acceptable bid: the current bid (or the
// starting price when the ledger is empty) plus the minimum increment.
func (a *Auction) MinimumNextBid() float64 {
	increment := a.MinimumIncrement
	if increment <= 0 {
		increment = DefaultMinimumIncrement
	}
	floor := a.StartingPrice
	if a.CurrentBid != nil {
		floor = *a.CurrentBid
	}
	return floor + increment
}

// ValidateBid applies the acceptance rules in order: positive amount, no
// self-bidding, floor plus increment, then the auction window itself.
func (a *Auction) ValidateBid(bidderID, creatorID uuid.UUID, amount float64, now time.Time) error {
	if amount <= 0 {
		return ErrBidNotPositive
	}
	if bidderID == creatorID {
		return ErrBidOwnArtwork
	}
	if amount < a.MinimumNextBid() {
		return ErrBidTooLow
	}
	if !a.IsActive {
		return ErrAuctionInactive
	}
	if a.HasEnded(now) {
		return ErrAuctionEnded
	}
	return nil
}

// LeadingBid returns the maximum-amount entry of the ledger, or nil when the
// ledger is empty. Ties go to the earlier bid.
func LeadingBid(bids []Bid) *Bid {
	var leader *Bid
	for i := range bids {
		b := &bids[i]
		if leader == nil || b.Amount > leader.Amount ||
			(b.Amount == leader.Amount && b.CreatedAt.Before(leader.CreatedAt)) {
			leader = b
		}
	}
	return leader
}
