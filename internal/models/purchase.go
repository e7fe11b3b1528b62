// internal/models/purchase.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Default fee configuration, overridable through config.
const (
	DefaultPlatformFeePercent  = 5.0
	DefaultShippingFee         = 25.0
	DefaultPurchaseExpiryDays  = 7
	DefaultReminderAfterDays   = 5
	DefaultAuctionDurationDays = 7
)

// AuctionPurchase is the post-auction transaction record for the winning
// bidder. AuctionID is its own surrogate key minted at creation, used for
// public URLs; ArtworkID carries a unique constraint so at most one purchase
// can ever exist per completed auction, even under racing sweeps.
type AuctionPurchase struct {
	BaseModel
	AuctionID string    `json:"auction_id" gorm:"size:36;not null;uniqueIndex"`
	ArtworkID uuid.UUID `json:"artwork_id" gorm:"type:uuid;not null;uniqueIndex"`
	ArtistID  uuid.UUID `json:"artist_id" gorm:"type:uuid;not null;index"`
	WinnerID  uuid.UUID `json:"winner_id" gorm:"type:uuid;not null;index"`

	WinningBid  float64 `json:"winning_bid" gorm:"type:decimal(10,2);not null"`
	PlatformFee float64 `json:"platform_fee" gorm:"type:decimal(10,2);not null"`
	ShippingFee float64 `json:"shipping_fee" gorm:"type:decimal(10,2);not null"`
	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(10,2);not null"`

	Status          PurchaseStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ShippingAddress JSONB          `json:"shipping_address" gorm:"type:jsonb"`
	PaymentMethod   string         `json:"payment_method" gorm:"size:50"`
	PaymentRef      string         `json:"payment_ref" gorm:"size:255"`
	TrackingNumber  string         `json:"tracking_number" gorm:"size:100"`
	Carrier         string         `json:"carrier" gorm:"size:100"`
	ShippingNotes   string         `json:"shipping_notes" gorm:"type:text"`

	ExpiresAt         time.Time  `json:"expires_at" gorm:"not null;index"`
	AddressProvidedAt *time.Time `json:"address_provided_at"`
	PaidAt            *time.Time `json:"paid_at"`
	ShippedAt         *time.Time `json:"shipped_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	CompletedAt       *time.Time `json:"completed_at"`

	// Idempotency flags for the notification side effects.
	WinnerNotified bool `json:"winner_notified" gorm:"default:false"`
	ArtistNotified bool `json:"artist_notified" gorm:"default:false"`
	ReminderSent   bool `json:"reminder_sent" gorm:"default:false"`

	// Relationships
	Artwork Artwork `json:"artwork,omitempty" gorm:"foreignKey:ArtworkID"`
	Artist  User    `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
	Winner  User    `json:"winner,omitempty" gorm:"foreignKey:WinnerID"`
}

// PurchaseFees is the computed fee breakdown for a winning bid.
type PurchaseFees struct {
	WinningBid  float64
	PlatformFee float64
	ShippingFee float64
	TotalAmount float64
}

// ComputePurchaseFees derives the platform fee (percentage of the winning
// bid), the flat shipping fee and the resulting total.
func ComputePurchaseFees(winningBid, feePercent, shippingFee float64) PurchaseFees {
	platformFee := winningBid * feePercent / 100
	return PurchaseFees{
		WinningBid:  winningBid,
		PlatformFee: platformFee,
		ShippingFee: shippingFee,
		TotalAmount: winningBid + platformFee + shippingFee,
	}
}

// IsExpired reports whether the completion window has lapsed while the
// purchase never left pending. Reads must treat such a record as expired even
// before the daily sweep persists the transition.
func (p *AuctionPurchase) IsExpired(now time.Time) bool {
	return p.Status == PurchaseStatusPending && now.After(p.ExpiresAt)
}

// EffectiveStatus is the status as observed at the given time, folding in the
// derived expiry.
func (p *AuctionPurchase) EffectiveStatus(now time.Time) PurchaseStatus {
	if p.IsExpired(now) {
		return PurchaseStatusExpired
	}
	return p.Status
}
