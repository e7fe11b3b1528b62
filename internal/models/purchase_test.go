// internal/models/purchase_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputePurchaseFees(t *testing.T) {
	fees := ComputePurchaseFees(105, DefaultPlatformFeePercent, DefaultShippingFee)

	assert.Equal(t, 105.0, fees.WinningBid)
	assert.InDelta(t, 5.25, fees.PlatformFee, 0.001)
	assert.Equal(t, 25.0, fees.ShippingFee)
	assert.InDelta(t, 135.25, fees.TotalAmount, 0.001)
}

func TestComputePurchaseFeesZeroPercent(t *testing.T) {
	fees := ComputePurchaseFees(200, 0, 25)

	assert.Equal(t, 0.0, fees.PlatformFee)
	assert.Equal(t, 225.0, fees.TotalAmount)
}

func TestPurchaseStatusForwardOnly(t *testing.T) {
	forward := []PurchaseStatus{
		PurchaseStatusPending,
		PurchaseStatusAddressProvided,
		PurchaseStatusPaymentPending,
		PurchaseStatusPaid,
		PurchaseStatusShipped,
		PurchaseStatusDelivered,
		PurchaseStatusCompleted,
	}

	for i, from := range forward {
		for j, to := range forward {
			if i == j {
				continue
			}
			got := from.CanTransitionTo(to)
			if from == PurchaseStatusCompleted {
				assert.False(t, got, "%s -> %s", from, to)
				continue
			}
			assert.Equal(t, j > i, got, "%s -> %s", from, to)
		}
	}
}

func TestPurchaseStatusSkippingAheadAllowed(t *testing.T) {
	// Off-platform settlement may jump straight from address_provided to paid
	assert.True(t, PurchaseStatusAddressProvided.CanTransitionTo(PurchaseStatusPaid))
	assert.True(t, PurchaseStatusPending.CanTransitionTo(PurchaseStatusPaymentPending))
}

func TestPurchaseStatusCancellation(t *testing.T) {
	assert.True(t, PurchaseStatusPending.CanTransitionTo(PurchaseStatusCancelled))
	assert.True(t, PurchaseStatusPaid.CanTransitionTo(PurchaseStatusCancelled))
	assert.True(t, PurchaseStatusDelivered.CanTransitionTo(PurchaseStatusCancelled))

	// Terminal states stay terminal
	assert.False(t, PurchaseStatusCompleted.CanTransitionTo(PurchaseStatusCancelled))
	assert.False(t, PurchaseStatusExpired.CanTransitionTo(PurchaseStatusCancelled))
	assert.False(t, PurchaseStatusCancelled.CanTransitionTo(PurchaseStatusPending))
}

func TestPurchaseStatusExpiryOnlyFromPending(t *testing.T) {
	assert.True(t, PurchaseStatusPending.CanTransitionTo(PurchaseStatusExpired))
	assert.False(t, PurchaseStatusAddressProvided.CanTransitionTo(PurchaseStatusExpired))
	assert.False(t, PurchaseStatusPaid.CanTransitionTo(PurchaseStatusExpired))
}

func TestPurchaseStatusIsTerminal(t *testing.T) {
	assert.True(t, PurchaseStatusCompleted.IsTerminal())
	assert.True(t, PurchaseStatusCancelled.IsTerminal())
	assert.True(t, PurchaseStatusExpired.IsTerminal())
	assert.False(t, PurchaseStatusPending.IsTerminal())
	assert.False(t, PurchaseStatusShipped.IsTerminal())
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	pending := &AuctionPurchase{Status: PurchaseStatusPending, ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, pending.IsExpired(now))

	fresh := &AuctionPurchase{Status: PurchaseStatusPending, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, fresh.IsExpired(now))

	// Only pending purchases expire; a purchase that moved on is safe
	advanced := &AuctionPurchase{Status: PurchaseStatusAddressProvided, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, advanced.IsExpired(now))
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()

	stale := &AuctionPurchase{Status: PurchaseStatusPending, ExpiresAt: now.Add(-time.Minute)}
	assert.Equal(t, PurchaseStatusExpired, stale.EffectiveStatus(now))

	paid := &AuctionPurchase{Status: PurchaseStatusPaid, ExpiresAt: now.Add(-time.Minute)}
	assert.Equal(t, PurchaseStatusPaid, paid.EffectiveStatus(now))
}
