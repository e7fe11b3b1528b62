// internal/services/payment_service.go
package services

import (
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/models"
)

type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
	}
}

// CreatePurchaseIntent opens a Stripe payment intent for the purchase total.
func (s *PaymentService) CreatePurchaseIntent(purchase *models.AuctionPurchase) (*PaymentIntentResponse, error) {
	// Convert amount to cents for Stripe
	amountInCents := int64(purchase.TotalAmount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String("usd"),
	}
	params.AddMetadata("auction_id", purchase.AuctionID)
	params.AddMetadata("winner_id", purchase.WinnerID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// VerifyIntentSucceeded checks with Stripe that the given payment intent has
// actually settled before the purchase is marked paid.
func (s *PaymentService) VerifyIntentSucceeded(paymentIntentID string) error {
	if s.config.Payment.StripeSecretKey == "" {
		// Stripe not configured (local development), trust the caller.
		return nil
	}

	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return fmt.Errorf("failed to get payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: payment intent is %s, not succeeded", ErrStateConflict, pi.Status)
	}

	return nil
}
