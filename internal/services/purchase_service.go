// internal/services/purchase_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/models"
	"github.com/palettebid/backend/internal/utils"
)

type PurchaseService struct {
	db            *gorm.DB
	cfg           *config.Config
	notifications *NotificationService
	payments      *PaymentService
}

type ShippingAddressRequest struct {
	FullName   string `json:"full_name" validate:"required,min=2,max=100"`
	Street     string `json:"street" validate:"required,min=3,max=255"`
	City       string `json:"city" validate:"required,min=2,max=100"`
	State      string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode string `json:"postal_code" validate:"required,min=2,max=20"`
	Country    string `json:"country" validate:"required,min=2,max=100"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type CompletePaymentRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

type UpdateShippingStatusRequest struct {
	Status         models.PurchaseStatus `json:"status" validate:"required"`
	TrackingNumber string                `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
	Carrier        string                `json:"carrier,omitempty" validate:"omitempty,max=100"`
	Notes          string                `json:"notes,omitempty"`
}

func NewPurchaseService(db *gorm.DB, cfg *config.Config, notifications *NotificationService, payments *PaymentService) *PurchaseService {
	return &PurchaseService{
		db:            db,
		cfg:           cfg,
		notifications: notifications,
		payments:      payments,
	}
}

// CreatePurchaseIfAbsent synthesizes the post-auction purchase record for an
// auction that just ended with a winner. The unique constraint on artwork_id
// is the real guard: two callers racing past the existence check cannot both
// insert, the loser gets a duplicate-key error and returns the surviving row.
func (s *PurchaseService) CreatePurchaseIfAbsent(tx *gorm.DB, artwork *models.Artwork, auction *models.Auction) (*models.AuctionPurchase, error) {
	var existing models.AuctionPurchase
	err := tx.Where("artwork_id = ?", artwork.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	fees := models.ComputePurchaseFees(*auction.CurrentBid,
		s.cfg.Auction.PlatformFeePercent, s.cfg.Auction.ShippingFee)

	now := time.Now()
	purchase := &models.AuctionPurchase{
		AuctionID:      uuid.NewString(),
		ArtworkID:      artwork.ID,
		ArtistID:       artwork.CreatorID,
		WinnerID:       *auction.WinnerID,
		WinningBid:     fees.WinningBid,
		PlatformFee:    fees.PlatformFee,
		ShippingFee:    fees.ShippingFee,
		TotalAmount:    fees.TotalAmount,
		Status:         models.PurchaseStatusPending,
		ExpiresAt:      now.AddDate(0, 0, s.cfg.Auction.PurchaseExpiryDays),
		WinnerNotified: true,
	}

	// The insert runs under a savepoint: Postgres aborts the surrounding
	// transaction on a unique violation, and the savepoint rollback is what
	// keeps it usable for the re-select below.
	createErr := tx.Transaction(func(tx *gorm.DB) error {
		return tx.Create(purchase).Error
	})
	if createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// Lost the race, someone else settled this auction first.
			if err := tx.Where("artwork_id = ?", artwork.ID).First(&existing).Error; err != nil {
				return nil, fmt.Errorf("database error: %w", err)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create purchase: %w", createErr)
	}

	if err := tx.Model(artwork).Updates(map[string]interface{}{
		"is_sold":  true,
		"for_sale": false,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to mark artwork sold: %w", err)
	}

	// Queued in the same transaction: the purchase either exists with its
	// winner email pending, or neither happened.
	if err := s.notifications.EnqueueAuctionWon(tx, purchase, artwork); err != nil {
		return nil, err
	}

	return purchase, nil
}

// GetPurchase returns a purchase by its public auction id, with the derived
// expiry folded into the reported status.
func (s *PurchaseService) GetPurchase(auctionID string) (*models.AuctionPurchase, error) {
	var purchase models.AuctionPurchase
	if err := s.db.Where("auction_id = ?", auctionID).
		Preload("Artwork").Preload("Artist").Preload("Winner").
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: purchase %s", ErrNotFound, auctionID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	purchase.Status = purchase.EffectiveStatus(time.Now())
	return &purchase, nil
}

// ProvideShippingAddress records the winner's shipping address. The address is
// written once, before payment, and advances a pending purchase to
// address_provided.
func (s *PurchaseService) ProvideShippingAddress(auctionID string, requesterID uuid.UUID, req *ShippingAddressRequest) (*models.AuctionPurchase, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var purchase *models.AuctionPurchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPurchase(tx, auctionID)
		if err != nil {
			return err
		}

		if p.WinnerID != requesterID {
			return fmt.Errorf("%w: only the auction winner can provide a shipping address", ErrForbidden)
		}
		if err := s.rejectIfExpired(p); err != nil {
			return err
		}
		if p.ShippingAddress != nil {
			return fmt.Errorf("%w: shipping address has already been provided", ErrStateConflict)
		}
		if p.PaidAt != nil {
			return fmt.Errorf("%w: shipping address cannot change after payment", ErrStateConflict)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"shipping_address": models.JSONB{
				"full_name":   req.FullName,
				"street":      req.Street,
				"city":        req.City,
				"state":       req.State,
				"postal_code": req.PostalCode,
				"country":     req.Country,
				"phone":       req.Phone,
			},
			"address_provided_at": now,
		}
		if p.Status == models.PurchaseStatusPending {
			updates["status"] = models.PurchaseStatusAddressProvided
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to save shipping address: %w", err)
		}

		purchase = p
		return nil
	})

	if err != nil {
		return nil, err
	}

	return s.GetPurchase(purchase.AuctionID)
}

// CreatePaymentIntent prepares a Stripe payment intent for the purchase total
// and moves the record to payment_pending.
func (s *PurchaseService) CreatePaymentIntent(auctionID string, requesterID uuid.UUID) (*PaymentIntentResponse, error) {
	var intent *PaymentIntentResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPurchase(tx, auctionID)
		if err != nil {
			return err
		}

		if p.WinnerID != requesterID {
			return fmt.Errorf("%w: only the auction winner can pay for this purchase", ErrForbidden)
		}
		if err := s.rejectIfExpired(p); err != nil {
			return err
		}
		if p.ShippingAddress == nil {
			return fmt.Errorf("%w: shipping address is required before payment", ErrStateConflict)
		}
		if !p.Status.CanTransitionTo(models.PurchaseStatusPaymentPending) &&
			p.Status != models.PurchaseStatusPaymentPending {
			return fmt.Errorf("%w: purchase is not awaiting payment", ErrStateConflict)
		}

		intent, err = s.payments.CreatePurchaseIntent(p)
		if err != nil {
			return err
		}

		if p.Status.CanTransitionTo(models.PurchaseStatusPaymentPending) {
			if err := tx.Model(p).Update("status", models.PurchaseStatusPaymentPending).Error; err != nil {
				return fmt.Errorf("failed to update purchase: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return intent, nil
}

// CompletePayment records the winner's payment and advances the purchase to
// paid. The artist notification is queued, never inline.
func (s *PurchaseService) CompletePayment(auctionID string, requesterID uuid.UUID, req *CompletePaymentRequest) (*models.AuctionPurchase, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var purchase *models.AuctionPurchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPurchase(tx, auctionID)
		if err != nil {
			return err
		}

		if p.WinnerID != requesterID {
			return fmt.Errorf("%w: only the auction winner can pay for this purchase", ErrForbidden)
		}
		if err := s.rejectIfExpired(p); err != nil {
			return err
		}
		if p.ShippingAddress == nil {
			return fmt.Errorf("%w: shipping address is required before payment", ErrStateConflict)
		}
		if !p.Status.CanTransitionTo(models.PurchaseStatusPaid) {
			return fmt.Errorf("%w: purchase cannot move to paid from %s", ErrStateConflict, p.Status)
		}

		paymentRef := req.PaymentIntentID
		if paymentRef != "" {
			if err := s.payments.VerifyIntentSucceeded(paymentRef); err != nil {
				return err
			}
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":         models.PurchaseStatusPaid,
			"paid_at":        now,
			"payment_method": req.PaymentMethod,
			"payment_ref":    paymentRef,
		}
		if !p.ArtistNotified {
			updates["artist_notified"] = true
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if !p.ArtistNotified {
			if err := s.notifications.EnqueuePaymentReceived(tx, p); err != nil {
				return err
			}
		}

		purchase = p
		return nil
	})

	if err != nil {
		return nil, err
	}

	return s.GetPurchase(purchase.AuctionID)
}

// UpdateShippingStatus lets the artist move a paid purchase through shipped,
// delivered and completed, stamping each step.
func (s *PurchaseService) UpdateShippingStatus(auctionID string, requesterID uuid.UUID, req *UpdateShippingStatusRequest) (*models.AuctionPurchase, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	switch req.Status {
	case models.PurchaseStatusShipped, models.PurchaseStatusDelivered, models.PurchaseStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: %s is not a shipping status", ErrStateConflict, req.Status)
	}

	var purchase *models.AuctionPurchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPurchase(tx, auctionID)
		if err != nil {
			return err
		}

		if p.ArtistID != requesterID {
			return fmt.Errorf("%w: only the artist can update shipping status", ErrForbidden)
		}
		if err := s.rejectIfExpired(p); err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: purchase cannot move from %s to %s", ErrStateConflict, p.Status, req.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status": req.Status,
		}
		switch req.Status {
		case models.PurchaseStatusShipped:
			updates["shipped_at"] = now
		case models.PurchaseStatusDelivered:
			updates["delivered_at"] = now
		case models.PurchaseStatusCompleted:
			updates["completed_at"] = now
		}
		if req.TrackingNumber != "" {
			updates["tracking_number"] = req.TrackingNumber
		}
		if req.Carrier != "" {
			updates["carrier"] = req.Carrier
		}
		if req.Notes != "" {
			updates["shipping_notes"] = req.Notes
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update shipping status: %w", err)
		}

		if req.Status == models.PurchaseStatusShipped {
			p.TrackingNumber = req.TrackingNumber
			p.Carrier = req.Carrier
			if err := s.notifications.EnqueueShipped(tx, p); err != nil {
				return err
			}
		}

		purchase = p
		return nil
	})

	if err != nil {
		return nil, err
	}

	return s.GetPurchase(purchase.AuctionID)
}

// CancelPurchase is the reserved escape hatch: any non-terminal purchase may
// be cancelled by an admin.
func (s *PurchaseService) CancelPurchase(auctionID string, reason string) (*models.AuctionPurchase, error) {
	var purchase *models.AuctionPurchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPurchase(tx, auctionID)
		if err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(models.PurchaseStatusCancelled) {
			return fmt.Errorf("%w: purchase in %s cannot be cancelled", ErrStateConflict, p.Status)
		}
		updates := map[string]interface{}{
			"status": models.PurchaseStatusCancelled,
		}
		if reason != "" {
			updates["shipping_notes"] = reason
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to cancel purchase: %w", err)
		}
		purchase = p
		return nil
	})

	if err != nil {
		return nil, err
	}
	return s.GetPurchase(purchase.AuctionID)
}

// ExpireStale transitions every pending purchase whose completion window has
// lapsed to expired. The guarded update makes each transition happen exactly
// once, and one bad record never stops the batch.
func (s *PurchaseService) ExpireStale() (int, error) {
	var stale []models.AuctionPurchase
	if err := s.db.Where("status = ? AND expires_at < ?", models.PurchaseStatusPending, time.Now()).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to scan stale purchases: %w", err)
	}

	expired := 0
	for _, p := range stale {
		result := s.db.Model(&models.AuctionPurchase{}).
			Where("id = ? AND status = ?", p.ID, models.PurchaseStatusPending).
			Update("status", models.PurchaseStatusExpired)
		if result.Error != nil {
			logrus.WithError(result.Error).WithField("auction_id", p.AuctionID).
				Error("Failed to expire purchase")
			continue
		}
		if result.RowsAffected > 0 {
			logrus.WithField("auction_id", p.AuctionID).Info("Purchase expired")
			expired++
		}
	}

	return expired, nil
}

// SendReminders queues a reminder for pending purchases older than the
// configured number of days. The reminder_sent flag makes rerunning the sweep
// a no-op.
func (s *PurchaseService) SendReminders() (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.Auction.ReminderAfterDays)

	var due []models.AuctionPurchase
	if err := s.db.Where("status = ? AND reminder_sent = ? AND created_at < ?",
		models.PurchaseStatusPending, false, cutoff).
		Preload("Winner").Preload("Artwork").
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("failed to scan purchases due a reminder: %w", err)
	}

	sent := 0
	for i := range due {
		p := &due[i]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.AuctionPurchase{}).
				Where("id = ? AND reminder_sent = ?", p.ID, false).
				Update("reminder_sent", true)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return nil
			}
			return s.notifications.EnqueueReminder(tx, p)
		})
		if err != nil {
			logrus.WithError(err).WithField("auction_id", p.AuctionID).
				Error("Failed to queue purchase reminder")
			continue
		}
		sent++
	}

	return sent, nil
}

// ListPurchases is the admin view over all purchase records.
func (s *PurchaseService) ListPurchases(params utils.PaginationParams, status *models.PurchaseStatus) ([]models.AuctionPurchase, int64, error) {
	query := s.db.Model(&models.AuctionPurchase{}).
		Preload("Artwork").Preload("Artist").Preload("Winner")

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	allowedSortFields := []string{"created_at", "total_amount", "status", "expires_at"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var purchases []models.AuctionPurchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return purchases, total, nil
}

func (s *PurchaseService) lockPurchase(tx *gorm.DB, auctionID string) (*models.AuctionPurchase, error) {
	var purchase models.AuctionPurchase
	err := lockForUpdate(tx).
		Where("auction_id = ?", auctionID).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: purchase %s", ErrNotFound, auctionID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &purchase, nil
}

// rejectIfExpired re-derives expiry before every mutation so stale pending
// records are never acted on.
func (s *PurchaseService) rejectIfExpired(p *models.AuctionPurchase) error {
	if p.Status == models.PurchaseStatusExpired || p.IsExpired(time.Now()) {
		return fmt.Errorf("%w: the completion window closed at %s", ErrPurchaseExpired, p.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
