// internal/services/auction_service.go
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

type AuctionService struct {
	db              *gorm.DB
	cfg             *config.Config
	purchaseService *PurchaseService
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type StartAuctionRequest struct {
	DurationDays  int      `json:"duration,omitempty" validate:"omitempty,min=1,max=90"`
	StartingPrice *float64 `json:"starting_price,omitempty" validate:"omitempty,gt=0"`
}

func NewAuctionService(db *gorm.DB, cfg *config.Config, purchaseService *PurchaseService) *AuctionService {
	return &AuctionService{
		db:              db,
		cfg:             cfg,
		purchaseService: purchaseService,
	}
}

// GetAuction returns the current auction snapshot for an artwork.
func (s *AuctionService) GetAuction(artworkID uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if err := s.db.Where("artwork_id = ?", artworkID).
		Preload("HighestBidder").Preload("Winner").
		First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: auction for artwork %s", ErrNotFound, artworkID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &auction, nil
}

// GetBids returns the bid ledger for an artwork's auction, newest first.
func (s *AuctionService) GetBids(artworkID uuid.UUID, params utils.PaginationParams) ([]models.Bid, int64, error) {
	auction, err := s.GetAuction(artworkID)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Bid{}).Where("auction_id = ?", auction.ID).Preload("Bidder")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	query = query.Order("created_at DESC")
	query = utils.ApplyPagination(query, params)

	var bids []models.Bid
	if err := query.Find(&bids).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch bids: %w", err)
	}

	return bids, total, nil
}

// PlaceBid validates and appends a bid to the ledger. The whole acceptance
// runs inside one transaction holding a row lock on the auction, and the
// leader cache is advanced with a conditional update so two racing bids can
// never both win the append.
func (s *AuctionService) PlaceBid(artworkID, bidderID uuid.UUID, amount float64) (*models.Auction, error) {
	var auction *models.Auction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var artwork models.Artwork
		if err := tx.First(&artwork, artworkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: artwork %s", ErrNotFound, artworkID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		var current models.Auction
		err := lockForUpdate(tx).
			Where("artwork_id = ?", artworkID).
			First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !s.cfg.Auction.AutoStartOnBid {
				return fmt.Errorf("%w: %s", ErrStateConflict, models.ErrAuctionNotFound)
			}
			// Auto-start is opt-in: the first bid opens a default-length
			// window floored at the artwork's listed price.
			now := time.Now()
			current = models.Auction{
				ArtworkID:        artworkID,
				StartTime:        now,
				EndTime:          now.AddDate(0, 0, s.cfg.Auction.DefaultDurationDays),
				StartingPrice:    artwork.Price,
				MinimumIncrement: s.cfg.Auction.MinimumIncrement,
				IsActive:         true,
			}
			if err := tx.Create(&current).Error; err != nil {
				return fmt.Errorf("failed to create auction: %w", err)
			}
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		}

		if err := current.ValidateBid(bidderID, artwork.CreatorID, amount, time.Now()); err != nil {
			return fmt.Errorf("%w: %s", ErrStateConflict, err)
		}

		bid := models.Bid{
			AuctionID: current.ID,
			BidderID:  bidderID,
			Amount:    amount,
		}
		if err := tx.Create(&bid).Error; err != nil {
			return fmt.Errorf("failed to record bid: %w", err)
		}

		// Advance the leader cache only if this bid still clears the committed
		// leader by the minimum increment. The row lock makes this the sole
		// writer, the condition rejects any lost update outright.
		result := tx.Model(&models.Auction{}).
			Where("id = ? AND (current_bid IS NULL OR current_bid + minimum_increment <= ?)", current.ID, amount).
			Updates(map[string]interface{}{
				"current_bid":       amount,
				"highest_bidder_id": bidderID,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update auction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: a higher bid was placed first", ErrStateConflict)
		}

		auction = &current
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Reload with the fresh leader cache and bidder info.
	return s.GetAuction(auction.ArtworkID)
}

// StartAuction opens a fresh bidding window on an artwork. Only the creator
// may start one, and never while another window is still active. A previous
// ended auction is reused in place: its ledger is kept as history, the leader
// cache and winner are reset.
func (s *AuctionService) StartAuction(artworkID, requesterID uuid.UUID, req *StartAuctionRequest) (*models.Auction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	duration := req.DurationDays
	if duration <= 0 {
		duration = s.cfg.Auction.DefaultDurationDays
	}

	var auction *models.Auction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var artwork models.Artwork
		if err := tx.First(&artwork, artworkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: artwork %s", ErrNotFound, artworkID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if artwork.CreatorID != requesterID {
			return fmt.Errorf("%w: only the artwork's creator can start an auction", ErrForbidden)
		}

		if artwork.IsSold {
			return fmt.Errorf("%w: artwork has already been sold", ErrStateConflict)
		}

		startingPrice := artwork.Price
		if req.StartingPrice != nil {
			startingPrice = *req.StartingPrice
		}

		now := time.Now()
		var current models.Auction
		err := lockForUpdate(tx).
			Where("artwork_id = ?", artworkID).
			First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = models.Auction{
				ArtworkID:        artworkID,
				StartTime:        now,
				EndTime:          now.AddDate(0, 0, duration),
				StartingPrice:    startingPrice,
				MinimumIncrement: s.cfg.Auction.MinimumIncrement,
				IsActive:         true,
			}
			if err := tx.Create(&current).Error; err != nil {
				return fmt.Errorf("failed to create auction: %w", err)
			}
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		default:
			if current.IsActive && !current.HasEnded(now) {
				return fmt.Errorf("%w: an auction is already active for this artwork", ErrStateConflict)
			}
			updates := map[string]interface{}{
				"start_time":        now,
				"end_time":          now.AddDate(0, 0, duration),
				"starting_price":    startingPrice,
				"minimum_increment": s.cfg.Auction.MinimumIncrement,
				"current_bid":       nil,
				"highest_bidder_id": nil,
				"winner_id":         nil,
				"is_active":         true,
			}
			if err := tx.Model(&current).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to restart auction: %w", err)
			}
		}

		auction = &current
		return nil
	})

	if err != nil {
		return nil, err
	}

	return s.GetAuction(auction.ArtworkID)
}

// EndAuction closes an active auction on the creator's request, settles the
// winner from the ledger and creates the purchase record when one exists.
func (s *AuctionService) EndAuction(artworkID, requesterID uuid.UUID) (*models.Auction, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var artwork models.Artwork
		if err := tx.First(&artwork, artworkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: artwork %s", ErrNotFound, artworkID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if artwork.CreatorID != requesterID {
			return fmt.Errorf("%w: only the artwork's creator can end an auction", ErrForbidden)
		}

		return s.endAuctionTx(tx, &artwork, true)
	})

	if err != nil {
		return nil, err
	}

	return s.GetAuction(artworkID)
}

// SweepExpired ends every auction whose window has closed but is still marked
// active. Safe to run repeatedly and concurrently: already-ended auctions are
// skipped under lock and purchase creation is constraint-guarded. A failure on
// one artwork is logged and never aborts the rest of the batch.
func (s *AuctionService) SweepExpired() (int, error) {
	var expired []models.Auction
	if err := s.db.Where("is_active = ? AND end_time < ?", true, time.Now()).
		Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("failed to scan expired auctions: %w", err)
	}

	ended := 0
	for _, auction := range expired {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var artwork models.Artwork
			if err := tx.First(&artwork, auction.ArtworkID).Error; err != nil {
				return fmt.Errorf("artwork lookup: %w", err)
			}
			return s.endAuctionTx(tx, &artwork, false)
		})
		if err != nil {
			logrus.WithError(err).WithField("artwork_id", auction.ArtworkID).
				Error("Failed to end expired auction")
			continue
		}
		ended++
	}

	return ended, nil
}

// endAuctionTx closes the auction under a row lock. It is idempotent: an
// auction that is no longer active is left untouched (manual end reports the
// conflict, the sweep treats it as already handled).
func (s *AuctionService) endAuctionTx(tx *gorm.DB, artwork *models.Artwork, manual bool) error {
	var auction models.Auction
	err := lockForUpdate(tx).
		Where("artwork_id = ?", artwork.ID).
		First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrStateConflict, models.ErrAuctionNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	if !auction.IsActive {
		if manual {
			return fmt.Errorf("%w: auction is not active", ErrStateConflict)
		}
		return nil
	}

	updates := map[string]interface{}{
		"is_active": false,
	}
	if manual {
		updates["end_time"] = time.Now()
	}
	if auction.HighestBidderID != nil {
		updates["winner_id"] = *auction.HighestBidderID
	}
	if err := tx.Model(&auction).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to end auction: %w", err)
	}

	// No bids means no settlement, the artwork simply goes back unsold.
	if auction.HighestBidderID == nil || auction.CurrentBid == nil {
		return nil
	}

	auction.WinnerID = auction.HighestBidderID
	if _, err := s.purchaseService.CreatePurchaseIfAbsent(tx, artwork, &auction); err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}
