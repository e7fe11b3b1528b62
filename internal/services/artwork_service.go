// internal/services/artwork_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/models"
	"github.com/palettebid/backend/internal/utils"
)

type ArtworkService struct {
	db *gorm.DB
}

type CreateArtworkRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"required,min=10"`
	Category    string   `json:"category" validate:"required"`
	Medium      string   `json:"medium,omitempty"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Images      []string `json:"images,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ForSale     *bool    `json:"for_sale,omitempty"`
}

type UpdateArtworkRequest struct {
	Title       string   `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description string   `json:"description,omitempty" validate:"omitempty,min=10"`
	Category    string   `json:"category,omitempty"`
	Medium      string   `json:"medium,omitempty"`
	Price       float64  `json:"price,omitempty" validate:"omitempty,gt=0"`
	Images      []string `json:"images,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ForSale     *bool    `json:"for_sale,omitempty"`
}

type ArtworkSearchParams struct {
	utils.PaginationParams
	CreatorID *uuid.UUID `json:"creator_id,omitempty"`
	PriceMin  *float64   `json:"price_min,omitempty"`
	PriceMax  *float64   `json:"price_max,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	ForSale   *bool      `json:"for_sale,omitempty"`
}

func NewArtworkService(db *gorm.DB) *ArtworkService {
	return &ArtworkService{db: db}
}

func (s *ArtworkService) CreateArtwork(creatorID uuid.UUID, req *CreateArtworkRequest) (*models.Artwork, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Verify creator exists and is active
	var creator models.User
	if err := s.db.First(&creator, creatorID).Error; err != nil {
		return nil, fmt.Errorf("%w: creator", ErrNotFound)
	}

	if creator.Status != models.UserStatusActive {
		return nil, errors.New("creator account is not active")
	}

	if creator.UserType != models.UserTypeArtist {
		return nil, fmt.Errorf("%w: only artists can list artworks", ErrForbidden)
	}

	forSale := true
	if req.ForSale != nil {
		forSale = *req.ForSale
	}

	artwork := &models.Artwork{
		CreatorID:   creatorID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Medium:      req.Medium,
		Price:       req.Price,
		Images:      req.Images,
		Tags:        req.Tags,
		ForSale:     forSale,
	}

	if err := s.db.Create(artwork).Error; err != nil {
		return nil, fmt.Errorf("failed to create artwork: %w", err)
	}

	// Load relationships
	s.db.Preload("Creator").First(artwork, artwork.ID)

	return artwork, nil
}

func (s *ArtworkService) GetArtwork(id uuid.UUID, userID *uuid.UUID) (*models.Artwork, error) {
	var artwork models.Artwork
	if err := s.db.Preload("Creator").Preload("Auction").First(&artwork, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: artwork %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Increment view count if not the creator viewing
	if userID == nil || *userID != artwork.CreatorID {
		go s.incrementViewCount(id)
	}

	return &artwork, nil
}

func (s *ArtworkService) UpdateArtwork(id uuid.UUID, creatorID uuid.UUID, req *UpdateArtworkRequest) (*models.Artwork, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Find and verify ownership
	var artwork models.Artwork
	if err := s.db.Preload("Auction").First(&artwork, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: artwork %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if artwork.CreatorID != creatorID {
		return nil, fmt.Errorf("%w: unauthorized to update this artwork", ErrForbidden)
	}

	if artwork.IsSold {
		return nil, fmt.Errorf("%w: sold artworks cannot be edited", ErrStateConflict)
	}

	// The listed price feeds the auction floor, lock it while bidding runs.
	if req.Price > 0 && artwork.Auction != nil && artwork.Auction.IsActive {
		return nil, fmt.Errorf("%w: price cannot change during an active auction", ErrStateConflict)
	}

	// Prepare updates
	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Medium != "" {
		updates["medium"] = req.Medium
	}
	if req.Price > 0 {
		updates["price"] = req.Price
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(req.Images)
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if req.ForSale != nil {
		updates["for_sale"] = *req.ForSale
	}

	// Apply updates
	if err := s.db.Model(&artwork).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update artwork: %w", err)
	}

	// Reload with relationships
	s.db.Preload("Creator").Preload("Auction").First(&artwork, id)

	return &artwork, nil
}

func (s *ArtworkService) DeleteArtwork(id uuid.UUID, creatorID uuid.UUID) error {
	// Find and verify ownership
	var artwork models.Artwork
	if err := s.db.Preload("Auction").First(&artwork, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: artwork %s", ErrNotFound, id)
		}
		return fmt.Errorf("database error: %w", err)
	}

	if artwork.CreatorID != creatorID {
		return fmt.Errorf("%w: unauthorized to delete this artwork", ErrForbidden)
	}

	if artwork.IsSold {
		return fmt.Errorf("%w: sold artworks cannot be deleted", ErrStateConflict)
	}

	if artwork.Auction != nil && artwork.Auction.IsActive {
		return fmt.Errorf("%w: end the auction before deleting the artwork", ErrStateConflict)
	}

	// Soft delete
	if err := s.db.Delete(&artwork).Error; err != nil {
		return fmt.Errorf("failed to delete artwork: %w", err)
	}

	return nil
}

func (s *ArtworkService) SearchArtworks(params ArtworkSearchParams) ([]models.Artwork, int64, error) {
	query := s.db.Model(&models.Artwork{}).Preload("Creator").Preload("Auction")

	// Apply filters
	if params.CreatorID != nil {
		query = query.Where("creator_id = ?", *params.CreatorID)
	}

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	if params.PriceMin != nil {
		query = query.Where("price >= ?", *params.PriceMin)
	}

	if params.PriceMax != nil {
		query = query.Where("price <= ?", *params.PriceMax)
	}

	if len(params.Tags) > 0 {
		query = query.Where("tags && ?", pq.Array(params.Tags))
	}

	if params.ForSale != nil {
		query = query.Where("for_sale = ?", *params.ForSale)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count artworks: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "title", "price", "view_count"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	// Execute query
	var artworks []models.Artwork
	if err := query.Find(&artworks).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch artworks: %w", err)
	}

	return artworks, total, nil
}

// Helper methods

func (s *ArtworkService) incrementViewCount(artworkID uuid.UUID) {
	s.db.Model(&models.Artwork{}).Where("id = ?", artworkID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
}
