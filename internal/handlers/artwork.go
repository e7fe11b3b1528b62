// internal/handlers/artwork.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/palettebid/backend/internal/services"
	"github.com/palettebid/backend/internal/utils"
)

type ArtworkHandler struct {
	artworkService *services.ArtworkService
	storageService *services.StorageService
}

func NewArtworkHandler(artworkService *services.ArtworkService, storageService *services.StorageService) *ArtworkHandler {
	return &ArtworkHandler{
		artworkService: artworkService,
		storageService: storageService,
	}
}

// GET /artworks
func (h *ArtworkHandler) GetArtworks(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ArtworkSearchParams{
		PaginationParams: params,
	}

	if creatorIDStr := c.Query("creator_id"); creatorIDStr != "" {
		if creatorID, err := uuid.Parse(creatorIDStr); err == nil {
			searchParams.CreatorID = &creatorID
		}
	}

	if priceMinStr := c.Query("price_min"); priceMinStr != "" {
		if priceMin, err := strconv.ParseFloat(priceMinStr, 64); err == nil {
			searchParams.PriceMin = &priceMin
		}
	}

	if priceMaxStr := c.Query("price_max"); priceMaxStr != "" {
		if priceMax, err := strconv.ParseFloat(priceMaxStr, 64); err == nil {
			searchParams.PriceMax = &priceMax
		}
	}

	if tags := c.Query("tags"); tags != "" {
		searchParams.Tags = strings.Split(tags, ",")
	}

	if forSaleStr := c.Query("for_sale"); forSaleStr != "" {
		if forSale, err := strconv.ParseBool(forSaleStr); err == nil {
			searchParams.ForSale = &forSale
		}
	}

	artworks, total, err := h.artworkService.SearchArtworks(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(artworks, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /artworks
func (h *ArtworkHandler) CreateArtwork(c *gin.Context) {
	creatorID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	artwork, err := h.artworkService.CreateArtwork(creatorID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"artwork": artwork})
}

// GET /artworks/:id
func (h *ArtworkHandler) GetArtwork(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Current user id when authenticated, for the view counter
	var userID *uuid.UUID
	if userIDStr, exists := utils.GetUserIDFromContext(c); exists {
		if uid, err := uuid.Parse(userIDStr); err == nil {
			userID = &uid
		}
	}

	artwork, err := h.artworkService.GetArtwork(id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"artwork": artwork})
}

// PUT /artworks/:id
func (h *ArtworkHandler) UpdateArtwork(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	creatorID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.UpdateArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	artwork, err := h.artworkService.UpdateArtwork(id, creatorID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"artwork": artwork})
}

// DELETE /artworks/:id
func (h *ArtworkHandler) DeleteArtwork(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	creatorID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.artworkService.DeleteArtwork(id, creatorID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Artwork deleted"})
}

// POST /artworks/upload-images
func (h *ArtworkHandler) UploadArtworkImages(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, "File upload failed", err.Error())
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		utils.BadRequestResponse(c, "No images uploaded", nil)
		return
	}

	var uploadedImages []map[string]interface{}
	options := h.storageService.GetDefaultUploadOptions("artworks")

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			continue
		}

		if err := h.storageService.ValidateImage(file); err != nil {
			file.Close()
			continue
		}

		result, err := h.storageService.UploadFile(file, fileHeader, options)
		file.Close()

		if err != nil {
			continue
		}

		uploadedImages = append(uploadedImages, map[string]interface{}{
			"url":       result.URL,
			"key":       result.Key,
			"size":      result.Size,
			"mime_type": result.MimeType,
		})
	}

	utils.SuccessResponse(c, gin.H{"images": uploadedImages})
}
