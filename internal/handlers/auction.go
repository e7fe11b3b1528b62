// internal/handlers/auction.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/palettebid/backend/internal/services"
	"github.com/palettebid/backend/internal/utils"
)

type AuctionHandler struct {
	auctionService *services.AuctionService
}

func NewAuctionHandler(auctionService *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// GET /auctions/:artworkId/info
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	artworkID, ok := parseIDParam(c, "artworkId")
	if !ok {
		return
	}

	auction, err := h.auctionService.GetAuction(artworkID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"auction":          auction,
		"minimum_next_bid": auction.MinimumNextBid(),
	})
}

// GET /auctions/:artworkId/bids
func (h *AuctionHandler) GetBids(c *gin.Context) {
	artworkID, ok := parseIDParam(c, "artworkId")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	bids, total, err := h.auctionService.GetBids(artworkID, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(bids, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /auctions/:artworkId/bid
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	artworkID, ok := parseIDParam(c, "artworkId")
	if !ok {
		return
	}

	bidderID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	auction, err := h.auctionService.PlaceBid(artworkID, bidderID, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"auction":          auction,
		"minimum_next_bid": auction.MinimumNextBid(),
	})
}

// POST /auctions/:artworkId/start
func (h *AuctionHandler) StartAuction(c *gin.Context) {
	artworkID, ok := parseIDParam(c, "artworkId")
	if !ok {
		return
	}

	requesterID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Body is optional, defaults come from configuration.
	var req services.StartAuctionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid input", err.Error())
			return
		}
	}

	auction, err := h.auctionService.StartAuction(artworkID, requesterID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"auction": auction})
}

// POST /auctions/:artworkId/end
func (h *AuctionHandler) EndAuction(c *gin.Context) {
	artworkID, ok := parseIDParam(c, "artworkId")
	if !ok {
		return
	}

	requesterID, ok := requireUserID(c)
	if !ok {
		return
	}

	auction, err := h.auctionService.EndAuction(artworkID, requesterID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"auction": auction})
}
