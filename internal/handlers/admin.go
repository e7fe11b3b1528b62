// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/palettebid/backend/internal/models"
	"github.com/palettebid/backend/internal/services"
	"github.com/palettebid/backend/internal/utils"
)

type AdminHandler struct {
	purchaseService *services.PurchaseService
	auctionService  *services.AuctionService
}

func NewAdminHandler(purchaseService *services.PurchaseService, auctionService *services.AuctionService) *AdminHandler {
	return &AdminHandler{
		purchaseService: purchaseService,
		auctionService:  auctionService,
	}
}

// GET /admin/auction-purchases
func (h *AdminHandler) ListPurchases(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var status *models.PurchaseStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.PurchaseStatus(statusStr)
		status = &s
	}

	purchases, total, err := h.purchaseService.ListPurchases(params, status)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /admin/auction-purchases/:auctionId/cancel
func (h *AdminHandler) CancelPurchase(c *gin.Context) {
	auctionID := c.Param("auctionId")

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	// Body is optional for cancellation
	_ = c.ShouldBindJSON(&req)

	purchase, err := h.purchaseService.CancelPurchase(auctionID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"purchase": purchase})
}

// POST /admin/auctions/sweep
func (h *AdminHandler) SweepAuctions(c *gin.Context) {
	ended, err := h.auctionService.SweepExpired()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"ended": ended})
}

// POST /admin/auction-purchases/sweep
func (h *AdminHandler) SweepPurchases(c *gin.Context) {
	expired, err := h.purchaseService.ExpireStale()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"expired": expired})
}
