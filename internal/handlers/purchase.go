// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/palettebid/backend/internal/services"
	"github.com/palettebid/backend/internal/utils"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// GET /auction-purchases/:auctionId
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	auctionID := c.Param("auctionId")

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetPurchase(auctionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Purchase details are visible to its two parties and admins only.
	userType, _ := utils.GetUserTypeFromContext(c)
	if purchase.WinnerID != userID && purchase.ArtistID != userID && userType != "admin" {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"purchase": purchase})
}

// PUT /auction-purchases/:auctionId/shipping
func (h *PurchaseHandler) ProvideShippingAddress(c *gin.Context) {
	auctionID := c.Param("auctionId")

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.ShippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	purchase, err := h.purchaseService.ProvideShippingAddress(auctionID, userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"purchase": purchase})
}

// POST /auction-purchases/:auctionId/payment-intent
func (h *PurchaseHandler) CreatePaymentIntent(c *gin.Context) {
	auctionID := c.Param("auctionId")

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	intent, err := h.purchaseService.CreatePaymentIntent(auctionID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"payment_intent": intent})
}

// POST /auction-purchases/:auctionId/payment
func (h *PurchaseHandler) CompletePayment(c *gin.Context) {
	auctionID := c.Param("auctionId")

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	purchase, err := h.purchaseService.CompletePayment(auctionID, userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"purchase": purchase})
}

// PUT /auction-purchases/:auctionId/shipping-status
func (h *PurchaseHandler) UpdateShippingStatus(c *gin.Context) {
	auctionID := c.Param("auctionId")

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.UpdateShippingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	purchase, err := h.purchaseService.UpdateShippingStatus(auctionID, userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"purchase": purchase})
}
