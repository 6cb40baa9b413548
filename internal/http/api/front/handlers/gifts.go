package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/http/api"
	"github.com/gin-gonic/gin"
)

// GiftFrontHandler lets customers spend loyalty points.
type GiftFrontHandler struct {
	svc *api.Services
}

// NewGiftFrontHandler constructs a GiftFrontHandler.
func NewGiftFrontHandler(svc *api.Services) *GiftFrontHandler {
	return &GiftFrontHandler{svc: svc}
}

// List returns the active gifts.
func (h *GiftFrontHandler) List(c *gin.Context) {
	gifts, errList := h.svc.Loyalty.ListGifts(c.Request.Context(), true)
	if errList != nil {
		api.RespondError(c, errList, "list gifts failed")
		return
	}
	out := make([]gin.H, 0, len(gifts))
	for _, gift := range gifts {
		out = append(out, api.FormatGift(gift))
	}
	c.JSON(http.StatusOK, gin.H{"gifts": out})
}

// Redeem exchanges points for a gift.
func (h *GiftFrontHandler) Redeem(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	redemption, errRedeem := h.svc.Loyalty.RedeemGift(c.Request.Context(), api.AccountID(c), id)
	if errRedeem != nil {
		api.RespondError(c, errRedeem, "redeem gift failed")
		return
	}
	c.JSON(http.StatusCreated, api.FormatRedemption(redemption))
}

// Redemptions lists the account's redemptions.
func (h *GiftFrontHandler) Redemptions(c *gin.Context) {
	accountID := api.AccountID(c)
	list, errList := h.svc.Loyalty.Redemptions(c.Request.Context(), &accountID)
	if errList != nil {
		api.RespondError(c, errList, "list redemptions failed")
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, redemption := range list {
		out = append(out, api.FormatRedemption(redemption))
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": out})
}
