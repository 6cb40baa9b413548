package handlers

import (
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GiftHandler manages the loyalty gift catalog and redemptions.
type GiftHandler struct {
	svc *api.Services
}

// NewGiftHandler constructs a GiftHandler.
func NewGiftHandler(svc *api.Services) *GiftHandler {
	return &GiftHandler{svc: svc}
}

type giftRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PointsCost    int64  `json:"points_cost"`
	ImageURL      string `json:"image_url"`
	StockQuantity *int   `json:"stock_quantity"`
	IsActive      bool   `json:"is_active"`
}

func (body *giftRequest) validate() string {
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return "missing name"
	}
	if body.PointsCost <= 0 {
		return "points cost must be positive"
	}
	if body.StockQuantity != nil && *body.StockQuantity < 0 {
		return "stock must not be negative"
	}
	return ""
}

// Create stores a gift. Stock defaults to 100 when omitted.
func (h *GiftHandler) Create(c *gin.Context) {
	var body giftRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	gift := models.Gift{
		UID:         uuid.NewString(),
		Name:        body.Name,
		Description: strings.TrimSpace(body.Description),
		PointsCost:  body.PointsCost,
		ImageURL:    strings.TrimSpace(body.ImageURL),
		IsActive:    body.IsActive,
	}
	if body.StockQuantity != nil {
		gift.StockQuantity = *body.StockQuantity
	}
	ctx := c.Request.Context()
	if errCreate := h.svc.DB.WithContext(ctx).Create(&gift).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create gift failed"})
		return
	}
	// A zero stock is skipped on insert and falls back to the column default.
	if body.StockQuantity != nil && *body.StockQuantity == 0 {
		if errUpdate := h.svc.DB.WithContext(ctx).Model(&gift).Update("stock_quantity", 0).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create gift failed"})
			return
		}
		gift.StockQuantity = 0
	}
	c.JSON(http.StatusCreated, api.FormatGift(gift))
}

// List returns every gift, active or not.
func (h *GiftHandler) List(c *gin.Context) {
	gifts, errList := h.svc.Loyalty.ListGifts(c.Request.Context(), false)
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

// Update replaces the writable fields of a gift.
func (h *GiftHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body giftRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	ctx := c.Request.Context()
	var gift models.Gift
	if errFind := h.svc.DB.WithContext(ctx).First(&gift, id).Error; errFind != nil {
		respondFind(c, errFind, "gift")
		return
	}
	updates := map[string]any{
		"name":        body.Name,
		"description": strings.TrimSpace(body.Description),
		"points_cost": body.PointsCost,
		"image_url":   strings.TrimSpace(body.ImageURL),
		"is_active":   body.IsActive,
	}
	if body.StockQuantity != nil {
		updates["stock_quantity"] = *body.StockQuantity
	}
	if errUpdate := h.svc.DB.WithContext(ctx).Model(&gift).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update gift failed"})
		return
	}
	if errReload := h.svc.DB.WithContext(ctx).First(&gift, id).Error; errReload != nil {
		respondFind(c, errReload, "gift")
		return
	}
	c.JSON(http.StatusOK, api.FormatGift(gift))
}

// Delete removes a gift that has never been redeemed, otherwise it is deactivated.
func (h *GiftHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var gift models.Gift
	if errFind := h.svc.DB.WithContext(ctx).First(&gift, id).Error; errFind != nil {
		respondFind(c, errFind, "gift")
		return
	}
	var redeemed int64
	if errCount := h.svc.DB.WithContext(ctx).Model(&models.GiftRedemption{}).
		Where("gift_id = ?", id).Count(&redeemed).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if redeemed > 0 {
		if errUpdate := h.svc.DB.WithContext(ctx).Model(&gift).Update("is_active", false).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "deactivate gift failed"})
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	if errDelete := h.svc.DB.WithContext(ctx).Delete(&gift).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Redemptions lists redemptions, optionally for one account.
func (h *GiftHandler) Redemptions(c *gin.Context) {
	list, errList := h.svc.Loyalty.Redemptions(c.Request.Context(), api.QueryID(c, "account_id"))
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

type shipRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Notes          string `json:"notes"`
}

// Ship marks a redemption as shipped.
func (h *GiftHandler) Ship(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body shipRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	redemption, errShip := h.svc.Loyalty.MarkShipped(c.Request.Context(), id, body.TrackingNumber, body.Notes)
	if errShip != nil {
		api.RespondError(c, errShip, "ship redemption failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatRedemption(redemption))
}
