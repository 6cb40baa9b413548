package handlers

import (
	"net/http"
	"time"

	"github.com/elostora/shop/internal/coupons"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponHandler manages coupon codes.
type CouponHandler struct {
	db *gorm.DB
}

// NewCouponHandler constructs a CouponHandler.
func NewCouponHandler(db *gorm.DB) *CouponHandler {
	return &CouponHandler{db: db}
}

// couponRequest is the writable part of a coupon.
type couponRequest struct {
	Code          string            `json:"code"`
	DiscountType  models.CouponType `json:"discount_type"`
	Value         decimal.Decimal   `json:"value"`
	MinOrderTotal decimal.Decimal   `json:"min_order_total"`
	MaxUses       int               `json:"max_uses"`
	IsActive      bool              `json:"is_active"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

func validateCoupon(body *couponRequest) string {
	body.Code = coupons.NormalizeCode(body.Code)
	if body.Code == "" {
		return "missing code"
	}
	switch body.DiscountType {
	case models.CouponTypePercentage:
		if body.Value.GreaterThan(decimal.NewFromInt(100)) {
			return "percentage must not exceed 100"
		}
	case models.CouponTypeFixed:
	default:
		return "invalid discount type"
	}
	if !body.Value.IsPositive() {
		return "value must be positive"
	}
	if body.MinOrderTotal.IsNegative() {
		return "min order total must not be negative"
	}
	if body.MaxUses <= 0 {
		return "max uses must be positive"
	}
	if body.ExpiresAt.IsZero() {
		return "missing expires_at"
	}
	return ""
}

// Create stores a coupon.
func (h *CouponHandler) Create(c *gin.Context) {
	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := validateCoupon(&body); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	ctx := c.Request.Context()
	if _, errLookup := coupons.Lookup(ctx, h.db, body.Code); errLookup == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
		return
	}
	coupon := models.Coupon{
		Code:          body.Code,
		DiscountType:  body.DiscountType,
		Value:         body.Value.Round(2),
		MinOrderTotal: body.MinOrderTotal.Round(2),
		MaxUses:       body.MaxUses,
		IsActive:      body.IsActive,
		ExpiresAt:     body.ExpiresAt.UTC(),
	}
	if errCreate := h.db.WithContext(ctx).Create(&coupon).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create coupon failed"})
		return
	}
	c.JSON(http.StatusCreated, formatCoupon(coupon))
}

// List returns all coupons, newest first.
func (h *CouponHandler) List(c *gin.Context) {
	var rows []models.Coupon
	if errFind := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Order("id DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list coupons failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatCoupon(row))
	}
	c.JSON(http.StatusOK, gin.H{"coupons": out})
}

// Update replaces the writable fields of a coupon. The used count is kept.
func (h *CouponHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := validateCoupon(&body); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	ctx := c.Request.Context()
	var count int64
	if errCount := h.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("code = ? AND id <> ?", body.Code, id).Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
		return
	}
	res := h.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Updates(map[string]any{
		"code":            body.Code,
		"discount_type":   body.DiscountType,
		"value":           body.Value.Round(2),
		"min_order_total": body.MinOrderTotal.Round(2),
		"max_uses":        body.MaxUses,
		"is_active":       body.IsActive,
		"expires_at":      body.ExpiresAt.UTC(),
	})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update coupon failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var coupon models.Coupon
	if errFind := h.db.WithContext(ctx).First(&coupon, id).Error; errFind != nil {
		respondFind(c, errFind, "coupon")
		return
	}
	c.JSON(http.StatusOK, formatCoupon(coupon))
}

// Delete removes a coupon.
func (h *CouponHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Coupon{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// formatCoupon formats a coupon row into response JSON.
func formatCoupon(coupon models.Coupon) gin.H {
	return gin.H{
		"id":              coupon.ID,
		"code":            coupon.Code,
		"discount_type":   coupon.DiscountType,
		"value":           coupon.Value,
		"min_order_total": coupon.MinOrderTotal,
		"max_uses":        coupon.MaxUses,
		"used_count":      coupon.UsedCount,
		"is_active":       coupon.IsActive,
		"expires_at":      coupon.ExpiresAt,
		"created_at":      coupon.CreatedAt,
	}
}
