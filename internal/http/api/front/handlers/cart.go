package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/coupons"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/gin-gonic/gin"
)

// CartHandler manages the signed-in account's cart.
type CartHandler struct {
	svc *api.Services
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(svc *api.Services) *CartHandler {
	return &CartHandler{svc: svc}
}

// Get returns the priced cart.
func (h *CartHandler) Get(c *gin.Context) {
	summary, errSummary := h.svc.Shop.CartSummary(c.Request.Context(), api.AccountID(c))
	if errSummary != nil {
		api.RespondError(c, errSummary, "load cart failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

type addToCartRequest struct {
	ProductID uint64 `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// Add puts a product into the cart. Quantities above stock are clamped.
func (h *CartHandler) Add(c *gin.Context) {
	var body addToCartRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	result, errAdd := h.svc.Shop.AddToCart(c.Request.Context(), api.AccountID(c), body.ProductID, body.Size, body.Quantity)
	if errAdd != nil {
		api.RespondError(c, errAdd, "add to cart failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item":      formatCartItem(result.Item),
		"clamped":   result.Clamped,
		"available": result.Available,
	})
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

// Update sets a cart line quantity. Zero removes the line.
func (h *CartHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body updateCartRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	result, errUpdate := h.svc.Shop.UpdateCartItem(c.Request.Context(), api.AccountID(c), id, body.Quantity)
	if errUpdate != nil {
		api.RespondError(c, errUpdate, "update cart failed")
		return
	}
	out := gin.H{"removed": result.Removed, "clamped": result.Clamped}
	if result.Item != nil {
		out["item"] = formatCartItem(*result.Item)
	}
	c.JSON(http.StatusOK, out)
}

// Remove deletes a cart line.
func (h *CartHandler) Remove(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	if errRemove := h.svc.Shop.RemoveCartItem(c.Request.Context(), api.AccountID(c), id); errRemove != nil {
		api.RespondError(c, errRemove, "remove cart item failed")
		return
	}
	c.Status(http.StatusNoContent)
}

type couponPreviewRequest struct {
	Code string `json:"code"`
}

// PreviewCoupon shows what a coupon would take off the current cart.
func (h *CartHandler) PreviewCoupon(c *gin.Context) {
	var body couponPreviewRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	summary, errSummary := h.svc.Shop.CartSummary(ctx, api.AccountID(c))
	if errSummary != nil {
		api.RespondError(c, errSummary, "load cart failed")
		return
	}
	coupon, discount, errPreview := coupons.Preview(ctx, h.svc.DB, body.Code, summary.Subtotal, h.svc.Shop.Now())
	if errPreview != nil {
		api.RespondError(c, errPreview, "preview coupon failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":          coupon.Code,
		"discount_type": coupon.DiscountType,
		"discount":      discount,
		"subtotal":      summary.Subtotal,
		"delivery_fee":  summary.DeliveryFee,
		"final_total":   summary.Subtotal.Sub(discount).Add(summary.DeliveryFee).Round(2),
	})
}

func formatCartItem(item models.CartItem) gin.H {
	return gin.H{
		"id":         item.ID,
		"product_id": item.ProductID,
		"size":       item.Size,
		"quantity":   item.Quantity,
	}
}
