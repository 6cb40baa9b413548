package handlers

import (
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/shop"
	"github.com/gin-gonic/gin"
)

// OrderHandler lets staff follow and move orders.
type OrderHandler struct {
	svc *api.Services
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(svc *api.Services) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// List returns orders, optionally filtered by status or account.
func (h *OrderHandler) List(c *gin.Context) {
	filter := shop.OrderFilter{
		AccountID: api.QueryID(c, "account_id"),
		Limit:     api.QueryInt(c, "limit", 50),
		Offset:    api.QueryInt(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.OrderStatus(strings.ToLower(raw))
		if !models.IsValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = status
	}
	orders, errList := h.svc.Shop.ListOrders(c.Request.Context(), filter)
	if errList != nil {
		api.RespondError(c, errList, "list orders failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": api.FormatOrders(orders)})
}

// Get returns one order.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	order, errGet := h.svc.Shop.GetOrder(c.Request.Context(), id, nil)
	if errGet != nil {
		api.RespondError(c, errGet, "load order failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus moves an order along the configured status flow.
func (h *OrderHandler) SetStatus(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body statusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	to := models.OrderStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	if !models.IsValidOrderStatus(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	order, errTransition := h.svc.Shop.TransitionStatus(c.Request.Context(), id, to)
	if errTransition != nil {
		api.RespondError(c, errTransition, "update order status failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}

// Cancel cancels an order, restocking and refunding as needed.
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	order, errCancel := h.svc.Shop.CancelOrder(c.Request.Context(), id)
	if errCancel != nil {
		api.RespondError(c, errCancel, "cancel order failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}
