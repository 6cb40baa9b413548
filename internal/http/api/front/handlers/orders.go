package handlers

import (
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/shop"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// OrderFrontHandler handles checkout and the account's own orders.
type OrderFrontHandler struct {
	svc *api.Services
}

// NewOrderFrontHandler constructs an OrderFrontHandler.
func NewOrderFrontHandler(svc *api.Services) *OrderFrontHandler {
	return &OrderFrontHandler{svc: svc}
}

// Checkout turns the cart into a pending order.
func (h *OrderFrontHandler) Checkout(c *gin.Context) {
	accountID := api.AccountID(c)
	var body shop.CheckoutInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	order, errCheckout := h.svc.Shop.Checkout(c.Request.Context(), accountID, body)
	if errCheckout != nil {
		api.RespondError(c, errCheckout, "checkout failed")
		return
	}
	log.WithFields(log.Fields{
		"account_id": accountID,
		"order_id":   order.ID,
		"final":      order.FinalTotal.String(),
	}).Info("order placed")
	c.JSON(http.StatusCreated, api.FormatOrder(order))
}

// List returns the account's orders, optionally filtered by status.
func (h *OrderFrontHandler) List(c *gin.Context) {
	accountID := api.AccountID(c)
	filter := shop.OrderFilter{
		AccountID: &accountID,
		Limit:     api.QueryInt(c, "limit", 20),
		Offset:    api.QueryInt(c, "offset", 0),
	}
	if statusQ := strings.TrimSpace(c.Query("status")); statusQ != "" {
		status := models.OrderStatus(strings.ToLower(statusQ))
		if models.IsValidOrderStatus(status) {
			filter.Status = status
		}
	}
	orders, errList := h.svc.Shop.ListOrders(c.Request.Context(), filter)
	if errList != nil {
		api.RespondError(c, errList, "list orders failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": api.FormatOrders(orders)})
}

// Get returns one of the account's orders.
func (h *OrderFrontHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	accountID := api.AccountID(c)
	order, errGet := h.svc.Shop.GetOrder(c.Request.Context(), id, &accountID)
	if errGet != nil {
		api.RespondError(c, errGet, "load order failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}

// Cancel cancels one of the account's pending orders.
func (h *OrderFrontHandler) Cancel(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	order, errCancel := h.svc.Shop.CancelOwnOrder(c.Request.Context(), api.AccountID(c), id)
	if errCancel != nil {
		api.RespondError(c, errCancel, "cancel order failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}

// ConfirmPayment marks an order as paid and credits loyalty points.
func (h *OrderFrontHandler) ConfirmPayment(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	order, errConfirm := h.svc.Shop.ConfirmPayment(c.Request.Context(), api.AccountID(c), id)
	if errConfirm != nil {
		api.RespondError(c, errConfirm, "confirm payment failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}

// PayWithBalance settles an order from the wallet.
func (h *OrderFrontHandler) PayWithBalance(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	order, errPay := h.svc.Shop.PayWithBalance(c.Request.Context(), api.AccountID(c), id)
	if errPay != nil {
		api.RespondError(c, errPay, "pay with balance failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatOrder(order))
}
