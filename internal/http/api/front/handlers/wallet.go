package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/http/api"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler exposes the account balance.
type WalletHandler struct {
	svc *api.Services
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(svc *api.Services) *WalletHandler {
	return &WalletHandler{svc: svc}
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit credits the wallet.
func (h *WalletHandler) Deposit(c *gin.Context) {
	var body depositRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	profile, errDeposit := h.svc.Shop.Deposit(c.Request.Context(), api.AccountID(c), body.Amount)
	if errDeposit != nil {
		api.RespondError(c, errDeposit, "deposit failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": profile.Balance, "points": profile.Points})
}

// History lists recent wallet movements.
func (h *WalletHandler) History(c *gin.Context) {
	rows, errHistory := h.svc.Shop.History(c.Request.Context(), api.AccountID(c), api.QueryInt(c, "limit", 50))
	if errHistory != nil {
		api.RespondError(c, errHistory, "load history failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.FormatTransaction(row))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}
