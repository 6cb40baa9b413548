package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/blog"
	"github.com/elostora/shop/internal/coupons"
	"github.com/elostora/shop/internal/events"
	"github.com/elostora/shop/internal/loyalty"
	"github.com/elostora/shop/internal/shop"
	"github.com/elostora/shop/internal/weather"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type errorStatus struct {
	err    error
	status int
}

// errorStatuses maps domain sentinels to HTTP status codes.
var errorStatuses = []errorStatus{
	{accounts.ErrUsernameRequired, http.StatusBadRequest},
	{accounts.ErrUsernameTaken, http.StatusConflict},
	{accounts.ErrEmailTaken, http.StatusConflict},
	{accounts.ErrReservedUsername, http.StatusBadRequest},
	{accounts.ErrWeakPassword, http.StatusBadRequest},
	{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
	{accounts.ErrAccountBlocked, http.StatusForbidden},
	{accounts.ErrAccountNotFound, http.StatusNotFound},
	{accounts.ErrInvalidResetCode, http.StatusBadRequest},
	{accounts.ErrResetCodeExpired, http.StatusBadRequest},
	{accounts.ErrForbidden, http.StatusForbidden},

	{access.ErrAccountNotFound, http.StatusNotFound},
	{access.ErrProtectedAccount, http.StatusForbidden},

	{shop.ErrProductNotFound, http.StatusNotFound},
	{shop.ErrSizeRequired, http.StatusBadRequest},
	{shop.ErrSizeUnavailable, http.StatusBadRequest},
	{shop.ErrOutOfStock, http.StatusConflict},
	{shop.ErrInvalidQuantity, http.StatusBadRequest},
	{shop.ErrCartItemNotFound, http.StatusNotFound},
	{shop.ErrEmptyCart, http.StatusBadRequest},
	{shop.ErrAddressRequired, http.StatusBadRequest},
	{shop.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{shop.ErrPendingOrder, http.StatusConflict},
	{shop.ErrOrderNotFound, http.StatusNotFound},
	{shop.ErrInvalidStatusTransition, http.StatusConflict},
	{shop.ErrOrderNotCancellable, http.StatusConflict},
	{shop.ErrOrderNotPayable, http.StatusConflict},
	{shop.ErrInsufficientBalance, http.StatusPaymentRequired},
	{shop.ErrInvalidAmount, http.StatusBadRequest},

	{coupons.ErrCouponNotFound, http.StatusNotFound},
	{coupons.ErrCouponInvalid, http.StatusBadRequest},

	{loyalty.ErrGiftNotFound, http.StatusNotFound},
	{loyalty.ErrGiftInactive, http.StatusConflict},
	{loyalty.ErrOutOfStock, http.StatusConflict},
	{loyalty.ErrInsufficientPoints, http.StatusPaymentRequired},
	{loyalty.ErrRedemptionNotFound, http.StatusNotFound},
	{loyalty.ErrTrackingRequired, http.StatusBadRequest},

	{events.ErrEventNotFound, http.StatusNotFound},
	{events.ErrNameRequired, http.StatusBadRequest},
	{events.ErrInvalidPercentage, http.StatusBadRequest},
	{events.ErrInvalidType, http.StatusBadRequest},
	{events.ErrInvalidStatus, http.StatusBadRequest},
	{events.ErrInvalidWindow, http.StatusBadRequest},

	{blog.ErrPostNotFound, http.StatusNotFound},
	{blog.ErrTitleRequired, http.StatusBadRequest},
	{blog.ErrContentRequired, http.StatusBadRequest},
	{blog.ErrCategoryNotFound, http.StatusNotFound},

	{weather.ErrCityRequired, http.StatusBadRequest},
	{weather.ErrNotConfigured, http.StatusServiceUnavailable},
	{weather.ErrCityNotFound, http.StatusNotFound},
	{weather.ErrUnavailable, http.StatusBadGateway},
}

// RespondError writes the status and message of a known domain error.
// Unknown errors are logged and answered with 500 and fallback.
func RespondError(c *gin.Context, err error, fallback string) {
	for _, known := range errorStatuses {
		if errors.Is(err, known.err) {
			c.JSON(known.status, gin.H{"error": publicMessage(known.err)})
			return
		}
	}
	log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// publicMessage drops the "pkg: " prefix of a sentinel.
func publicMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
