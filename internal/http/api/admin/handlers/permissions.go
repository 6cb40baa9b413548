package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/http/api/admin/permissions"
	"github.com/gin-gonic/gin"
)

// PermissionHandler exposes the admin route catalogue.
type PermissionHandler struct{}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// List returns every route definition and the keys the caller's tier may use.
func (h *PermissionHandler) List(c *gin.Context) {
	tier := api.Tier(c)
	c.JSON(http.StatusOK, gin.H{
		"permissions": permissions.Definitions(),
		"tier":        tier.String(),
		"allowed":     permissions.KeysFor(tier),
	})
}
