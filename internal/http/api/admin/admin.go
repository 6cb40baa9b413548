package admin

import (
	"net/http"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/http/api"
	handlers "github.com/elostora/shop/internal/http/api/admin/handlers"
	"github.com/elostora/shop/internal/http/api/admin/permissions"
	"github.com/elostora/shop/internal/ratelimit"
	"github.com/elostora/shop/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, svc *api.Services) {
	if r == nil || svc == nil || svc.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(svc.DB)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(svc)
	adminGroup.POST("/login", api.RateLimit(svc.Limiter, ratelimit.ActionLogin), authHandler.Login)

	selfAuthed := adminGroup.Group("")
	selfAuthed.Use(api.Authenticate(svc, security.AudienceAdmin))
	selfAuthed.Use(api.RequireTier(access.TierManager))

	mfaHandler := handlers.NewMFAHandler(svc)
	selfAuthed.GET("/mfa/status", mfaHandler.Status)
	selfAuthed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	selfAuthed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	selfAuthed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	authed := adminGroup.Group("")
	authed.Use(api.Authenticate(svc, security.AudienceAdmin))
	authed.Use(api.RequireTier(access.TierManager))
	authed.Use(adminPermissionMiddleware())

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)

	accountHandler := handlers.NewAccountHandler(svc)
	authed.GET("/accounts", accountHandler.List)
	authed.POST("/accounts", accountHandler.Create)
	authed.GET("/accounts/:id", accountHandler.Get)
	authed.PUT("/accounts/:id", accountHandler.Update)
	authed.DELETE("/accounts/:id", accountHandler.Delete)
	authed.PUT("/accounts/:id/password", accountHandler.ChangePassword)
	authed.POST("/accounts/:id/promote", accountHandler.Promote)
	authed.POST("/accounts/:id/demote", accountHandler.Demote)

	roleGroupHandler := handlers.NewRoleGroupHandler(svc.DB)
	authed.GET("/role-groups", roleGroupHandler.List)

	catalogHandler := handlers.NewCatalogHandler(svc)
	authed.POST("/categories", catalogHandler.CreateCategory)
	authed.GET("/categories", catalogHandler.ListCategories)
	authed.PUT("/categories/:id", catalogHandler.UpdateCategory)
	authed.DELETE("/categories/:id", catalogHandler.DeleteCategory)
	authed.POST("/categories/:id/subcategories", catalogHandler.CreateSubcategory)
	authed.DELETE("/subcategories/:id", catalogHandler.DeleteSubcategory)
	authed.POST("/products", catalogHandler.CreateProduct)
	authed.GET("/products", catalogHandler.ListProducts)
	authed.GET("/products/:id", catalogHandler.GetProduct)
	authed.PUT("/products/:id", catalogHandler.UpdateProduct)
	authed.DELETE("/products/:id", catalogHandler.DeleteProduct)
	authed.PUT("/products/:id/sizes", catalogHandler.SetSizes)

	eventHandler := handlers.NewEventHandler(svc)
	authed.POST("/events", eventHandler.Create)
	authed.GET("/events", eventHandler.List)
	authed.GET("/events/:id", eventHandler.Get)
	authed.PUT("/events/:id", eventHandler.Update)
	authed.DELETE("/events/:id", eventHandler.Delete)

	orderHandler := handlers.NewOrderHandler(svc)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.POST("/orders/:id/status", orderHandler.SetStatus)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)

	couponHandler := handlers.NewCouponHandler(svc.DB)
	authed.POST("/coupons", couponHandler.Create)
	authed.GET("/coupons", couponHandler.List)
	authed.PUT("/coupons/:id", couponHandler.Update)
	authed.DELETE("/coupons/:id", couponHandler.Delete)

	giftHandler := handlers.NewGiftHandler(svc)
	authed.POST("/gifts", giftHandler.Create)
	authed.GET("/gifts", giftHandler.List)
	authed.PUT("/gifts/:id", giftHandler.Update)
	authed.DELETE("/gifts/:id", giftHandler.Delete)
	authed.GET("/redemptions", giftHandler.Redemptions)
	authed.POST("/redemptions/:id/ship", giftHandler.Ship)

	postHandler := handlers.NewPostHandler(svc)
	authed.POST("/posts", postHandler.Create)
	authed.GET("/posts", postHandler.List)
	authed.PUT("/posts/:id", postHandler.Update)
	authed.DELETE("/posts/:id", postHandler.Delete)
	authed.GET("/blog-categories", postHandler.ListCategories)
	authed.POST("/blog-categories", postHandler.CreateCategory)

	settingHandler := handlers.NewSettingHandler(svc)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// adminPermissionMiddleware enforces the minimum tier of the matched route.
func adminPermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := permissions.Key(c.Request.Method, c.FullPath())
		tier := api.Tier(c)
		if !permissions.Allowed(tier, key) {
			log.WithFields(log.Fields{
				"permission": key,
				"tier":       tier.String(),
				"account_id": api.AccountID(c),
			}).Warn("admin permission denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
