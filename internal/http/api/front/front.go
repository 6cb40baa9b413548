// Package front registers the customer-facing API.
package front

import (
	"github.com/elostora/shop/internal/http/api"
	handlers "github.com/elostora/shop/internal/http/api/front/handlers"
	"github.com/elostora/shop/internal/ratelimit"
	"github.com/elostora/shop/internal/security"
	"github.com/gin-gonic/gin"
)

// RegisterFrontRoutes registers public and signed-in customer routes under /v0.
func RegisterFrontRoutes(r *gin.Engine, svc *api.Services) {
	if r == nil || svc == nil || svc.DB == nil {
		return
	}

	frontGroup := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(svc)
	frontGroup.POST("/register", authHandler.Register)
	frontGroup.POST("/login", api.RateLimit(svc.Limiter, ratelimit.ActionLogin), authHandler.Login)
	frontGroup.POST("/password-reset", api.RateLimit(svc.Limiter, ratelimit.ActionLogin), authHandler.RequestPasswordReset)
	frontGroup.POST("/password-reset/verify", authHandler.VerifyResetCode)
	frontGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)

	catalogHandler := handlers.NewCatalogFrontHandler(svc)
	frontGroup.GET("/categories", catalogHandler.Categories)
	frontGroup.GET("/products", catalogHandler.Products)
	frontGroup.GET("/products/:id", catalogHandler.Product)
	frontGroup.GET("/search", catalogHandler.Search)
	frontGroup.GET("/search/suggestions", catalogHandler.Suggestions)
	frontGroup.GET("/events", catalogHandler.Events)
	frontGroup.GET("/events/:id", catalogHandler.Event)

	giftHandler := handlers.NewGiftFrontHandler(svc)
	frontGroup.GET("/gifts", giftHandler.List)

	blogHandler := handlers.NewBlogFrontHandler(svc)
	frontGroup.GET("/posts", blogHandler.List)
	frontGroup.GET("/posts/:slug", blogHandler.Get)

	weatherHandler := handlers.NewWeatherHandler(svc)
	frontGroup.GET("/weather", weatherHandler.Lookup)
	frontGroup.GET("/weather/recent", weatherHandler.Recent)

	authed := frontGroup.Group("")
	authed.Use(api.Authenticate(svc, security.AudienceFront))

	authed.GET("/me", authHandler.Me)
	authed.PUT("/me", authHandler.UpdateMe)

	cartHandler := handlers.NewCartHandler(svc)
	authed.GET("/cart", cartHandler.Get)
	authed.POST("/cart/items", cartHandler.Add)
	authed.PUT("/cart/items/:id", cartHandler.Update)
	authed.DELETE("/cart/items/:id", cartHandler.Remove)
	authed.POST("/cart/coupon", cartHandler.PreviewCoupon)

	orderHandler := handlers.NewOrderFrontHandler(svc)
	authed.POST("/checkout", api.RateLimit(svc.Limiter, ratelimit.ActionCheckout), orderHandler.Checkout)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)
	authed.POST("/orders/:id/confirm", orderHandler.ConfirmPayment)
	authed.POST("/orders/:id/pay-with-balance", orderHandler.PayWithBalance)

	walletHandler := handlers.NewWalletHandler(svc)
	authed.POST("/wallet/deposit", walletHandler.Deposit)
	authed.GET("/wallet/history", walletHandler.History)

	authed.POST("/gifts/:id/redeem", giftHandler.Redeem)
	authed.GET("/redemptions", giftHandler.Redemptions)
}
