// Package api holds the pieces shared by the admin and front routers:
// the service bundle, identity middleware, rate limiting and request logging.
package api

import (
	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/blog"
	"github.com/elostora/shop/internal/config"
	"github.com/elostora/shop/internal/events"
	"github.com/elostora/shop/internal/loyalty"
	"github.com/elostora/shop/internal/pricing"
	"github.com/elostora/shop/internal/ratelimit"
	"github.com/elostora/shop/internal/shop"
	"github.com/elostora/shop/internal/weather"
	"gorm.io/gorm"
)

// Services bundles the dependencies the HTTP handlers are wired to.
type Services struct {
	DB       *gorm.DB
	JWT      config.JWTConfig
	Access   *access.Resolver
	Accounts *accounts.Service
	Pricing  *pricing.Resolver
	Shop     *shop.Service
	Events   *events.Service
	Loyalty  *loyalty.Service
	Blog     *blog.Service
	Weather  *weather.Client
	Limiter  *ratelimit.Manager
}
