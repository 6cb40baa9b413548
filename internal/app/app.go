package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/blog"
	"github.com/elostora/shop/internal/config"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/events"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/http/api/admin"
	"github.com/elostora/shop/internal/http/api/front"
	"github.com/elostora/shop/internal/jobs"
	"github.com/elostora/shop/internal/loyalty"
	"github.com/elostora/shop/internal/pricing"
	"github.com/elostora/shop/internal/ratelimit"
	internalsettings "github.com/elostora/shop/internal/settings"
	"github.com/elostora/shop/internal/shop"
	"github.com/elostora/shop/internal/watcher"
	"github.com/elostora/shop/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// BuildServices seeds the role groups, loads the settings snapshot and wires
// every domain service onto conn.
func BuildServices(ctx context.Context, conn *gorm.DB, conf config.Config) (*api.Services, error) {
	if conn == nil {
		return nil, fmt.Errorf("app: nil db")
	}
	if _, errGroup := access.EnsureManagersGroup(ctx, conn); errGroup != nil {
		return nil, errGroup
	}
	if errReload := internalsettings.Reload(ctx, conn); errReload != nil {
		return nil, errReload
	}

	var redisClient *redis.Client
	if addr := strings.TrimSpace(conf.Redis.Addr); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
	}

	resolver := access.NewResolver(access.Config{ReservedAdminUsernames: conf.Access.ReservedAdminUsernames})
	pricingResolver := pricing.NewResolver(conn, pricing.NewCache(redisClient, conf.Redis.Prefix, nil))

	shopCfg := shop.Config{
		DeliveryFeeRate:       decimal.NewFromFloat(*conf.Shop.DeliveryFeeRate),
		PendingGracePeriod:    conf.Shop.PendingGracePeriod,
		PendingExpiry:         conf.Shop.PendingExpiry,
		PointsPerCurrencyUnit: conf.Shop.PointsPerCurrencyUnit,
		StatusFlow:            shop.StatusFlowFromStrings(conf.Shop.StatusFlow),
	}

	svc := &api.Services{
		DB:       conn,
		JWT:      conf.JWT,
		Access:   resolver,
		Accounts: accounts.NewService(conn, resolver),
		Pricing:  pricingResolver,
		Shop:     shop.NewService(conn, pricingResolver, shopCfg),
		Events:   events.NewService(conn, pricingResolver),
		Loyalty:  loyalty.NewService(conn),
		Blog:     blog.NewService(conn),
		Weather: weather.NewClient(conn, weather.Options{
			APIKey:            conf.Weather.APIKey,
			BaseURL:           conf.Weather.BaseURL,
			RequestsPerSecond: conf.Weather.RequestsPerSecond,
			Timeout:           conf.Weather.Timeout,
		}),
		Limiter: ratelimit.NewManager(nil, nil, nil),
	}
	return svc, nil
}

// NewEngine builds the gin engine serving the admin and front APIs.
func NewEngine(svc *api.Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(api.RequestLogger())
	admin.RegisterAdminRoutes(engine, svc)
	front.RegisterFrontRoutes(engine, svc)
	return engine
}

// RunServer boots the shop API with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	dsn := conf.DSN()
	if dsn == "" {
		return fmt.Errorf("app: database dsn is not configured")
	}
	if strings.TrimSpace(conf.JWT.Secret) == "" {
		return fmt.Errorf("app: jwt secret is not configured")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	var initState atomic.Bool
	initState.Store(initialized)

	svc, err := BuildServices(ctx, conn, conf)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := NewEngine(svc)
	engine.GET("/v0/init/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, InitStatusResponse{Initialized: initState.Load()})
	})
	engine.GET("/v0/init/prefill", func(c *gin.Context) {
		c.JSON(http.StatusOK, newSetupPrefill(dsn))
	})
	engine.POST("/v0/init/setup", func(c *gin.Context) {
		if ok, errInit := HasAdminInitialized(conn); errInit != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "check admin status failed"})
			return
		} else if ok {
			initState.Store(true)
			c.JSON(http.StatusBadRequest, gin.H{"error": "System already initialized"})
			return
		}

		var req InitRequest
		if errBind := c.ShouldBindJSON(&req); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
			return
		}
		if errValidate := validateAdminRequest(&req); errValidate != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
			return
		}
		if errAdmin := CreateAdminUserWithConn(c.Request.Context(), conn, req.AdminUsername, req.AdminEmail, req.AdminPassword, req.SiteName); errAdmin != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create admin: %v", errAdmin)})
			return
		}
		if errReload := internalsettings.Reload(c.Request.Context(), conn); errReload != nil {
			log.WithError(errReload).Warn("reload settings after init failed")
		}
		initState.Store(true)
		c.JSON(http.StatusOK, gin.H{"message": "Initialization successful"})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	var scheduler *jobs.Scheduler
	if !conf.Jobs.Disabled {
		scheduler = jobs.NewScheduler(svc.Shop, svc.Events, jobs.Specs{
			StaleOrders: conf.Jobs.StaleOrders,
			EventStatus: conf.Jobs.EventStatus,
		})
		if errStart := scheduler.Start(); errStart != nil {
			return errStart
		}
		defer scheduler.Stop()
	}

	dbWatcher := watcher.New(conn, svc.Pricing, conf.Jobs.WatchInterval)
	if errWatch := dbWatcher.Start(ctx); errWatch != nil {
		return errWatch
	}
	defer dbWatcher.Stop()

	port := conf.Port
	if port <= 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf("%s:%d", conf.Host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting shop server on %s with config=%s", addr, configPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}
