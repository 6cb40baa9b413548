// Package shop implements carts, checkout, orders, payments and the wallet.
package shop

import (
	"errors"
	"time"

	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/pricing"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound         = errors.New("shop: product not found")
	ErrSizeRequired            = errors.New("shop: size is required for this product")
	ErrSizeUnavailable         = errors.New("shop: size not available")
	ErrOutOfStock              = errors.New("shop: out of stock")
	ErrInvalidQuantity         = errors.New("shop: quantity must be positive")
	ErrCartItemNotFound        = errors.New("shop: cart item not found")
	ErrEmptyCart               = errors.New("shop: cart is empty")
	ErrAddressRequired         = errors.New("shop: delivery address is required")
	ErrInvalidPaymentMethod    = errors.New("shop: invalid payment method")
	ErrPendingOrder            = errors.New("shop: a recent order is awaiting payment")
	ErrOrderNotFound           = errors.New("shop: order not found")
	ErrInvalidStatusTransition = errors.New("shop: invalid status transition")
	ErrOrderNotCancellable     = errors.New("shop: order cannot be cancelled")
	ErrOrderNotPayable         = errors.New("shop: order is not awaiting payment")
	ErrInsufficientBalance     = errors.New("shop: insufficient balance")
	ErrInvalidAmount           = errors.New("shop: amount must be positive")
)

// Config holds checkout tunables.
type Config struct {
	// DeliveryFeeRate is applied to the cart subtotal.
	DeliveryFeeRate decimal.Decimal
	// PendingGracePeriod blocks a new checkout while a younger pending order exists.
	PendingGracePeriod time.Duration
	// PendingExpiry is the age after which the scheduler cancels unpaid orders.
	PendingExpiry time.Duration
	// PointsPerCurrencyUnit is the final-total amount worth one loyalty point.
	PointsPerCurrencyUnit int64
	// StatusFlow lists the statuses each status may move to.
	StatusFlow map[models.OrderStatus][]models.OrderStatus
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		DeliveryFeeRate:       decimal.RequireFromString("0.05"),
		PendingGracePeriod:    30 * time.Second,
		PendingExpiry:         10 * time.Minute,
		PointsPerCurrencyUnit: 10,
		StatusFlow: map[models.OrderStatus][]models.OrderStatus{
			models.OrderStatusPending:    {models.OrderStatusPaid, models.OrderStatusCancelled},
			models.OrderStatusPaid:       {models.OrderStatusProcessing, models.OrderStatusCancelled},
			models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
			models.OrderStatusShipped:    {models.OrderStatusDelivered},
		},
	}
}

// StatusFlowFromStrings converts a configured string map, ignoring unknown statuses.
func StatusFlowFromStrings(raw map[string][]string) map[models.OrderStatus][]models.OrderStatus {
	flow := make(map[models.OrderStatus][]models.OrderStatus, len(raw))
	for from, targets := range raw {
		fromStatus := models.OrderStatus(from)
		if !models.IsValidOrderStatus(fromStatus) {
			continue
		}
		for _, to := range targets {
			toStatus := models.OrderStatus(to)
			if models.IsValidOrderStatus(toStatus) {
				flow[fromStatus] = append(flow[fromStatus], toStatus)
			}
		}
	}
	return flow
}

// CanTransition reports whether the flow allows from -> to.
func (c Config) CanTransition(from, to models.OrderStatus) bool {
	for _, allowed := range c.StatusFlow[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Service wires the shop flows to storage and the discount resolver.
type Service struct {
	db      *gorm.DB
	pricing *pricing.Resolver
	cfg     Config
	now     func() time.Time
}

// NewService builds a Service. Zero-valued config fields fall back to DefaultConfig.
func NewService(db *gorm.DB, resolver *pricing.Resolver, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.DeliveryFeeRate.IsNegative() {
		cfg.DeliveryFeeRate = def.DeliveryFeeRate
	}
	if cfg.PendingGracePeriod <= 0 {
		cfg.PendingGracePeriod = def.PendingGracePeriod
	}
	if cfg.PendingExpiry <= 0 {
		cfg.PendingExpiry = def.PendingExpiry
	}
	if cfg.PointsPerCurrencyUnit <= 0 {
		cfg.PointsPerCurrencyUnit = def.PointsPerCurrencyUnit
	}
	if len(cfg.StatusFlow) == 0 {
		cfg.StatusFlow = def.StatusFlow
	}
	if resolver == nil {
		resolver = pricing.NewResolver(db, nil)
	}
	return &Service{db: db, pricing: resolver, cfg: cfg, now: time.Now}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Now returns the service clock in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}
