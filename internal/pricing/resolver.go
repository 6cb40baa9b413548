package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/elostora/shop/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Resolver loads category events and prices products with them.
type Resolver struct {
	db    *gorm.DB
	cache *Cache
}

// NewResolver builds a Resolver. cache may be nil.
func NewResolver(db *gorm.DB, cache *Cache) *Resolver {
	return &Resolver{db: db, cache: cache}
}

// WithTx returns a Resolver reading through tx and sharing the cache.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	return &Resolver{db: tx, cache: r.cache}
}

// ActiveDiscountForCategory returns the best live discount for the category at now.
// A nil category has no discount.
func (r *Resolver) ActiveDiscountForCategory(ctx context.Context, categoryID *uint64, now time.Time) (Discount, error) {
	if categoryID == nil || *categoryID == 0 {
		return Discount{}, nil
	}
	if cached, ok := r.cache.Get(ctx, *categoryID, now); ok {
		return cached, nil
	}

	var events []models.Event
	if errFind := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Joins("JOIN event_categories ON event_categories.event_id = events.id").
		Where("event_categories.category_id = ?", *categoryID).
		Where("events.is_active = ? AND events.status = ? AND events.event_date <= ?", true, models.EventStatusLive, now).
		Order("events.id ASC").
		Find(&events).Error; errFind != nil {
		return Discount{}, fmt.Errorf("pricing: load events for category %d: %w", *categoryID, errFind)
	}

	discount := discountFromEvent(BestDiscount(events, now))
	r.cache.Set(ctx, *categoryID, now, discount)
	return discount, nil
}

// DiscountedPrice applies the category discount to base.
func (r *Resolver) DiscountedPrice(ctx context.Context, base decimal.Decimal, categoryID *uint64, now time.Time) (decimal.Decimal, error) {
	if categoryID == nil {
		return base, nil
	}
	discount, errDiscount := r.ActiveDiscountForCategory(ctx, categoryID, now)
	if errDiscount != nil {
		return decimal.Decimal{}, errDiscount
	}
	return ApplyPercentage(base, discount.Percentage), nil
}

// CartLineSubtotal prices qty units of product.
func (r *Resolver) CartLineSubtotal(ctx context.Context, product models.Product, qty int, now time.Time) (decimal.Decimal, error) {
	unit, errPrice := r.DiscountedPrice(ctx, product.Price, product.CategoryID, now)
	if errPrice != nil {
		return decimal.Decimal{}, errPrice
	}
	return unit.Mul(decimal.NewFromInt(int64(qty))), nil
}

// Quote returns the display quote for product.
func (r *Resolver) Quote(ctx context.Context, product models.Product, now time.Time) (Quote, error) {
	discount, errDiscount := r.ActiveDiscountForCategory(ctx, product.CategoryID, now)
	if errDiscount != nil {
		return Quote{}, errDiscount
	}
	return NewQuote(product.Price, discount), nil
}

// Invalidate drops cached discounts, e.g. after an event was edited.
func (r *Resolver) Invalidate(ctx context.Context) {
	r.cache.Purge(ctx)
}
