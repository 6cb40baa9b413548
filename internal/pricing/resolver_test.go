package pricing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "pricing.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func createCategory(t *testing.T, conn *gorm.DB, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name, Slug: name}
	if errCreate := conn.Create(&category).Error; errCreate != nil {
		t.Fatalf("create category: %v", errCreate)
	}
	return category
}

func createEvent(t *testing.T, conn *gorm.DB, category models.Category, pct int, active bool, start time.Time) models.Event {
	t.Helper()
	event := models.Event{
		UID:                uuid.NewString(),
		Name:               "event",
		Type:               models.EventTypeSale,
		EventDate:          start,
		DiscountPercentage: pct,
		IsActive:           active,
		Status:             models.EventStatusLive,
		Categories:         []models.Category{category},
	}
	if errCreate := conn.Create(&event).Error; errCreate != nil {
		t.Fatalf("create event: %v", errCreate)
	}
	return event
}

func TestDiscountedPriceSingleEvent(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	category := createCategory(t, conn, "shirts")
	event := createEvent(t, conn, category, 20, true, now.Add(-time.Hour))

	r := NewResolver(conn, nil)
	discount, errDiscount := r.ActiveDiscountForCategory(ctx, &category.ID, now)
	if errDiscount != nil {
		t.Fatalf("discount: %v", errDiscount)
	}
	if discount.Percentage != 20 || discount.EventID != event.ID {
		t.Fatalf("expected 20%% from event %d, got %+v", event.ID, discount)
	}
	price, errPrice := r.DiscountedPrice(ctx, decimal.RequireFromString("100.00"), &category.ID, now)
	if errPrice != nil {
		t.Fatalf("price: %v", errPrice)
	}
	if !price.Equal(decimal.RequireFromString("80.00")) {
		t.Fatalf("expected 80.00, got %s", price)
	}
}

func TestDiscountedPriceTakesMaximum(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	category := createCategory(t, conn, "shoes")
	createEvent(t, conn, category, 10, true, now.Add(-time.Hour))
	createEvent(t, conn, category, 30, true, now.Add(-time.Minute))

	r := NewResolver(conn, nil)
	price, errPrice := r.DiscountedPrice(ctx, decimal.RequireFromString("50.00"), &category.ID, now)
	if errPrice != nil {
		t.Fatalf("price: %v", errPrice)
	}
	if !price.Equal(decimal.RequireFromString("35.00")) {
		t.Fatalf("expected 35.00, got %s", price)
	}
}

func TestInactiveEventLeavesPriceUnchanged(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	category := createCategory(t, conn, "hats")
	createEvent(t, conn, category, 40, false, now.Add(-time.Hour))
	other := createCategory(t, conn, "bags")
	createEvent(t, conn, other, 50, true, now.Add(-time.Hour))

	r := NewResolver(conn, nil)
	price, errPrice := r.DiscountedPrice(ctx, decimal.RequireFromString("12.50"), &category.ID, now)
	if errPrice != nil {
		t.Fatalf("price: %v", errPrice)
	}
	if !price.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected base price, got %s", price)
	}
	unset, errUnset := r.DiscountedPrice(ctx, decimal.RequireFromString("7"), nil, now)
	if errUnset != nil || !unset.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected nil category to keep price, got %s (%v)", unset, errUnset)
	}
}

func TestCartLineSubtotal(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	category := createCategory(t, conn, "socks")
	createEvent(t, conn, category, 25, true, now.Add(-time.Hour))
	product := models.Product{Name: "Sock", Price: decimal.RequireFromString("8.00"), CategoryID: &category.ID}

	r := NewResolver(conn, nil)
	subtotal, errSubtotal := r.CartLineSubtotal(ctx, product, 3, now)
	if errSubtotal != nil {
		t.Fatalf("subtotal: %v", errSubtotal)
	}
	if !subtotal.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("expected 18.00, got %s", subtotal)
	}
}

func TestCacheServesWithinMinuteUntilPurged(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	category := createCategory(t, conn, "coats")
	event := createEvent(t, conn, category, 20, true, now.Add(-time.Hour))

	cache := NewCache(nil, "test", func() bool { return true })
	r := NewResolver(conn, cache)
	if _, errDiscount := r.ActiveDiscountForCategory(ctx, &category.ID, now); errDiscount != nil {
		t.Fatalf("discount: %v", errDiscount)
	}
	if errUpdate := conn.Model(&models.Event{}).Where("id = ?", event.ID).Update("is_active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate: %v", errUpdate)
	}

	cached, _ := r.ActiveDiscountForCategory(ctx, &category.ID, now)
	if cached.Percentage != 20 {
		t.Fatalf("expected cached 20%%, got %d", cached.Percentage)
	}
	r.Invalidate(ctx)
	fresh, _ := r.ActiveDiscountForCategory(ctx, &category.ID, now)
	if fresh.Percentage != 0 {
		t.Fatalf("expected 0%% after purge, got %d", fresh.Percentage)
	}
}

func TestDisabledCacheIsBypassed(t *testing.T) {
	cache := NewCache(nil, "", func() bool { return false })
	cache.Set(context.Background(), 1, time.Now(), Discount{Percentage: 10})
	if _, ok := cache.Get(context.Background(), 1, time.Now()); ok {
		t.Fatalf("expected disabled cache to miss")
	}
	var nilCache *Cache
	if _, ok := nilCache.Get(context.Background(), 1, time.Now()); ok {
		t.Fatalf("expected nil cache to miss")
	}
}
