package coupons

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestIsValid(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	base := models.Coupon{
		Code:          "SAVE10",
		DiscountType:  models.CouponTypePercentage,
		Value:         dec("10"),
		MinOrderTotal: dec("50"),
		MaxUses:       2,
		IsActive:      true,
		ExpiresAt:     now.Add(time.Hour),
	}

	tests := []struct {
		name   string
		mutate func(c *models.Coupon)
		total  string
		want   bool
	}{
		{"valid", func(*models.Coupon) {}, "60", true},
		{"exactly minimum", func(*models.Coupon) {}, "50", true},
		{"below minimum", func(*models.Coupon) {}, "49.99", false},
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, "60", false},
		{"used up", func(c *models.Coupon) { c.UsedCount = 2 }, "60", false},
		{"expired", func(c *models.Coupon) { c.ExpiresAt = now.Add(-time.Second) }, "60", false},
		{"expires now", func(c *models.Coupon) { c.ExpiresAt = now }, "60", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupon := base
			tt.mutate(&coupon)
			require.Equal(t, tt.want, IsValid(coupon, dec(tt.total), now))
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	pct := models.Coupon{DiscountType: models.CouponTypePercentage, Value: dec("15")}
	require.True(t, CalculateDiscount(pct, dec("33.33")).Equal(dec("5")))

	fixed := models.Coupon{DiscountType: models.CouponTypeFixed, Value: dec("25")}
	require.True(t, CalculateDiscount(fixed, dec("100")).Equal(dec("25")))
	require.True(t, CalculateDiscount(fixed, dec("20")).Equal(dec("20")))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "coupons.db"))
	require.NoError(t, errOpen)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func TestRedeemConsumesUses(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&models.Coupon{
		Code:          "ONCE",
		DiscountType:  models.CouponTypeFixed,
		Value:         dec("5"),
		MinOrderTotal: decimal.Zero,
		MaxUses:       1,
		IsActive:      true,
		ExpiresAt:     now.Add(time.Hour),
	}).Error)

	var discount decimal.Decimal
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var errRedeem error
		_, discount, errRedeem = Redeem(ctx, tx, " once ", dec("30"), now)
		return errRedeem
	}))
	require.True(t, discount.Equal(dec("5")))

	errSecond := conn.Transaction(func(tx *gorm.DB) error {
		_, _, errRedeem := Redeem(ctx, tx, "ONCE", dec("30"), now)
		return errRedeem
	})
	require.ErrorIs(t, errSecond, ErrCouponInvalid)

	_, _, errMissing := Preview(ctx, conn, "NOPE", dec("30"), now)
	require.ErrorIs(t, errMissing, ErrCouponNotFound)

	stored, errLookup := Lookup(ctx, conn, "once")
	require.NoError(t, errLookup)
	require.Equal(t, 1, stored.UsedCount)
}
