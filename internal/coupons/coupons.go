// Package coupons validates discount codes and records their redemption.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrCouponNotFound is returned for unknown codes.
	ErrCouponNotFound = errors.New("coupons: coupon not found")
	// ErrCouponInvalid is returned when a coupon cannot apply to the order.
	ErrCouponInvalid = errors.New("coupons: coupon is not valid for this order")
)

var hundred = decimal.NewFromInt(100)

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether coupon applies to an order of total at now.
func IsValid(coupon models.Coupon, total decimal.Decimal, now time.Time) bool {
	if !coupon.IsActive {
		return false
	}
	if coupon.UsedCount >= coupon.MaxUses {
		return false
	}
	if now.After(coupon.ExpiresAt) {
		return false
	}
	return !total.LessThan(coupon.MinOrderTotal)
}

// CalculateDiscount returns the amount coupon takes off total.
// Percentage coupons round to cents; fixed coupons never exceed total.
func CalculateDiscount(coupon models.Coupon, total decimal.Decimal) decimal.Decimal {
	if coupon.DiscountType == models.CouponTypePercentage {
		return total.Mul(coupon.Value).Div(hundred).Round(2)
	}
	return decimal.Min(coupon.Value, total)
}

// Lookup loads a coupon by code, case-insensitively.
func Lookup(ctx context.Context, conn *gorm.DB, code string) (models.Coupon, error) {
	var coupon models.Coupon
	if errFind := conn.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&coupon).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Coupon{}, ErrCouponNotFound
		}
		return models.Coupon{}, fmt.Errorf("coupons: load coupon: %w", errFind)
	}
	return coupon, nil
}

// Preview validates code against total without consuming it.
func Preview(ctx context.Context, conn *gorm.DB, code string, total decimal.Decimal, now time.Time) (models.Coupon, decimal.Decimal, error) {
	coupon, errLookup := Lookup(ctx, conn, code)
	if errLookup != nil {
		return models.Coupon{}, decimal.Zero, errLookup
	}
	if !IsValid(coupon, total, now) {
		return coupon, decimal.Zero, ErrCouponInvalid
	}
	return coupon, CalculateDiscount(coupon, total), nil
}

// Redeem locks the coupon row, validates it and increments its use count.
// tx must be a transaction; the caller commits with the order.
func Redeem(ctx context.Context, tx *gorm.DB, code string, total decimal.Decimal, now time.Time) (models.Coupon, decimal.Decimal, error) {
	var coupon models.Coupon
	if errFind := db.LockForUpdate(tx.WithContext(ctx)).Where("code = ?", NormalizeCode(code)).First(&coupon).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Coupon{}, decimal.Zero, ErrCouponNotFound
		}
		return models.Coupon{}, decimal.Zero, fmt.Errorf("coupons: lock coupon: %w", errFind)
	}
	if !IsValid(coupon, total, now) {
		return coupon, decimal.Zero, ErrCouponInvalid
	}
	res := tx.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND used_count < max_uses", coupon.ID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return models.Coupon{}, decimal.Zero, fmt.Errorf("coupons: increment usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return coupon, decimal.Zero, ErrCouponInvalid
	}
	coupon.UsedCount++
	return coupon, CalculateDiscount(coupon, total), nil
}
