package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType selects how a coupon value is applied.
type CouponType string

// CouponType values.
const (
	// CouponTypePercentage discounts a percentage of the order total.
	CouponTypePercentage CouponType = "percentage"
	// CouponTypeFixed discounts a fixed amount, capped at the order total.
	CouponTypeFixed CouponType = "fixed"
)

// Coupon is a redeemable discount code.
type Coupon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex"` // Upper-cased code.
	DiscountType  CouponType      `gorm:"type:varchar(20);not null"`             // Discount kind.
	Value         decimal.Decimal `gorm:"type:decimal(10,2);not null"`           // Percentage or amount.
	MinOrderTotal decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"` // Minimum order total.
	MaxUses       int             `gorm:"not null"`                              // Total redemptions allowed.
	UsedCount     int             `gorm:"not null;default:0"`                    // Redemptions so far.
	IsActive      bool            `gorm:"not null;index"`                        // Operator switch.
	ExpiresAt     time.Time       `gorm:"not null;index"`                        // Expiry timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
