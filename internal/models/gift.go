package models

import "time"

// Gift is an item redeemable with loyalty points.
type Gift struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UID           string `gorm:"type:varchar(36);not null;uniqueIndex"` // Public identifier.
	Name          string `gorm:"type:varchar(200);not null"`            // Display name.
	Description   string `gorm:"type:text"`                             // Description.
	PointsCost    int64  `gorm:"not null"`                              // Points required.
	ImageURL      string `gorm:"type:varchar(500)"`                     // Image URL.
	StockQuantity int    `gorm:"not null;default:100"`                  // Units available.
	IsActive      bool   `gorm:"not null;index"`                        // Listed for redemption.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// GiftRedemptionStatus is the fulfilment state of a redemption.
type GiftRedemptionStatus string

// GiftRedemptionStatus values.
const (
	GiftRedemptionPending   GiftRedemptionStatus = "pending"
	GiftRedemptionCompleted GiftRedemptionStatus = "completed"
	GiftRedemptionShipped   GiftRedemptionStatus = "shipped"
)

// GiftRedemption records an account redeeming a gift.
type GiftRedemption struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UID string `gorm:"type:varchar(36);not null;uniqueIndex"` // Public identifier.

	AccountID uint64 `gorm:"not null;index"` // Redeeming account ID.

	GiftID uint64 `gorm:"not null;index"`    // Redeemed gift ID.
	Gift   *Gift  `gorm:"foreignKey:GiftID"` // Redeemed gift.

	PointsSpent    int64                `gorm:"not null"`                                    // Points deducted.
	Status         GiftRedemptionStatus `gorm:"type:varchar(20);not null;default:'pending'"` // Fulfilment state.
	TrackingNumber string               `gorm:"type:varchar(100)"`                           // Shipment tracking number.
	Notes          string               `gorm:"type:text"`                                   // Staff notes.

	RedeemedAt time.Time `gorm:"not null;autoCreateTime;index"` // Redemption timestamp.
}
