package models

import "time"

// Cart is the single open cart of an account.
type Cart struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID uint64 `gorm:"not null;uniqueIndex"` // Owning account ID.

	Items []CartItem `gorm:"foreignKey:CartID"` // Cart lines.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// CartItem is one product and size line in a cart.
type CartItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CartID uint64 `gorm:"not null;uniqueIndex:idx_cart_items_line"` // Owning cart ID.

	ProductID uint64   `gorm:"not null;uniqueIndex:idx_cart_items_line"` // Product ID.
	Product   *Product `gorm:"foreignKey:ProductID"`                     // Product.

	Size     string `gorm:"type:varchar(5);not null;default:'';uniqueIndex:idx_cart_items_line"` // Size label, empty for unsized.
	Quantity int    `gorm:"not null;default:1"`                                                // Units requested.
}
