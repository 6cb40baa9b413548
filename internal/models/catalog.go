package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products and may be targeted by events.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:varchar(200);not null;uniqueIndex"` // Display name.
	Slug        string `gorm:"type:varchar(200);not null;uniqueIndex"` // URL slug.
	Description string `gorm:"type:text"`                              // Optional description.

	Subcategories []Subcategory `gorm:"foreignKey:CategoryID"` // Child subcategories.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// Subcategory narrows a category.
type Subcategory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CategoryID uint64    `gorm:"not null;index"`        // Parent category ID.
	Category   *Category `gorm:"foreignKey:CategoryID"` // Parent category.

	Name string `gorm:"type:varchar(200);not null"` // Display name.
	Slug string `gorm:"type:varchar(200);not null"` // URL slug.
}

// Product is a catalog item.
type Product struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name             string          `gorm:"type:varchar(200);not null"`            // Display name.
	ShortDescription string          `gorm:"type:varchar(300)"`                     // Listing blurb.
	Description      string          `gorm:"type:text"`                             // Full description.
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Base price.
	Stock            int             `gorm:"not null;default:0"`                    // General stock for unsized items.
	ImageURL         string          `gorm:"type:varchar(500)"`                     // Product image URL.

	CategoryID *uint64   `gorm:"index"`                 // Optional category ID.
	Category   *Category `gorm:"foreignKey:CategoryID"` // Optional category.

	SubcategoryID *uint64      `gorm:"index"`                    // Optional subcategory ID.
	Subcategory   *Subcategory `gorm:"foreignKey:SubcategoryID"` // Optional subcategory.

	Sizes []ProductSize `gorm:"foreignKey:ProductID"` // Size variants.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Sizes accepted for sized products.
var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// IsValidSize reports whether size is one of Sizes.
func IsValidSize(size string) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// ProductSize tracks stock for one size of a product.
type ProductSize struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ProductID uint64 `gorm:"not null;uniqueIndex:idx_product_sizes_product_size"`                   // Owning product ID.
	Size      string `gorm:"type:varchar(5);not null;uniqueIndex:idx_product_sizes_product_size"` // Size label.
	Quantity  int    `gorm:"not null;default:0"`                                                  // Units in stock.
}
