package shop

import (
	"errors"
	"fmt"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"gorm.io/gorm"
)

// availableStock returns units on hand for the product and size.
// Sized lines read the size row, unsized lines the product stock.
func availableStock(tx *gorm.DB, productID uint64, size string, lock bool) (int, error) {
	query := tx
	if lock {
		query = db.LockForUpdate(tx)
	}
	if size == "" {
		var product models.Product
		if errFind := query.Select("id", "stock").First(&product, productID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return 0, ErrProductNotFound
			}
			return 0, fmt.Errorf("shop: load product stock: %w", errFind)
		}
		return product.Stock, nil
	}
	var row models.ProductSize
	if errFind := query.Where("product_id = ? AND size = ?", productID, size).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("shop: load size stock: %w", errFind)
	}
	return row.Quantity, nil
}

// adjustStock adds delta units to the product or size row.
func adjustStock(tx *gorm.DB, productID uint64, size string, delta int) error {
	if delta == 0 {
		return nil
	}
	var res *gorm.DB
	if size == "" {
		res = tx.Model(&models.Product{}).Where("id = ?", productID).
			Update("stock", gorm.Expr("stock + ?", delta))
	} else {
		res = tx.Model(&models.ProductSize{}).Where("product_id = ? AND size = ?", productID, size).
			Update("quantity", gorm.Expr("quantity + ?", delta))
	}
	if res.Error != nil {
		return fmt.Errorf("shop: adjust stock: %w", res.Error)
	}
	return nil
}

// takeStock removes qty units, failing when fewer are on hand.
func takeStock(tx *gorm.DB, productID uint64, size string, qty int) error {
	available, errStock := availableStock(tx, productID, size, true)
	if errStock != nil {
		return errStock
	}
	if available < qty {
		return ErrOutOfStock
	}
	return adjustStock(tx, productID, size, -qty)
}
