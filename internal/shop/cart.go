package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/pricing"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AddResult reports the state of a cart line after an add.
type AddResult struct {
	Item      models.CartItem `json:"item"`
	Clamped   bool            `json:"clamped"`
	Available int             `json:"available"`
}

// UpdateResult reports the state of a cart line after a quantity change.
type UpdateResult struct {
	Item    *models.CartItem `json:"item,omitempty"`
	Removed bool             `json:"removed"`
	Clamped bool             `json:"clamped"`
}

// CartLine is a priced cart line.
type CartLine struct {
	ItemID          uint64          `json:"item_id"`
	ProductID       uint64          `json:"product_id"`
	Name            string          `json:"name"`
	ImageURL        string          `json:"image_url,omitempty"`
	Size            string          `json:"size,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Percentage      int             `json:"discount_percentage"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// CartSummary is the priced cart with delivery fee.
type CartSummary struct {
	Lines       []CartLine      `json:"lines"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	FinalTotal  decimal.Decimal `json:"final_total"`
}

func normalizeSize(size string) string {
	return strings.ToUpper(strings.TrimSpace(size))
}

func cartFor(tx *gorm.DB, accountID uint64) (models.Cart, error) {
	var cart models.Cart
	if errCart := tx.Where("account_id = ?", accountID).
		FirstOrCreate(&cart, models.Cart{AccountID: accountID}).Error; errCart != nil {
		return models.Cart{}, fmt.Errorf("shop: load cart: %w", errCart)
	}
	return cart, nil
}

// AddToCart adds qty units of the product and size to the account cart.
// The line is clamped to the stock on hand; Clamped reports when that happened.
func (s *Service) AddToCart(ctx context.Context, accountID, productID uint64, size string, qty int) (AddResult, error) {
	if qty <= 0 {
		return AddResult{}, ErrInvalidQuantity
	}
	size = normalizeSize(size)
	var (
		result     AddResult
		outOfStock bool
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if errFind := tx.Preload("Sizes").First(&product, productID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("shop: load product: %w", errFind)
		}
		if len(product.Sizes) > 0 {
			if size == "" {
				return ErrSizeRequired
			}
			if !hasSize(product, size) {
				return ErrSizeUnavailable
			}
		} else if size != "" {
			return ErrSizeUnavailable
		}

		available, errStock := availableStock(tx, product.ID, size, false)
		if errStock != nil {
			return errStock
		}
		cart, errCart := cartFor(tx, accountID)
		if errCart != nil {
			return errCart
		}

		var item models.CartItem
		errItem := tx.Where("cart_id = ? AND product_id = ? AND size = ?", cart.ID, product.ID, size).First(&item).Error
		if errItem != nil && !errors.Is(errItem, gorm.ErrRecordNotFound) {
			return fmt.Errorf("shop: load cart item: %w", errItem)
		}
		exists := errItem == nil

		desired := item.Quantity + qty
		if !exists {
			desired = qty
		}
		quantity := desired
		if quantity > available {
			quantity = available
			result.Clamped = true
		}
		result.Available = available

		if quantity <= 0 {
			// The stale line is dropped and committed before the error is reported.
			outOfStock = true
			if exists {
				if errDelete := tx.Delete(&item).Error; errDelete != nil {
					return fmt.Errorf("shop: remove cart item: %w", errDelete)
				}
			}
			return nil
		}
		if exists {
			if errUpdate := tx.Model(&item).Update("quantity", quantity).Error; errUpdate != nil {
				return fmt.Errorf("shop: update cart item: %w", errUpdate)
			}
			item.Quantity = quantity
		} else {
			item = models.CartItem{CartID: cart.ID, ProductID: product.ID, Size: size, Quantity: quantity}
			if errCreate := tx.Create(&item).Error; errCreate != nil {
				return fmt.Errorf("shop: create cart item: %w", errCreate)
			}
		}
		result.Item = item
		return nil
	})
	if errTx != nil {
		return AddResult{}, errTx
	}
	if outOfStock {
		return AddResult{}, ErrOutOfStock
	}
	return result, nil
}

func hasSize(product models.Product, size string) bool {
	for _, row := range product.Sizes {
		if row.Size == size {
			return true
		}
	}
	return false
}

func ownedCartItem(tx *gorm.DB, accountID, itemID uint64) (models.CartItem, error) {
	var item models.CartItem
	if errFind := tx.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.account_id = ?", itemID, accountID).
		First(&item).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.CartItem{}, ErrCartItemNotFound
		}
		return models.CartItem{}, fmt.Errorf("shop: load cart item: %w", errFind)
	}
	return item, nil
}

// UpdateCartItem sets the quantity of a cart line. Zero or no stock removes the line.
func (s *Service) UpdateCartItem(ctx context.Context, accountID, itemID uint64, qty int) (UpdateResult, error) {
	var result UpdateResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, errItem := ownedCartItem(tx, accountID, itemID)
		if errItem != nil {
			return errItem
		}
		if qty <= 0 {
			result.Removed = true
			return tx.Delete(&item).Error
		}
		available, errStock := availableStock(tx, item.ProductID, item.Size, false)
		if errStock != nil && !errors.Is(errStock, ErrProductNotFound) {
			return errStock
		}
		if available <= 0 {
			result.Removed = true
			result.Clamped = true
			return tx.Delete(&item).Error
		}
		if qty > available {
			qty = available
			result.Clamped = true
		}
		if errUpdate := tx.Model(&item).Update("quantity", qty).Error; errUpdate != nil {
			return fmt.Errorf("shop: update cart item: %w", errUpdate)
		}
		item.Quantity = qty
		result.Item = &item
		return nil
	})
	if errTx != nil {
		return UpdateResult{}, errTx
	}
	return result, nil
}

// RemoveCartItem deletes a cart line owned by the account.
func (s *Service) RemoveCartItem(ctx context.Context, accountID, itemID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, errItem := ownedCartItem(tx, accountID, itemID)
		if errItem != nil {
			return errItem
		}
		if errDelete := tx.Delete(&item).Error; errDelete != nil {
			return fmt.Errorf("shop: remove cart item: %w", errDelete)
		}
		return nil
	})
}

// CartSummary prices the account cart at the current time.
func (s *Service) CartSummary(ctx context.Context, accountID uint64) (CartSummary, error) {
	return s.summarize(ctx, s.db.WithContext(ctx), accountID)
}

func (s *Service) summarize(ctx context.Context, conn *gorm.DB, accountID uint64) (CartSummary, error) {
	summary := CartSummary{Lines: []CartLine{}, Subtotal: decimal.Zero, DeliveryFee: decimal.Zero, FinalTotal: decimal.Zero}
	items, errItems := loadCartItems(conn, accountID)
	if errItems != nil {
		return CartSummary{}, errItems
	}
	now := s.Now()
	resolver := s.pricing.WithTx(conn)
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		line, errLine := newCartLine(ctx, resolver, item, now)
		if errLine != nil {
			return CartSummary{}, errLine
		}
		summary.Lines = append(summary.Lines, line)
		summary.ItemCount += line.Quantity
		summary.Subtotal = summary.Subtotal.Add(line.Subtotal)
	}
	summary.DeliveryFee = s.deliveryFee(summary.Subtotal)
	summary.FinalTotal = summary.Subtotal.Add(summary.DeliveryFee).Round(2)
	return summary, nil
}

func newCartLine(ctx context.Context, resolver *pricing.Resolver, item models.CartItem, now time.Time) (CartLine, error) {
	quote, errQuote := resolver.Quote(ctx, *item.Product, now)
	if errQuote != nil {
		return CartLine{}, errQuote
	}
	subtotal, errSubtotal := resolver.CartLineSubtotal(ctx, *item.Product, item.Quantity, now)
	if errSubtotal != nil {
		return CartLine{}, errSubtotal
	}
	return CartLine{
		ItemID:          item.ID,
		ProductID:       item.ProductID,
		Name:            item.Product.Name,
		ImageURL:        item.Product.ImageURL,
		Size:            item.Size,
		Quantity:        item.Quantity,
		UnitPrice:       item.Product.Price,
		DiscountedPrice: quote.Discounted,
		Percentage:      quote.Percentage,
		Subtotal:        subtotal,
	}, nil
}

func loadCartItems(conn *gorm.DB, accountID uint64) ([]models.CartItem, error) {
	var items []models.CartItem
	if errFind := conn.Preload("Product").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.account_id = ?", accountID).
		Order("cart_items.id ASC").
		Find(&items).Error; errFind != nil {
		return nil, fmt.Errorf("shop: load cart items: %w", errFind)
	}
	return items, nil
}

func (s *Service) deliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(s.cfg.DeliveryFeeRate).Round(2)
}
