package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elostora/shop/internal/coupons"
	"github.com/elostora/shop/internal/models"
	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CheckoutInput is the customer's checkout request.
type CheckoutInput struct {
	Address    string               `json:"address"`
	Method     models.PaymentMethod `json:"payment_method"`
	CouponCode string               `json:"coupon_code"`
}

// Checkout turns the account cart into a pending order.
// Quantities are clamped to stock first; the order, stock, coupon use,
// payment row and cart clear are then committed together.
func (s *Service) Checkout(ctx context.Context, accountID uint64, in CheckoutInput) (models.Order, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return models.Order{}, ErrAddressRequired
	}
	method := models.PaymentMethod(strings.ToLower(strings.TrimSpace(string(in.Method))))
	if method == "" {
		method = models.PaymentMethodCash
	}
	if !models.IsValidPaymentMethod(method) {
		return models.Order{}, ErrInvalidPaymentMethod
	}
	now := s.Now()

	errClamp := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return clampCart(tx, accountID)
	})
	if errClamp != nil {
		return models.Order{}, errClamp
	}

	var order models.Order
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errPending := s.settlePendingOrders(ctx, tx, accountID, now); errPending != nil {
			return errPending
		}

		items, errItems := loadCartItems(tx, accountID)
		if errItems != nil {
			return errItems
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		resolver := s.pricing.WithTx(tx)
		total := decimal.Zero
		lines := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				continue
			}
			if errStock := takeStock(tx, item.ProductID, item.Size, item.Quantity); errStock != nil {
				return errStock
			}
			unit, errPrice := resolver.DiscountedPrice(ctx, item.Product.Price, item.Product.CategoryID, now)
			if errPrice != nil {
				return errPrice
			}
			productID := item.ProductID
			line := models.OrderItem{
				ProductID: &productID,
				Name:      item.Product.Name,
				Size:      item.Size,
				Quantity:  item.Quantity,
				Price:     unit,
			}
			subtotal, errSubtotal := resolver.CartLineSubtotal(ctx, *item.Product, item.Quantity, now)
			if errSubtotal != nil {
				return errSubtotal
			}
			lines = append(lines, line)
			total = total.Add(subtotal)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		fee := s.deliveryFee(total)
		discount := decimal.Zero
		couponCode := ""
		if code := coupons.NormalizeCode(in.CouponCode); code != "" {
			coupon, amount, errCoupon := coupons.Redeem(ctx, tx, code, total, now)
			if errCoupon != nil {
				return errCoupon
			}
			discount = amount
			couponCode = coupon.Code
		}

		order = models.Order{
			Reference:       ksuid.New().String(),
			AccountID:       accountID,
			DeliveryAddress: address,
			TotalAmount:     total.Round(2),
			DiscountAmount:  discount,
			DeliveryFee:     fee,
			FinalTotal:      total.Sub(discount).Add(fee).Round(2),
			PaidAmount:      decimal.Zero,
			PaymentMethod:   method,
			CouponCode:      couponCode,
			Status:          models.OrderStatusPending,
			Items:           lines,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if errCreate := tx.Create(&order).Error; errCreate != nil {
			return fmt.Errorf("shop: create order: %w", errCreate)
		}

		payment := models.Payment{OrderID: order.ID, Method: method, CreatedAt: now}
		if errPayment := tx.Create(&payment).Error; errPayment != nil {
			return fmt.Errorf("shop: create payment: %w", errPayment)
		}
		order.Payment = &payment

		if errClear := tx.Where("cart_id IN (?)", tx.Model(&models.Cart{}).Select("id").Where("account_id = ?", accountID)).
			Delete(&models.CartItem{}).Error; errClear != nil {
			return fmt.Errorf("shop: clear cart: %w", errClear)
		}
		return nil
	})
	if errTx != nil {
		return models.Order{}, errTx
	}

	log.WithFields(log.Fields{
		"order":   order.Reference,
		"account": accountID,
		"total":   order.FinalTotal.StringFixed(2),
	}).Info("order placed")
	return order, nil
}

// clampCart trims every line of the account cart to the stock on hand,
// removing lines with none left.
func clampCart(tx *gorm.DB, accountID uint64) error {
	items, errItems := loadCartItems(tx, accountID)
	if errItems != nil {
		return errItems
	}
	for _, item := range items {
		available, errStock := availableStock(tx, item.ProductID, item.Size, false)
		if errStock != nil && !errors.Is(errStock, ErrProductNotFound) {
			return errStock
		}
		switch {
		case available <= 0:
			if errDelete := tx.Delete(&models.CartItem{}, item.ID).Error; errDelete != nil {
				return fmt.Errorf("shop: remove cart item: %w", errDelete)
			}
		case item.Quantity > available:
			if errUpdate := tx.Model(&models.CartItem{}).Where("id = ?", item.ID).
				Update("quantity", available).Error; errUpdate != nil {
				return fmt.Errorf("shop: clamp cart item: %w", errUpdate)
			}
		}
	}
	return nil
}

// settlePendingOrders refuses checkout while a pending order is inside the
// grace period, and cancels older pending orders of the account.
func (s *Service) settlePendingOrders(ctx context.Context, tx *gorm.DB, accountID uint64, now time.Time) error {
	var pending []models.Order
	if errFind := tx.Where("account_id = ? AND status = ?", accountID, models.OrderStatusPending).
		Order("id ASC").Find(&pending).Error; errFind != nil {
		return fmt.Errorf("shop: load pending orders: %w", errFind)
	}
	cutoff := now.Add(-s.cfg.PendingGracePeriod)
	for _, order := range pending {
		if order.CreatedAt.After(cutoff) {
			return ErrPendingOrder
		}
	}
	for i := range pending {
		if errCancel := s.cancelInTx(ctx, tx, &pending[i], now); errCancel != nil {
			return errCancel
		}
	}
	return nil
}
