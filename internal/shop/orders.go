package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	AccountID *uint64
	Status    models.OrderStatus
	Limit     int
	Offset    int
}

// ListOrders returns orders newest first.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Preload("Items").Preload("Payment")
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var orders []models.Order
	if errFind := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; errFind != nil {
		return nil, fmt.Errorf("shop: list orders: %w", errFind)
	}
	return orders, nil
}

// GetOrder loads one order with its lines and payment.
// A non-nil accountID restricts the lookup to that owner.
func (s *Service) GetOrder(ctx context.Context, orderID uint64, accountID *uint64) (models.Order, error) {
	query := s.db.WithContext(ctx).Preload("Items").Preload("Payment").Where("id = ?", orderID)
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}
	var order models.Order
	if errFind := query.First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("shop: load order: %w", errFind)
	}
	return order, nil
}

// lockOrder loads the order under a row lock and then its lines and payment.
func lockOrder(tx *gorm.DB, orderID uint64, accountID *uint64) (models.Order, error) {
	query := db.LockForUpdate(tx).Where("id = ?", orderID)
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}
	var order models.Order
	if errFind := query.First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("shop: lock order: %w", errFind)
	}
	if errItems := tx.Where("order_id = ?", order.ID).Order("id ASC").Find(&order.Items).Error; errItems != nil {
		return models.Order{}, fmt.Errorf("shop: load order items: %w", errItems)
	}
	var payment models.Payment
	errPayment := tx.Where("order_id = ?", order.ID).First(&payment).Error
	switch {
	case errPayment == nil:
		order.Payment = &payment
	case !errors.Is(errPayment, gorm.ErrRecordNotFound):
		return models.Order{}, fmt.Errorf("shop: load payment: %w", errPayment)
	}
	return order, nil
}

// TransitionStatus moves an order along the configured status flow.
// Moving to paid confirms the payment; moving to cancelled restocks.
func (s *Service) TransitionStatus(ctx context.Context, orderID uint64, to models.OrderStatus) (models.Order, error) {
	if !models.IsValidOrderStatus(to) {
		return models.Order{}, ErrInvalidStatusTransition
	}
	now := s.Now()
	var order models.Order
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errLock error
		order, errLock = lockOrder(tx, orderID, nil)
		if errLock != nil {
			return errLock
		}
		if !s.cfg.CanTransition(order.Status, to) {
			return ErrInvalidStatusTransition
		}
		switch to {
		case models.OrderStatusCancelled:
			return s.cancelInTx(ctx, tx, &order, now)
		case models.OrderStatusPaid:
			return s.confirmInTx(ctx, tx, &order, false, now)
		default:
			return setOrderStatus(tx, &order, to, now)
		}
	})
	if errTx != nil {
		return models.Order{}, errTx
	}
	return order, nil
}

// CancelOrder cancels any order that is not already cancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID uint64) (models.Order, error) {
	return s.cancel(ctx, orderID, nil)
}

// CancelOwnOrder lets a customer cancel their own order while it is pending.
func (s *Service) CancelOwnOrder(ctx context.Context, accountID, orderID uint64) (models.Order, error) {
	return s.cancel(ctx, orderID, &accountID)
}

func (s *Service) cancel(ctx context.Context, orderID uint64, accountID *uint64) (models.Order, error) {
	now := s.Now()
	var order models.Order
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errLock error
		order, errLock = lockOrder(tx, orderID, accountID)
		if errLock != nil {
			return errLock
		}
		if order.Status == models.OrderStatusCancelled {
			return ErrOrderNotCancellable
		}
		if accountID != nil && order.Status != models.OrderStatusPending {
			return ErrOrderNotCancellable
		}
		return s.cancelInTx(ctx, tx, &order, now)
	})
	if errTx != nil {
		return models.Order{}, errTx
	}
	return order, nil
}

// cancelInTx restocks an order unless it was delivered, refunds wallet
// payments and marks it cancelled.
func (s *Service) cancelInTx(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) error {
	if order.Status == models.OrderStatusCancelled {
		return nil
	}
	if order.Items == nil {
		if errItems := tx.Where("order_id = ?", order.ID).Find(&order.Items).Error; errItems != nil {
			return fmt.Errorf("shop: load order items: %w", errItems)
		}
	}
	if order.Status != models.OrderStatusDelivered {
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if errStock := adjustStock(tx, *item.ProductID, item.Size, item.Quantity); errStock != nil {
				return errStock
			}
		}
	}
	if order.Payment == nil {
		var payment models.Payment
		errPayment := tx.Where("order_id = ?", order.ID).First(&payment).Error
		if errPayment != nil && !errors.Is(errPayment, gorm.ErrRecordNotFound) {
			return fmt.Errorf("shop: load payment: %w", errPayment)
		}
		if errPayment == nil {
			order.Payment = &payment
		}
	}
	if order.Payment != nil && order.Payment.IsPaid && order.Payment.FromBalance {
		if errRefund := s.refundInTx(ctx, tx, order); errRefund != nil {
			return errRefund
		}
	}
	return setOrderStatus(tx, order, models.OrderStatusCancelled, now)
}

func setOrderStatus(tx *gorm.DB, order *models.Order, status models.OrderStatus, now time.Time) error {
	if errUpdate := tx.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"status": status, "updated_at": now}).Error; errUpdate != nil {
		return fmt.Errorf("shop: update order status: %w", errUpdate)
	}
	order.Status = status
	order.UpdatedAt = now
	return nil
}

// CancelStalePending cancels pending orders older than olderThan and
// returns how many were cancelled. olderThan <= 0 uses PendingExpiry.
func (s *Service) CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.PendingExpiry
	}
	now := s.Now()
	var ids []uint64
	if errFind := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at < ?", models.OrderStatusPending, now.Add(-olderThan)).
		Order("id ASC").Pluck("id", &ids).Error; errFind != nil {
		return 0, fmt.Errorf("shop: find stale orders: %w", errFind)
	}
	cancelled := 0
	for _, id := range ids {
		changed := false
		errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			order, errLock := lockOrder(tx, id, nil)
			if errLock != nil {
				return errLock
			}
			if order.Status != models.OrderStatusPending {
				return nil
			}
			changed = true
			return s.cancelInTx(ctx, tx, &order, now)
		})
		if errTx != nil {
			log.WithError(errTx).WithField("order_id", id).Warn("failed to cancel stale order")
			continue
		}
		if changed {
			cancelled++
		}
	}
	return cancelled, nil
}
