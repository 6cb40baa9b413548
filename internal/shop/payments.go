package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConfirmPayment marks the account's order paid and awards loyalty points.
// Confirming an already paid order returns it unchanged.
func (s *Service) ConfirmPayment(ctx context.Context, accountID, orderID uint64) (models.Order, error) {
	now := s.Now()
	var order models.Order
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errLock error
		order, errLock = lockOrder(tx, orderID, &accountID)
		if errLock != nil {
			return errLock
		}
		if order.Payment != nil && order.Payment.IsPaid {
			return nil
		}
		if order.Status != models.OrderStatusPending {
			return ErrOrderNotPayable
		}
		return s.confirmInTx(ctx, tx, &order, false, now)
	})
	if errTx != nil {
		return models.Order{}, errTx
	}
	return order, nil
}

// PointsFor returns the loyalty points earned by a final total.
func (s *Service) PointsFor(finalTotal decimal.Decimal) int64 {
	if !finalTotal.IsPositive() {
		return 0
	}
	return finalTotal.Div(decimal.NewFromInt(s.cfg.PointsPerCurrencyUnit)).Floor().IntPart()
}

// confirmInTx settles the payment row, moves a pending order to paid and
// credits the buyer's points and spend. It is a no-op for paid payments.
func (s *Service) confirmInTx(ctx context.Context, tx *gorm.DB, order *models.Order, fromBalance bool, now time.Time) error {
	if order.Status == models.OrderStatusCancelled {
		return ErrOrderNotPayable
	}
	if order.Payment == nil {
		payment := models.Payment{OrderID: order.ID, Method: order.PaymentMethod, CreatedAt: now}
		if payment.Method == "" {
			payment.Method = models.PaymentMethodCash
		}
		if errCreate := tx.Create(&payment).Error; errCreate != nil {
			return fmt.Errorf("shop: create payment: %w", errCreate)
		}
		order.Payment = &payment
	}
	if order.Payment.IsPaid {
		return nil
	}

	paidAt := now
	if errPayment := tx.Model(&models.Payment{}).Where("id = ?", order.Payment.ID).Updates(map[string]any{
		"is_paid":      true,
		"paid_at":      paidAt,
		"from_balance": fromBalance,
	}).Error; errPayment != nil {
		return fmt.Errorf("shop: confirm payment: %w", errPayment)
	}
	order.Payment.IsPaid = true
	order.Payment.PaidAt = &paidAt
	order.Payment.FromBalance = fromBalance

	status := order.Status
	if status == models.OrderStatusPending {
		status = models.OrderStatusPaid
	}
	if errOrder := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"status":      status,
		"paid_amount": order.FinalTotal,
		"updated_at":  now,
	}).Error; errOrder != nil {
		return fmt.Errorf("shop: mark order paid: %w", errOrder)
	}
	order.Status = status
	order.PaidAmount = order.FinalTotal
	order.UpdatedAt = now

	profile, errProfile := accounts.LockProfile(ctx, tx, order.AccountID)
	if errProfile != nil {
		return errProfile
	}
	points := s.PointsFor(order.FinalTotal)
	if errUpdate := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]any{
		"points":           profile.Points + points,
		"total_spent":      profile.TotalSpent.Add(order.FinalTotal),
		"last_purchase_at": now,
	}).Error; errUpdate != nil {
		return fmt.Errorf("shop: credit points: %w", errUpdate)
	}

	log.WithFields(log.Fields{
		"order":   order.Reference,
		"account": order.AccountID,
		"points":  points,
	}).Info("payment confirmed")
	return nil
}
