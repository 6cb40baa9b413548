package shop

import (
	"context"
	"fmt"

	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/models"
	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deposit adds amount to the account wallet.
func (s *Service) Deposit(ctx context.Context, accountID uint64, amount decimal.Decimal) (models.Profile, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return models.Profile{}, ErrInvalidAmount
	}
	var profile models.Profile
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errLock error
		profile, errLock = accounts.LockProfile(ctx, tx, accountID)
		if errLock != nil {
			return errLock
		}
		profile.Balance = profile.Balance.Add(amount)
		if errUpdate := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).
			Update("balance", profile.Balance).Error; errUpdate != nil {
			return fmt.Errorf("shop: credit balance: %w", errUpdate)
		}
		return recordBalance(tx, accountID, amount, models.BalanceTransactionDeposit, "DEP-"+ksuid.New().String())
	})
	if errTx != nil {
		return models.Profile{}, errTx
	}
	return profile, nil
}

// PayWithBalance settles a pending order from the account wallet.
func (s *Service) PayWithBalance(ctx context.Context, accountID, orderID uint64) (models.Order, error) {
	now := s.Now()
	var order models.Order
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errLock error
		order, errLock = lockOrder(tx, orderID, &accountID)
		if errLock != nil {
			return errLock
		}
		if order.Status != models.OrderStatusPending || (order.Payment != nil && order.Payment.IsPaid) {
			return ErrOrderNotPayable
		}
		profile, errProfile := accounts.LockProfile(ctx, tx, accountID)
		if errProfile != nil {
			return errProfile
		}
		if profile.Balance.LessThan(order.FinalTotal) {
			return ErrInsufficientBalance
		}
		if errUpdate := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).
			Update("balance", profile.Balance.Sub(order.FinalTotal)).Error; errUpdate != nil {
			return fmt.Errorf("shop: debit balance: %w", errUpdate)
		}
		if errRecord := recordBalance(tx, accountID, order.FinalTotal, models.BalanceTransactionPayment, order.Reference); errRecord != nil {
			return errRecord
		}
		return s.confirmInTx(ctx, tx, &order, true, now)
	})
	if errTx != nil {
		return models.Order{}, errTx
	}
	return order, nil
}

// refundInTx returns a wallet-paid order's amount to the buyer.
func (s *Service) refundInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	amount := order.PaidAmount
	if !amount.IsPositive() {
		amount = order.FinalTotal
	}
	if !amount.IsPositive() {
		return nil
	}
	profile, errProfile := accounts.LockProfile(ctx, tx, order.AccountID)
	if errProfile != nil {
		return errProfile
	}
	if errUpdate := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).
		Update("balance", profile.Balance.Add(amount)).Error; errUpdate != nil {
		return fmt.Errorf("shop: refund balance: %w", errUpdate)
	}
	return recordBalance(tx, order.AccountID, amount, models.BalanceTransactionRefund, order.Reference)
}

func recordBalance(tx *gorm.DB, accountID uint64, amount decimal.Decimal, kind models.BalanceTransactionType, reference string) error {
	entry := models.BalanceTransaction{AccountID: accountID, Amount: amount, Type: kind, Reference: reference}
	if errCreate := tx.Create(&entry).Error; errCreate != nil {
		return fmt.Errorf("shop: record %s: %w", kind, errCreate)
	}
	return nil
}

// History returns the account's wallet movements, newest first.
func (s *Service) History(ctx context.Context, accountID uint64, limit int) ([]models.BalanceTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.BalanceTransaction
	if errFind := s.db.WithContext(ctx).Where("account_id = ?", accountID).
		Order("created_at DESC").Order("id DESC").Limit(limit).
		Find(&entries).Error; errFind != nil {
		return nil, fmt.Errorf("shop: load balance history: %w", errFind)
	}
	return entries, nil
}
