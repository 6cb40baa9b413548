// Package loyalty spends loyalty points on gifts.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrGiftNotFound       = errors.New("loyalty: gift not found")
	ErrGiftInactive       = errors.New("loyalty: gift is not available")
	ErrOutOfStock         = errors.New("loyalty: gift is out of stock")
	ErrInsufficientPoints = errors.New("loyalty: not enough points")
	ErrRedemptionNotFound = errors.New("loyalty: redemption not found")
	ErrTrackingRequired   = errors.New("loyalty: tracking number is required")
)

// Service redeems gifts against profile points.
type Service struct {
	db *gorm.DB
}

// NewService builds a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListGifts returns gifts, optionally only the active ones.
func (s *Service) ListGifts(ctx context.Context, activeOnly bool) ([]models.Gift, error) {
	query := s.db.WithContext(ctx).Model(&models.Gift{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var gifts []models.Gift
	if errFind := query.Order("points_cost ASC").Order("id ASC").Find(&gifts).Error; errFind != nil {
		return nil, fmt.Errorf("loyalty: list gifts: %w", errFind)
	}
	return gifts, nil
}

// RedeemGift spends the gift's points cost and takes one unit of stock.
func (s *Service) RedeemGift(ctx context.Context, accountID, giftID uint64) (models.GiftRedemption, error) {
	var redemption models.GiftRedemption
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, errProfile := accounts.LockProfile(ctx, tx, accountID)
		if errProfile != nil {
			return errProfile
		}
		var gift models.Gift
		if errFind := db.LockForUpdate(tx).First(&gift, giftID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrGiftNotFound
			}
			return fmt.Errorf("loyalty: lock gift: %w", errFind)
		}
		if !gift.IsActive {
			return ErrGiftInactive
		}
		if gift.StockQuantity <= 0 {
			return ErrOutOfStock
		}
		if profile.Points < gift.PointsCost {
			return ErrInsufficientPoints
		}

		if errPoints := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).
			Update("points", profile.Points-gift.PointsCost).Error; errPoints != nil {
			return fmt.Errorf("loyalty: deduct points: %w", errPoints)
		}
		if errStock := tx.Model(&models.Gift{}).Where("id = ?", gift.ID).
			Update("stock_quantity", gift.StockQuantity-1).Error; errStock != nil {
			return fmt.Errorf("loyalty: take gift stock: %w", errStock)
		}
		gift.StockQuantity--

		redemption = models.GiftRedemption{
			UID:         uuid.NewString(),
			AccountID:   accountID,
			GiftID:      gift.ID,
			PointsSpent: gift.PointsCost,
			Status:      models.GiftRedemptionCompleted,
		}
		if errCreate := tx.Create(&redemption).Error; errCreate != nil {
			return fmt.Errorf("loyalty: create redemption: %w", errCreate)
		}
		redemption.Gift = &gift
		return nil
	})
	if errTx != nil {
		return models.GiftRedemption{}, errTx
	}
	log.WithFields(log.Fields{
		"account": accountID,
		"gift":    giftID,
		"points":  redemption.PointsSpent,
	}).Info("gift redeemed")
	return redemption, nil
}

// Redemptions lists redemptions, newest first. A nil accountID lists all.
func (s *Service) Redemptions(ctx context.Context, accountID *uint64) ([]models.GiftRedemption, error) {
	query := s.db.WithContext(ctx).Preload("Gift")
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}
	var redemptions []models.GiftRedemption
	if errFind := query.Order("redeemed_at DESC").Order("id DESC").Find(&redemptions).Error; errFind != nil {
		return nil, fmt.Errorf("loyalty: list redemptions: %w", errFind)
	}
	return redemptions, nil
}

// MarkShipped records the shipment of a redemption.
func (s *Service) MarkShipped(ctx context.Context, redemptionID uint64, trackingNumber, notes string) (models.GiftRedemption, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return models.GiftRedemption{}, ErrTrackingRequired
	}
	var redemption models.GiftRedemption
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := db.LockForUpdate(tx).First(&redemption, redemptionID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrRedemptionNotFound
			}
			return fmt.Errorf("loyalty: lock redemption: %w", errFind)
		}
		updates := map[string]any{
			"status":          models.GiftRedemptionShipped,
			"tracking_number": trackingNumber,
		}
		if strings.TrimSpace(notes) != "" {
			updates["notes"] = strings.TrimSpace(notes)
		}
		if errUpdate := tx.Model(&redemption).Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("loyalty: mark shipped: %w", errUpdate)
		}
		redemption.Status = models.GiftRedemptionShipped
		redemption.TrackingNumber = trackingNumber
		if note, ok := updates["notes"].(string); ok {
			redemption.Notes = note
		}
		return nil
	})
	if errTx != nil {
		return models.GiftRedemption{}, errTx
	}
	return redemption, nil
}
