package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureProfile returns the profile of accountID, creating an empty one when missing.
// conn may be a transaction.
func EnsureProfile(ctx context.Context, conn *gorm.DB, accountID uint64) (models.Profile, error) {
	profile := models.Profile{AccountID: accountID, Country: "Egypt"}
	if errCreate := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, DoNothing: true}).
		Create(&profile).Error; errCreate != nil {
		return models.Profile{}, fmt.Errorf("accounts: ensure profile: %w", errCreate)
	}
	var stored models.Profile
	if errFind := conn.WithContext(ctx).Where("account_id = ?", accountID).First(&stored).Error; errFind != nil {
		return models.Profile{}, fmt.Errorf("accounts: load profile: %w", errFind)
	}
	return stored, nil
}

// LockProfile ensures the profile exists and reloads it under a row lock. tx must be a transaction.
func LockProfile(ctx context.Context, tx *gorm.DB, accountID uint64) (models.Profile, error) {
	if _, errEnsure := EnsureProfile(ctx, tx, accountID); errEnsure != nil {
		return models.Profile{}, errEnsure
	}
	var profile models.Profile
	if errFind := db.LockForUpdate(tx.WithContext(ctx)).Where("account_id = ?", accountID).First(&profile).Error; errFind != nil {
		return models.Profile{}, fmt.Errorf("accounts: lock profile: %w", errFind)
	}
	return profile, nil
}

// SelfUpdate carries the fields an account may change about itself.
// Tier flags are intentionally absent.
type SelfUpdate struct {
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Country *string `json:"country"`
}

// UpdateSelf applies update to targetID when actor is that same active account.
func (s *Service) UpdateSelf(ctx context.Context, actor access.Subject, targetID uint64, update SelfUpdate) (models.Account, error) {
	var account models.Account
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&account, targetID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("accounts: load account: %w", errFind)
		}
		if !s.resolver.CanEditSelf(actor, access.SubjectFromAccount(account)) {
			return ErrForbidden
		}
		if update.Email != nil {
			email := strings.TrimSpace(*update.Email)
			if email != "" {
				var count int64
				if errCount := tx.Model(&models.Account{}).
					Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), account.ID).
					Count(&count).Error; errCount != nil {
					return fmt.Errorf("accounts: check email: %w", errCount)
				}
				if count > 0 {
					return ErrEmailTaken
				}
			}
			if errUpdate := tx.Model(&account).Update("email", email).Error; errUpdate != nil {
				return fmt.Errorf("accounts: update email: %w", errUpdate)
			}
		}

		profile, errProfile := EnsureProfile(ctx, tx, account.ID)
		if errProfile != nil {
			return errProfile
		}
		updates := map[string]any{}
		if update.Phone != nil {
			updates["phone"] = strings.TrimSpace(*update.Phone)
		}
		if update.Address != nil {
			updates["address"] = strings.TrimSpace(*update.Address)
		}
		if update.Country != nil {
			updates["country"] = strings.TrimSpace(*update.Country)
		}
		if len(updates) > 0 {
			if errUpdate := tx.Model(&profile).Updates(updates).Error; errUpdate != nil {
				return fmt.Errorf("accounts: update profile: %w", errUpdate)
			}
		}
		return tx.Preload("Groups").Preload("Profile").First(&account, account.ID).Error
	})
	if errTx != nil {
		return models.Account{}, errTx
	}
	return account, nil
}
