package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IssueResetCode replaces any pending reset of the account owning email with a new unique 6-digit code.
func (s *Service) IssueResetCode(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrAccountNotFound
	}
	var code string
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if errFind := tx.Where("LOWER(email) = ?", strings.ToLower(email)).First(&account).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("accounts: find account by email: %w", errFind)
		}
		if errDelete := tx.Where("account_id = ?", account.ID).Delete(&models.PasswordReset{}).Error; errDelete != nil {
			return fmt.Errorf("accounts: clear reset codes: %w", errDelete)
		}
		for attempt := 0; attempt < resetCodeAttempts; attempt++ {
			candidate, errCode := security.GenerateDigits(resetCodeLength)
			if errCode != nil {
				return errCode
			}
			var count int64
			if errCount := tx.Model(&models.PasswordReset{}).Where("code = ?", candidate).Count(&count).Error; errCount != nil {
				return fmt.Errorf("accounts: check reset code: %w", errCount)
			}
			if count > 0 {
				continue
			}
			reset := models.PasswordReset{AccountID: account.ID, Code: candidate, CreatedAt: s.now().UTC()}
			if errCreate := tx.Create(&reset).Error; errCreate != nil {
				return fmt.Errorf("accounts: create reset code: %w", errCreate)
			}
			code = candidate
			log.WithFields(log.Fields{"account_id": account.ID}).Info("accounts: password reset code issued")
			return nil
		}
		return fmt.Errorf("accounts: no free reset code after %d attempts", resetCodeAttempts)
	})
	if errTx != nil {
		return "", errTx
	}
	return code, nil
}

// CheckResetCode reports whether code is valid and unexpired.
func (s *Service) CheckResetCode(ctx context.Context, code string) error {
	_, errLoad := s.loadResetCode(s.db.WithContext(ctx), code)
	return errLoad
}

// ResetPassword consumes code and sets the account password.
func (s *Service) ResetPassword(ctx context.Context, code, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	var expired bool
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset, errLoad := s.loadResetCode(tx, code)
		if errors.Is(errLoad, ErrResetCodeExpired) {
			expired = true
		}
		if errLoad != nil {
			return errLoad
		}
		if errUpdate := tx.Model(&models.Account{}).Where("id = ?", reset.AccountID).Update("password", hash).Error; errUpdate != nil {
			return fmt.Errorf("accounts: update password: %w", errUpdate)
		}
		if errDelete := tx.Delete(&reset).Error; errDelete != nil {
			return fmt.Errorf("accounts: consume reset code: %w", errDelete)
		}
		return nil
	})
	if expired {
		if errDelete := s.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).Delete(&models.PasswordReset{}).Error; errDelete != nil {
			log.WithError(errDelete).Warn("accounts: delete expired reset code")
		}
	}
	return errTx
}

func (s *Service) loadResetCode(conn *gorm.DB, code string) (models.PasswordReset, error) {
	code = strings.TrimSpace(code)
	if len(code) != resetCodeLength {
		return models.PasswordReset{}, ErrInvalidResetCode
	}
	var reset models.PasswordReset
	if errFind := conn.Where("code = ?", code).First(&reset).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.PasswordReset{}, ErrInvalidResetCode
		}
		return models.PasswordReset{}, fmt.Errorf("accounts: load reset code: %w", errFind)
	}
	if s.now().UTC().After(reset.CreatedAt.Add(resetCodeTTL)) {
		return models.PasswordReset{}, ErrResetCodeExpired
	}
	return reset, nil
}
