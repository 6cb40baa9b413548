// Package accounts handles registration, sign-in, password resets and self-service profile edits.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 5
	resetCodeLength   = 6
	resetCodeTTL      = 5 * time.Minute
	resetCodeAttempts = 10
)

var (
	ErrUsernameRequired   = errors.New("accounts: username is required")
	ErrUsernameTaken      = errors.New("accounts: username already exists")
	ErrEmailTaken         = errors.New("accounts: email already exists")
	ErrReservedUsername   = errors.New("accounts: username is reserved")
	ErrWeakPassword       = fmt.Errorf("accounts: password must be at least %d characters", minPasswordLength)
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	ErrAccountBlocked     = errors.New("accounts: account is blocked")
	ErrAccountNotFound    = errors.New("accounts: account not found")
	ErrInvalidResetCode   = errors.New("accounts: invalid reset code")
	ErrResetCodeExpired   = errors.New("accounts: reset code expired")
	ErrForbidden          = errors.New("accounts: not allowed")
)

// Service implements account flows on top of the database.
type Service struct {
	db       *gorm.DB
	resolver *access.Resolver
	now      func() time.Time
}

// NewService builds a Service.
func NewService(db *gorm.DB, resolver *access.Resolver) *Service {
	return &Service{db: db, resolver: resolver, now: time.Now}
}

// Register creates a USER account and its profile.
func (s *Service) Register(ctx context.Context, username, email, password string) (models.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return models.Account{}, ErrUsernameRequired
	}
	if s.resolver.IsReservedUsername(username) {
		return models.Account{}, ErrReservedUsername
	}
	if len(password) < minPasswordLength {
		return models.Account{}, ErrWeakPassword
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return models.Account{}, errHash
	}

	account := models.Account{
		Username: username,
		Email:    email,
		Password: hash,
		IsActive: true,
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if errCount := tx.Model(&models.Account{}).Where("LOWER(username) = ?", strings.ToLower(username)).Count(&count).Error; errCount != nil {
			return fmt.Errorf("accounts: check username: %w", errCount)
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if email != "" {
			if errCount := tx.Model(&models.Account{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&count).Error; errCount != nil {
				return fmt.Errorf("accounts: check email: %w", errCount)
			}
			if count > 0 {
				return ErrEmailTaken
			}
		}
		if errCreate := tx.Create(&account).Error; errCreate != nil {
			return fmt.Errorf("accounts: create account: %w", errCreate)
		}
		profile, errProfile := EnsureProfile(ctx, tx, account.ID)
		if errProfile != nil {
			return errProfile
		}
		account.Profile = &profile
		return nil
	})
	if errTx != nil {
		return models.Account{}, errTx
	}
	return account, nil
}

// Authenticate verifies credentials of an active, unblocked account and records the sign-in.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Account{}, ErrInvalidCredentials
	}
	var account models.Account
	if errFind := s.db.WithContext(ctx).Preload("Groups").Preload("Profile").
		Where("username = ?", username).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Account{}, ErrInvalidCredentials
		}
		return models.Account{}, fmt.Errorf("accounts: find account: %w", errFind)
	}
	if !account.IsActive || !security.CheckPassword(password, account.Password) {
		return models.Account{}, ErrInvalidCredentials
	}
	if account.Profile != nil && account.Profile.Blocked {
		return models.Account{}, ErrAccountBlocked
	}
	now := s.now().UTC()
	if errUpdate := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).Update("last_login_at", now).Error; errUpdate != nil {
		log.WithError(errUpdate).Warn("accounts: record last login")
	} else {
		account.LastLoginAt = &now
	}
	return account, nil
}

// Get loads an account with its groups and profile.
func (s *Service) Get(ctx context.Context, accountID uint64) (models.Account, error) {
	var account models.Account
	if errFind := s.db.WithContext(ctx).Preload("Groups").Preload("Profile").First(&account, accountID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("accounts: load account: %w", errFind)
	}
	return account, nil
}

// SetPassword replaces the password of accountID.
func (s *Service) SetPassword(ctx context.Context, accountID uint64, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("accounts: update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
