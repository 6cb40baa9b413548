package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ManagersGroupName is the role group granting the MANAGER permission set.
const ManagersGroupName = "managers"

var (
	// ErrAccountNotFound is returned when the target account does not exist.
	ErrAccountNotFound = errors.New("access: account not found")
	// ErrProtectedAccount is returned when a mutation targets an ADMIN-tier account.
	ErrProtectedAccount = errors.New("access: account is protected")
)

// managerPermissions is the exact permission set of the managers group.
var managerPermissions = []models.Permission{
	{Codename: "add_account", Name: "Can add account"},
	{Codename: "change_account", Name: "Can change account"},
	{Codename: "delete_account", Name: "Can delete account"},
	{Codename: "view_account", Name: "Can view account"},
}

// EnsureManagersGroup fetches or creates the managers group and pins its permissions.
func EnsureManagersGroup(ctx context.Context, conn *gorm.DB) (models.RoleGroup, error) {
	var group models.RoleGroup
	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errEnsure error
		group, errEnsure = ensureManagersGroup(tx)
		return errEnsure
	})
	if errTx != nil {
		return models.RoleGroup{}, errTx
	}
	return group, nil
}

func ensureManagersGroup(tx *gorm.DB) (models.RoleGroup, error) {
	perms := make([]models.Permission, 0, len(managerPermissions))
	for _, def := range managerPermissions {
		perm := models.Permission{}
		if errPerm := tx.Where("codename = ?", def.Codename).
			Attrs(models.Permission{Name: def.Name}).
			FirstOrCreate(&perm, models.Permission{Codename: def.Codename}).Error; errPerm != nil {
			return models.RoleGroup{}, fmt.Errorf("access: ensure permission %s: %w", def.Codename, errPerm)
		}
		perms = append(perms, perm)
	}

	var group models.RoleGroup
	if errGroup := tx.Where("name = ?", ManagersGroupName).
		FirstOrCreate(&group, models.RoleGroup{Name: ManagersGroupName}).Error; errGroup != nil {
		return models.RoleGroup{}, fmt.Errorf("access: ensure managers group: %w", errGroup)
	}
	if errReplace := tx.Model(&group).Association("Permissions").Replace(perms); errReplace != nil {
		return models.RoleGroup{}, fmt.Errorf("access: set managers permissions: %w", errReplace)
	}
	group.Permissions = perms
	return group, nil
}

// loadLockedAccount loads the account row with its groups under a row lock.
func loadLockedAccount(tx *gorm.DB, accountID uint64) (models.Account, error) {
	var account models.Account
	if errFind := db.LockForUpdate(tx).Preload("Groups").First(&account, accountID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("access: load account: %w", errFind)
	}
	return account, nil
}

// PromoteToManager marks the account as staff and adds it to the managers group.
// Calling it again is a no-op. ADMIN-tier accounts are refused.
func (r *Resolver) PromoteToManager(ctx context.Context, conn *gorm.DB, accountID uint64) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, errLoad := loadLockedAccount(tx, accountID)
		if errLoad != nil {
			return errLoad
		}
		if r.ResolveTier(SubjectFromAccount(account)) == TierAdmin {
			return ErrProtectedAccount
		}
		group, errGroup := ensureManagersGroup(tx)
		if errGroup != nil {
			return errGroup
		}
		if !account.IsStaff {
			if errUpdate := tx.Model(&account).Update("is_staff", true).Error; errUpdate != nil {
				return fmt.Errorf("access: set staff flag: %w", errUpdate)
			}
		}
		for _, existing := range account.Groups {
			if existing.ID == group.ID {
				return nil
			}
		}
		if errAppend := tx.Model(&account).Association("Groups").Append(&group); errAppend != nil {
			return fmt.Errorf("access: add managers membership: %w", errAppend)
		}
		log.WithFields(log.Fields{"account_id": accountID}).Info("access: promoted to manager")
		return nil
	})
}

// DemoteFromManager removes the managers membership and clears the staff flag
// once the account belongs to no group. ADMIN-tier accounts are refused.
func (r *Resolver) DemoteFromManager(ctx context.Context, conn *gorm.DB, accountID uint64) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, errLoad := loadLockedAccount(tx, accountID)
		if errLoad != nil {
			return errLoad
		}
		if r.ResolveTier(SubjectFromAccount(account)) == TierAdmin {
			return ErrProtectedAccount
		}
		for _, existing := range account.Groups {
			if existing.Name != ManagersGroupName {
				continue
			}
			group := existing
			if errDelete := tx.Model(&account).Association("Groups").Delete(&group); errDelete != nil {
				return fmt.Errorf("access: remove managers membership: %w", errDelete)
			}
		}
		groups := tx.Model(&account).Association("Groups")
		remaining := groups.Count()
		if groups.Error != nil {
			return fmt.Errorf("access: count memberships: %w", groups.Error)
		}
		if remaining == 0 && account.IsStaff {
			if errUpdate := tx.Model(&account).Update("is_staff", false).Error; errUpdate != nil {
				return fmt.Errorf("access: clear staff flag: %w", errUpdate)
			}
		}
		log.WithFields(log.Fields{"account_id": accountID, "remaining_groups": remaining}).Info("access: demoted from manager")
		return nil
	})
}

// EnsureAdminAccount fetches or creates the superuser named username.
// An existing account gets its admin flags restored and, when password does not
// verify against the stored hash, its password reset. The bool reports creation.
func EnsureAdminAccount(ctx context.Context, conn *gorm.DB, username, email, password string) (models.Account, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Account{}, false, fmt.Errorf("access: admin username and password are required")
	}

	var (
		account models.Account
		created bool
	)
	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errFind := db.LockForUpdate(tx).Where("LOWER(username) = ?", strings.ToLower(username)).First(&account).Error
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("access: find admin: %w", errFind)
		}
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			hash, errHash := security.HashPassword(password)
			if errHash != nil {
				return fmt.Errorf("access: hash admin password: %w", errHash)
			}
			account = models.Account{
				Username:    username,
				Email:       strings.TrimSpace(email),
				Password:    hash,
				IsActive:    true,
				IsStaff:     true,
				IsSuperuser: true,
			}
			if errCreate := tx.Create(&account).Error; errCreate != nil {
				return fmt.Errorf("access: create admin: %w", errCreate)
			}
			created = true
			return nil
		}

		updates := map[string]any{}
		if !account.IsActive {
			updates["is_active"] = true
		}
		if !account.IsStaff {
			updates["is_staff"] = true
		}
		if !account.IsSuperuser {
			updates["is_superuser"] = true
		}
		if !security.CheckPassword(password, account.Password) {
			hash, errHash := security.HashPassword(password)
			if errHash != nil {
				return fmt.Errorf("access: hash admin password: %w", errHash)
			}
			updates["password"] = hash
		}
		if len(updates) == 0 {
			return nil
		}
		if errUpdate := tx.Model(&account).Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("access: update admin: %w", errUpdate)
		}
		return tx.First(&account, account.ID).Error
	})
	if errTx != nil {
		return models.Account{}, false, errTx
	}
	return account, created, nil
}
