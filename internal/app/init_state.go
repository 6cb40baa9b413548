package app

import (
	"fmt"

	"github.com/elostora/shop/internal/models"
	"gorm.io/gorm"
)

// HasAdminInitialized reports whether the system has at least one superuser account.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.Account{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.Account{}).Where("is_superuser = ?", true).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}
