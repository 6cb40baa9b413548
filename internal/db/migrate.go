package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elostora/shop/internal/models"
	internalsettings "github.com/elostora/shop/internal/settings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.Permission{},
		&models.RoleGroup{},
		&models.Account{},
		&models.Profile{},
		&models.BalanceTransaction{},
		&models.PasswordReset{},
		&models.Category{},
		&models.Subcategory{},
		&models.Product{},
		&models.ProductSize{},
		&models.Event{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Coupon{},
		&models.Gift{},
		&models.GiftRedemption{},
		&models.BlogCategory{},
		&models.Post{},
		&models.SearchHistory{},
		&models.Setting{},
	}
}

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(Models()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errCheck := ensureEventPercentageCheck(conn); errCheck != nil {
		return errCheck
	}
	if errSeed := ensureSetting(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.DiscountCacheEnabledKey, internalsettings.DefaultDiscountCacheEnabled); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.RateLimitLoginKey, internalsettings.DefaultRateLimitLogin); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.RateLimitCheckoutKey, internalsettings.DefaultRateLimitCheckout); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.RateLimitRedisEnabledKey, false); errSeed != nil {
		return errSeed
	}
	return nil
}

// ensureEventPercentageCheck adds the 0..100 range check on PostgreSQL.
func ensureEventPercentageCheck(conn *gorm.DB) error {
	if DialectName(conn) != DialectPostgres {
		return nil
	}
	if errCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_events_discount_percentage'
			) THEN
				ALTER TABLE events
				ADD CONSTRAINT chk_events_discount_percentage
				CHECK (discount_percentage BETWEEN 0 AND 100);
			END IF;
		END $$;
	`).Error; errCheck != nil {
		return fmt.Errorf("db: add event percentage check: %w", errCheck)
	}
	return nil
}

// ensureSetting ensures a setting exists and defaults when empty.
func ensureSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := datatypes.JSON(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
