package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	internalsettings "github.com/elostora/shop/internal/settings"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SettingHandler manages admin CRUD for settings values.
type SettingHandler struct {
	svc *api.Services
}

// NewSettingHandler constructs a settings handler.
func NewSettingHandler(svc *api.Services) *SettingHandler {
	return &SettingHandler{svc: svc}
}

// createSettingRequest captures the payload for creating a setting.
type createSettingRequest struct {
	Key   string          `json:"key"`   // Setting key.
	Value json.RawMessage `json:"value"` // JSON value payload.
}

var nonNegativeIntSettingKeys = map[string]struct{}{
	internalsettings.RateLimitLoginKey:    {},
	internalsettings.RateLimitCheckoutKey: {},
	internalsettings.RateLimitRedisDBKey:  {},
}

var boolSettingKeys = map[string]struct{}{
	internalsettings.DiscountCacheEnabledKey:  {},
	internalsettings.RateLimitRedisEnabledKey: {},
}

var (
	errUnknownSettingKey       = errors.New("unknown setting key")
	errNonNegativeIntegerValue = errors.New("value must be a non-negative integer")
	errBooleanValue            = errors.New("value must be a boolean")
	errStringValue             = errors.New("value must be a string")
)

// Create validates and inserts a setting, then refreshes the snapshot.
func (h *SettingHandler) Create(c *gin.Context) {
	var body createSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	key := strings.TrimSpace(body.Key)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	if errValidate := validateSettingValue(key, body.Value); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}

	ctx := c.Request.Context()
	var existing models.Setting
	if errFind := h.svc.DB.WithContext(ctx).Where("key = ?", key).First(&existing).Error; errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "key already exists"})
		return
	}

	setting := models.Setting{Key: key, Value: datatypes.JSON(body.Value)}
	if errCreate := h.svc.DB.WithContext(ctx).Create(&setting).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create setting failed"})
		return
	}
	if errRefresh := h.refresh(ctx, key); errRefresh != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh settings snapshot failed"})
		return
	}
	c.JSON(http.StatusCreated, formatSetting(&setting))
}

// List returns all settings sorted by key, plus the editable key set.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.svc.DB.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatSetting(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"settings": out, "keys": internalsettings.Keys})
}

// Get returns a setting by key.
func (h *SettingHandler) Get(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	var setting models.Setting
	if errFind := h.svc.DB.WithContext(c.Request.Context()).Where("key = ?", key).First(&setting).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatSetting(&setting))
}

// updateSettingRequest captures the payload for updating a setting.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"` // New JSON value.
}

// Update updates a setting value and refreshes the snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errValidate := validateSettingValue(key, body.Value); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}

	ctx := c.Request.Context()
	res := h.svc.DB.WithContext(ctx).Model(&models.Setting{}).Where("key = ?", key).
		Update("value", datatypes.JSON(body.Value))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if errRefresh := h.refresh(ctx, key); errRefresh != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh settings snapshot failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a setting and refreshes the snapshot.
func (h *SettingHandler) Delete(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	ctx := c.Request.Context()
	res := h.svc.DB.WithContext(ctx).Where("key = ?", key).Delete(&models.Setting{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if errRefresh := h.refresh(ctx, key); errRefresh != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh settings snapshot failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// refresh rebuilds the settings snapshot and drops cached discounts when
// the cache toggle changed.
func (h *SettingHandler) refresh(ctx context.Context, key string) error {
	if errReload := internalsettings.Reload(ctx, h.svc.DB); errReload != nil {
		return errReload
	}
	if key == internalsettings.DiscountCacheEnabledKey && h.svc.Pricing != nil {
		h.svc.Pricing.Invalidate(ctx)
	}
	return nil
}

func validateSettingValue(key string, value json.RawMessage) error {
	if !internalsettings.IsKnownKey(key) {
		return errUnknownSettingKey
	}
	if _, ok := nonNegativeIntSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseNonNegativeInt(value); !okParse {
			return errNonNegativeIntegerValue
		}
		return nil
	}
	if _, ok := boolSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseBool(value); !okParse {
			return errBooleanValue
		}
		return nil
	}
	if _, ok := internalsettings.ParseString(value); !ok {
		return errStringValue
	}
	return nil
}

// formatSetting formats a setting row into response JSON.
func formatSetting(s *models.Setting) gin.H {
	return gin.H{
		"key":        s.Key,
		"value":      json.RawMessage(s.Value),
		"updated_at": s.UpdatedAt,
	}
}
