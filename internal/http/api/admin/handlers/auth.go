package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	internalsettings "github.com/elostora/shop/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthHandler signs staff into the admin surface.
type AuthHandler struct {
	svc *api.Services
	now func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *api.Services) *AuthHandler {
	return &AuthHandler{svc: svc, now: time.Now}
}

// loginRequest is the admin login payload.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login authenticates staff. Accounts with TOTP enabled must also send a code.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	account, errAuth := h.svc.Accounts.Authenticate(c.Request.Context(), body.Username, body.Password)
	if errAuth != nil {
		api.RespondError(c, errAuth, "login failed")
		return
	}
	tier := h.svc.Access.ResolveTier(access.SubjectFromAccount(account))
	if !tier.AtLeast(access.TierManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff access required"})
		return
	}
	if account.TOTPSecret != "" {
		code := strings.TrimSpace(body.Code)
		if code == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "totp code required", "mfa_required": true})
			return
		}
		if !security.ValidateTOTP(account.TOTPSecret, code, h.now()) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code", "mfa_required": true})
			return
		}
	}

	token, expiresAt, errToken := security.IssueToken(h.svc.JWT.Secret, account.ID, account.Username,
		security.AudienceAdmin, h.svc.JWT.Expiry, h.now().UTC())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	log.WithFields(log.Fields{"account_id": account.ID, "tier": tier.String()}).Info("admin signed in")
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"account":    formatAccount(account, tier),
	})
}

// MFAHandler manages TOTP enrolment for the signed-in staff account.
type MFAHandler struct {
	svc *api.Services
	now func() time.Time
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(svc *api.Services) *MFAHandler {
	return &MFAHandler{svc: svc, now: time.Now}
}

// Status reports whether TOTP is enabled.
func (h *MFAHandler) Status(c *gin.Context) {
	account, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": account.TOTPSecret != ""})
}

// PrepareTOTP returns a fresh secret and provisioning URL. Nothing is stored until ConfirmTOTP.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	issuer := internalsettings.DefaultSiteName
	if name, ok := internalsettings.StringValue(internalsettings.SiteNameKey); ok && name != "" {
		issuer = name
	}
	secret, url, errGenerate := security.GenerateTOTPSecret(issuer, api.Username(c))
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

type confirmTOTPRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// ConfirmTOTP stores secret once code validates against it.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	secret := strings.TrimSpace(body.Secret)
	if secret == "" || !security.ValidateTOTP(secret, strings.TrimSpace(body.Code), h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid totp code"})
		return
	}
	if errUpdate := h.svc.DB.WithContext(c.Request.Context()).Model(&models.Account{}).
		Where("id = ?", api.AccountID(c)).Update("totp_secret", secret).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": true})
}

type disableTOTPRequest struct {
	Code string `json:"code"`
}

// DisableTOTP clears the secret after a final code check.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	account, ok := h.load(c)
	if !ok {
		return
	}
	if account.TOTPSecret == "" {
		c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
		return
	}
	if !security.ValidateTOTP(account.TOTPSecret, strings.TrimSpace(body.Code), h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid totp code"})
		return
	}
	if errUpdate := h.svc.DB.WithContext(c.Request.Context()).Model(&account).
		Update("totp_secret", "").Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
}

func (h *MFAHandler) load(c *gin.Context) (models.Account, bool) {
	account, errGet := h.svc.Accounts.Get(c.Request.Context(), api.AccountID(c))
	if errGet != nil {
		if errors.Is(errGet, accounts.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return models.Account{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return models.Account{}, false
	}
	return account, true
}
