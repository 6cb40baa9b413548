package handlers

import (
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AccountHandler manages accounts from the admin surface.
// Every action is gated by the tier rules of the access resolver.
type AccountHandler struct {
	svc *api.Services
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(svc *api.Services) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// List returns the accounts visible to the caller.
func (h *AccountHandler) List(c *gin.Context) {
	actor := api.Subject(c)
	if !h.svc.Access.CanListAccounts(actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	conn := h.svc.DB.WithContext(c.Request.Context())
	query := conn.Model(&models.Account{}).Scopes(h.svc.Access.VisibleScope(actor))
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		pattern := db.ContainsPattern(conn, q)
		query = query.Where(
			conn.Where(db.CaseInsensitiveLikeExpr(conn, "username"), pattern).
				Or(db.CaseInsensitiveLikeExpr(conn, "email"), pattern),
		)
	}
	limit := api.QueryInt(c, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.Account
	if errFind := query.Preload("Groups").Preload("Profile").
		Order("id ASC").Limit(limit).Offset(max(api.QueryInt(c, "offset", 0), 0)).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list accounts failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatAccount(row, h.svc.Access.ResolveTier(access.SubjectFromAccount(row))))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

type createAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Create adds a USER account on behalf of staff.
func (h *AccountHandler) Create(c *gin.Context) {
	if !h.svc.Access.CanAdd(api.Subject(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var body createAccountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	account, errRegister := h.svc.Accounts.Register(c.Request.Context(), body.Username, body.Email, body.Password)
	if errRegister != nil {
		api.RespondError(c, errRegister, "create account failed")
		return
	}
	log.WithFields(log.Fields{"account_id": account.ID, "actor_id": api.AccountID(c)}).Info("account created")
	c.JSON(http.StatusCreated, formatAccount(account, h.svc.Access.ResolveTier(access.SubjectFromAccount(account))))
}

// Get returns one account when the caller may view it.
func (h *AccountHandler) Get(c *gin.Context) {
	target, ok := h.loadTarget(c)
	if !ok {
		return
	}
	if !h.svc.Access.CanView(api.Subject(c), access.SubjectFromAccount(target)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, formatAccount(target, h.svc.Access.ResolveTier(access.SubjectFromAccount(target))))
}

// updateAccountRequest carries the fields staff may change. Tier flags are
// only changed through promote and demote.
type updateAccountRequest struct {
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Country  *string `json:"country"`
	Warning  *bool   `json:"warning"`
	Blocked  *bool   `json:"blocked"`
	Points   *int64  `json:"points"`
}

// Update edits an account and its profile when the caller may edit it.
func (h *AccountHandler) Update(c *gin.Context) {
	var body updateAccountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	target, ok := h.loadTarget(c)
	if !ok {
		return
	}
	if !h.svc.Access.CanEdit(api.Subject(c), access.SubjectFromAccount(target)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if body.Points != nil && *body.Points < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points must not be negative"})
		return
	}

	ctx := c.Request.Context()
	errTx := h.svc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accountUpdates := map[string]any{}
		if body.Email != nil {
			accountUpdates["email"] = strings.TrimSpace(*body.Email)
		}
		if body.IsActive != nil {
			accountUpdates["is_active"] = *body.IsActive
		}
		if len(accountUpdates) > 0 {
			if errUpdate := tx.Model(&models.Account{}).Where("id = ?", target.ID).Updates(accountUpdates).Error; errUpdate != nil {
				return errUpdate
			}
		}
		profileUpdates := map[string]any{}
		if body.Phone != nil {
			profileUpdates["phone"] = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			profileUpdates["address"] = strings.TrimSpace(*body.Address)
		}
		if body.Country != nil {
			profileUpdates["country"] = strings.TrimSpace(*body.Country)
		}
		if body.Warning != nil {
			profileUpdates["warning"] = *body.Warning
		}
		if body.Blocked != nil {
			profileUpdates["blocked"] = *body.Blocked
		}
		if body.Points != nil {
			profileUpdates["points"] = *body.Points
		}
		if len(profileUpdates) == 0 {
			return nil
		}
		profile := models.Profile{AccountID: target.ID}
		if errProfile := tx.Where("account_id = ?", target.ID).FirstOrCreate(&profile).Error; errProfile != nil {
			return errProfile
		}
		return tx.Model(&profile).Updates(profileUpdates).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update account failed"})
		return
	}

	updated, errGet := h.svc.Accounts.Get(ctx, target.ID)
	if errGet != nil {
		api.RespondError(c, errGet, "load account failed")
		return
	}
	log.WithFields(log.Fields{"account_id": target.ID, "actor_id": api.AccountID(c)}).Info("account updated")
	c.JSON(http.StatusOK, formatAccount(updated, h.svc.Access.ResolveTier(access.SubjectFromAccount(updated))))
}

// Delete removes an account, its profile and its group memberships.
func (h *AccountHandler) Delete(c *gin.Context) {
	target, ok := h.loadTarget(c)
	if !ok {
		return
	}
	if !h.svc.Access.CanDelete(api.Subject(c), access.SubjectFromAccount(target)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	errTx := h.svc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errClear := tx.Model(&target).Association("Groups").Clear(); errClear != nil {
			return errClear
		}
		if errProfile := tx.Where("account_id = ?", target.ID).Delete(&models.Profile{}).Error; errProfile != nil {
			return errProfile
		}
		return tx.Delete(&models.Account{}, target.ID).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete account failed"})
		return
	}
	log.WithFields(log.Fields{"account_id": target.ID, "actor_id": api.AccountID(c)}).Info("account deleted")
	c.Status(http.StatusNoContent)
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePassword sets a new password on an editable account.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	target, ok := h.loadTarget(c)
	if !ok {
		return
	}
	if !h.svc.Access.CanEdit(api.Subject(c), access.SubjectFromAccount(target)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if errSet := h.svc.Accounts.SetPassword(c.Request.Context(), target.ID, body.Password); errSet != nil {
		api.RespondError(c, errSet, "change password failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Promote grants the MANAGER tier.
func (h *AccountHandler) Promote(c *gin.Context) {
	target, ok := h.loadEditableTarget(c)
	if !ok {
		return
	}
	if errPromote := h.svc.Access.PromoteToManager(c.Request.Context(), h.svc.DB, target.ID); errPromote != nil {
		api.RespondError(c, errPromote, "promote failed")
		return
	}
	h.respondAccount(c, target.ID)
}

// Demote revokes the MANAGER tier.
func (h *AccountHandler) Demote(c *gin.Context) {
	target, ok := h.loadEditableTarget(c)
	if !ok {
		return
	}
	if errDemote := h.svc.Access.DemoteFromManager(c.Request.Context(), h.svc.DB, target.ID); errDemote != nil {
		api.RespondError(c, errDemote, "demote failed")
		return
	}
	h.respondAccount(c, target.ID)
}

func (h *AccountHandler) loadEditableTarget(c *gin.Context) (models.Account, bool) {
	target, ok := h.loadTarget(c)
	if !ok {
		return models.Account{}, false
	}
	if !h.svc.Access.CanEdit(api.Subject(c), access.SubjectFromAccount(target)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return models.Account{}, false
	}
	return target, true
}

func (h *AccountHandler) respondAccount(c *gin.Context, id uint64) {
	account, errGet := h.svc.Accounts.Get(c.Request.Context(), id)
	if errGet != nil {
		api.RespondError(c, errGet, "load account failed")
		return
	}
	c.JSON(http.StatusOK, formatAccount(account, h.svc.Access.ResolveTier(access.SubjectFromAccount(account))))
}

func (h *AccountHandler) loadTarget(c *gin.Context) (models.Account, bool) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return models.Account{}, false
	}
	account, errGet := h.svc.Accounts.Get(c.Request.Context(), id)
	if errGet != nil {
		api.RespondError(c, errGet, "load account failed")
		return models.Account{}, false
	}
	return account, true
}

// RoleGroupHandler lists role groups.
type RoleGroupHandler struct {
	db *gorm.DB
}

// NewRoleGroupHandler constructs a RoleGroupHandler.
func NewRoleGroupHandler(db *gorm.DB) *RoleGroupHandler {
	return &RoleGroupHandler{db: db}
}

// List returns every group with its permission codenames and member count.
func (h *RoleGroupHandler) List(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	var groups []models.RoleGroup
	if errFind := conn.Preload("Permissions").Order("name ASC").Find(&groups).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list groups failed"})
		return
	}
	out := make([]gin.H, 0, len(groups))
	for _, group := range groups {
		codenames := make([]string, 0, len(group.Permissions))
		for _, perm := range group.Permissions {
			codenames = append(codenames, perm.Codename)
		}
		members := conn.Model(&group).Association("Accounts").Count()
		out = append(out, gin.H{
			"id":          group.ID,
			"name":        group.Name,
			"permissions": codenames,
			"members":     members,
		})
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// formatAccount renders an account without its password hash or TOTP secret.
func formatAccount(account models.Account, tier access.Tier) gin.H {
	out := gin.H{
		"id":            account.ID,
		"username":      account.Username,
		"email":         account.Email,
		"is_active":     account.IsActive,
		"is_staff":      account.IsStaff,
		"is_superuser":  account.IsSuperuser,
		"tier":          tier.String(),
		"groups":        account.GroupNames(),
		"totp_enabled":  account.TOTPSecret != "",
		"last_login_at": account.LastLoginAt,
		"created_at":    account.CreatedAt,
	}
	if account.Profile != nil {
		out["profile"] = gin.H{
			"phone":            account.Profile.Phone,
			"address":          account.Profile.Address,
			"country":          account.Profile.Country,
			"warning":          account.Profile.Warning,
			"blocked":          account.Profile.Blocked,
			"balance":          account.Profile.Balance,
			"total_spent":      account.Profile.TotalSpent,
			"points":           account.Profile.Points,
			"last_purchase_at": account.Profile.LastPurchaseAt,
		}
	}
	return out
}
