package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	ctxAccountID = "accountID"
	ctxUsername  = "username"
	ctxSubject   = "subject"
	ctxTier      = "tier"
)

// Authenticate validates a bearer token issued for audience and loads the account.
// Inactive or blocked accounts are rejected with 403.
func Authenticate(svc *Services, audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(svc.JWT.Secret, token, audience)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var account models.Account
		if errFind := svc.DB.WithContext(c.Request.Context()).
			Preload("Groups").Preload("Profile").
			First(&account, claims.AccountID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if !account.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}
		if account.Profile != nil && account.Profile.Blocked {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account blocked"})
			return
		}

		subject := access.SubjectFromAccount(account)
		c.Set(ctxAccountID, account.ID)
		c.Set(ctxUsername, account.Username)
		c.Set(ctxSubject, subject)
		c.Set(ctxTier, svc.Access.ResolveTier(subject))
		c.Next()
	}
}

// RequireTier aborts with 403 unless the authenticated account resolves to min or above.
func RequireTier(min access.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tier := Tier(c)
		if !tier.AtLeast(min) {
			log.WithFields(log.Fields{
				"account_id": AccountID(c),
				"tier":       tier.String(),
				"required":   min.String(),
				"path":       c.FullPath(),
			}).Info("access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account ID or 0.
func AccountID(c *gin.Context) uint64 {
	if v, ok := c.Get(ctxAccountID); ok {
		if id, okID := v.(uint64); okID {
			return id
		}
	}
	return 0
}

// Username returns the authenticated username.
func Username(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// Subject returns the authenticated access subject.
func Subject(c *gin.Context) access.Subject {
	if v, ok := c.Get(ctxSubject); ok {
		if subject, okSubject := v.(access.Subject); okSubject {
			return subject
		}
	}
	return access.Subject{}
}

// Tier returns the resolved tier of the authenticated account, USER when unauthenticated.
func Tier(c *gin.Context) access.Tier {
	if v, ok := c.Get(ctxTier); ok {
		if tier, okTier := v.(access.Tier); okTier {
			return tier
		}
	}
	return access.TierUser
}

// ParseID reads a positive uint64 path parameter. It writes a 400 and returns false on failure.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// QueryInt reads an integer query parameter, returning def when absent or invalid.
func QueryInt(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	v, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return def
	}
	return v
}

// QueryID reads an optional positive uint64 query parameter.
func QueryID(c *gin.Context, name string) *uint64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || id == 0 {
		return nil
	}
	return &id
}
