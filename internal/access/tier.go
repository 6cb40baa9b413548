// Package access resolves the ADMIN, MANAGER and USER tiers of an account and
// answers the permission checks the admin surface is gated on.
package access

import (
	"strings"

	"github.com/elostora/shop/internal/models"
	"gorm.io/gorm"
)

// Tier is the coarse privilege level of an account.
type Tier int

// Tier values, ordered from least to most privileged.
const (
	TierUser Tier = iota
	TierManager
	TierAdmin
)

// String returns the upper-case tier name.
func (t Tier) String() string {
	switch t {
	case TierAdmin:
		return "ADMIN"
	case TierManager:
		return "MANAGER"
	default:
		return "USER"
	}
}

// AtLeast reports whether t is min or more privileged.
func (t Tier) AtLeast(min Tier) bool {
	return t >= min
}

// Subject is the account snapshot the tier checks operate on.
type Subject struct {
	ID          uint64
	Username    string
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
	Groups      []string
}

// SubjectFromAccount builds a Subject from a loaded account.
func SubjectFromAccount(account models.Account) Subject {
	return Subject{
		ID:          account.ID,
		Username:    account.Username,
		IsActive:    account.IsActive,
		IsStaff:     account.IsStaff,
		IsSuperuser: account.IsSuperuser,
		Groups:      account.GroupNames(),
	}
}

// Config configures the resolver.
type Config struct {
	// ReservedAdminUsernames always resolve to ADMIN when active. Compared lowercased.
	ReservedAdminUsernames []string
}

// DefaultConfig returns the stock reserved names.
func DefaultConfig() Config {
	return Config{ReservedAdminUsernames: []string{"admin", "elostora"}}
}

// Resolver answers tier and permission questions for a fixed Config.
type Resolver struct {
	reserved     map[string]struct{}
	reservedList []string
}

// NewResolver builds a Resolver. An empty reserved list falls back to DefaultConfig.
func NewResolver(cfg Config) *Resolver {
	names := cfg.ReservedAdminUsernames
	if len(names) == 0 {
		names = DefaultConfig().ReservedAdminUsernames
	}
	r := &Resolver{reserved: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := r.reserved[name]; ok {
			continue
		}
		r.reserved[name] = struct{}{}
		r.reservedList = append(r.reservedList, name)
	}
	return r
}

// IsReservedUsername reports whether username is a reserved admin name.
func (r *Resolver) IsReservedUsername(username string) bool {
	_, ok := r.reserved[strings.ToLower(strings.TrimSpace(username))]
	return ok
}

// ReservedUsernames returns the lowercased reserved admin names.
func (r *Resolver) ReservedUsernames() []string {
	return append([]string(nil), r.reservedList...)
}

// ResolveTier computes the tier of s. Inactive accounts are always USER.
func (r *Resolver) ResolveTier(s Subject) Tier {
	if !s.IsActive {
		return TierUser
	}
	if s.IsSuperuser || r.IsReservedUsername(s.Username) {
		return TierAdmin
	}
	if s.IsStaff {
		return TierManager
	}
	return TierUser
}

// CanListAccounts reports whether actor may open the account listing.
func (r *Resolver) CanListAccounts(actor Subject) bool {
	return r.ResolveTier(actor).AtLeast(TierManager)
}

// CanAdd reports whether actor may create accounts from the admin surface.
func (r *Resolver) CanAdd(actor Subject) bool {
	return r.ResolveTier(actor).AtLeast(TierManager)
}

// CanView reports whether actor may view target.
func (r *Resolver) CanView(actor, target Subject) bool {
	switch r.ResolveTier(actor) {
	case TierAdmin:
		return true
	case TierManager:
		return r.ResolveTier(target) != TierAdmin
	default:
		return false
	}
}

// CanEdit reports whether actor may edit target through the admin surface.
// ADMIN targets are never editable there, not even by themselves.
func (r *Resolver) CanEdit(actor, target Subject) bool {
	if r.ResolveTier(target) == TierAdmin {
		return false
	}
	return r.ResolveTier(actor).AtLeast(TierManager)
}

// CanDelete reports whether actor may delete target.
func (r *Resolver) CanDelete(actor, target Subject) bool {
	targetTier := r.ResolveTier(target)
	if targetTier == TierAdmin {
		return false
	}
	switch r.ResolveTier(actor) {
	case TierAdmin:
		return true
	case TierManager:
		return targetTier != TierManager
	default:
		return false
	}
}

// CanEditSelf reports whether actor may edit its own non-privileged fields.
func (r *Resolver) CanEditSelf(actor, target Subject) bool {
	return actor.ID != 0 && actor.ID == target.ID && actor.IsActive
}

// VisibleScope returns a gorm scope restricting an accounts query to what actor may see.
func (r *Resolver) VisibleScope(actor Subject) func(*gorm.DB) *gorm.DB {
	switch r.ResolveTier(actor) {
	case TierAdmin:
		return func(db *gorm.DB) *gorm.DB { return db }
	case TierManager:
		reserved := r.ReservedUsernames()
		return func(db *gorm.DB) *gorm.DB {
			db = db.Where("is_superuser = ?", false)
			if len(reserved) > 0 {
				db = db.Where("LOWER(username) NOT IN ?", reserved)
			}
			return db
		}
	default:
		return func(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }
	}
}
