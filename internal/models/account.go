package models

import "time"

// Account represents a person able to authenticate.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text;index"`                // Email address.
	Password string `gorm:"type:text;not null"`             // Argon2id password hash.

	IsActive    bool `gorm:"not null"`               // Whether the account can sign in.
	IsStaff     bool `gorm:"not null;default:false"` // Grants access to the admin surface.
	IsSuperuser bool `gorm:"not null;default:false"` // Grants every permission.

	TOTPSecret string `gorm:"type:text"` // TOTP secret for staff MFA.

	Groups  []RoleGroup `gorm:"many2many:account_groups;"` // Role group memberships.
	Profile *Profile    `gorm:"foreignKey:AccountID"`      // Shop profile.

	LastLoginAt *time.Time // Last successful sign-in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// GroupNames returns the names of the loaded role groups.
func (a *Account) GroupNames() []string {
	if a == nil || len(a.Groups) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.Groups))
	for _, group := range a.Groups {
		names = append(names, group.Name)
	}
	return names
}
