package models

import "time"

// RoleGroup is a named collection of accounts sharing a permission set.
type RoleGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Group name.

	Permissions []Permission `gorm:"many2many:group_permissions;"` // Granted permissions.
	Accounts    []Account    `gorm:"many2many:account_groups;"`    // Member accounts.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Permission is a grantable action on an entity, e.g. "change_account".
type Permission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Codename string `gorm:"type:text;not null;uniqueIndex"` // Machine name.
	Name     string `gorm:"type:text;not null"`             // Human readable label.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
