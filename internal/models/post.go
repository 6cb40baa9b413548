package models

import "time"

// BlogCategory groups blog posts.
type BlogCategory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"` // Display name.
	Description string `gorm:"type:text"`                              // Description.
}

// Post is a blog article written in markdown.
type Post struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title    string `gorm:"type:varchar(200);not null"`            // Headline.
	Content  string `gorm:"type:text;not null"`                    // Markdown body.
	ImageURL string `gorm:"type:varchar(500)"`                     // Cover image URL.
	Slug     string `gorm:"type:varchar(255);not null;uniqueIndex"` // URL slug.

	CategoryID *uint64       `gorm:"index"`                 // Optional blog category ID.
	Category   *BlogCategory `gorm:"foreignKey:CategoryID"` // Optional blog category.
	AuthorID   *uint64       `gorm:"index"`                 // Authoring account ID.

	IsPublished bool `gorm:"not null;index"` // Visible on the front site.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
