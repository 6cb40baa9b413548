package models

import "time"

// EventStatus is the operator-driven lifecycle state of an event.
type EventStatus string

// EventStatus values.
const (
	// EventStatusPending is an event not yet scheduled for display.
	EventStatusPending EventStatus = "pending"
	// EventStatusLive is an event currently granting its discount.
	EventStatusLive EventStatus = "live"
	// EventStatusSoon is an announced upcoming event.
	EventStatusSoon EventStatus = "soon"
	// EventStatusEnd is a finished event.
	EventStatusEnd EventStatus = "end"
	// EventStatusCancelled is a withdrawn event.
	EventStatusCancelled EventStatus = "cancelled"
)

// EventType describes the kind of campaign.
type EventType string

// EventType values.
const (
	EventTypeSale     EventType = "sale"
	EventTypeDiscount EventType = "discount"
	EventTypeOffer    EventType = "offer"
	EventTypeLaunch   EventType = "launch"
	EventTypeFlash    EventType = "flash"
	EventTypeSeasonal EventType = "seasonal"
)

// Event is a promotional campaign that may discount products of its categories.
type Event struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UID         string    `gorm:"type:varchar(36);not null;uniqueIndex"` // Public identifier.
	Name        string    `gorm:"type:varchar(200);not null"`            // Display name.
	Description string    `gorm:"type:text"`                             // Campaign description.
	Type        EventType `gorm:"type:varchar(20);not null;default:'sale'"` // Campaign kind.

	EventDate time.Time  `gorm:"not null;index"` // Start timestamp.
	EndDate   *time.Time // Optional end timestamp.

	DiscountPercentage int `gorm:"not null;default:0"` // Discount in [0,100].

	Categories []Category `gorm:"many2many:event_categories;"` // Discounted categories.

	BannerURL string      `gorm:"type:varchar(500)"`                          // Banner image URL.
	IsActive  bool        `gorm:"not null;index"`                             // Operator kill switch.
	Status    EventStatus `gorm:"type:varchar(20);not null;default:'pending'"` // Lifecycle state.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsValidEventStatus reports whether s is a known event status.
func IsValidEventStatus(s EventStatus) bool {
	switch s {
	case EventStatusPending, EventStatusLive, EventStatusSoon, EventStatusEnd, EventStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValidEventType reports whether t is a known event type.
func IsValidEventType(t EventType) bool {
	switch t {
	case EventTypeSale, EventTypeDiscount, EventTypeOffer, EventTypeLaunch, EventTypeFlash, EventTypeSeasonal:
		return true
	default:
		return false
	}
}
