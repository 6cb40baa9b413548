package models

import "time"

// SearchHistory records a weather lookup.
type SearchHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	City        string  `gorm:"type:varchar(100);not null"` // Queried city name.
	Temperature float64 `gorm:"not null"`                   // Temperature in Celsius.
	FeelsLike   float64 `gorm:"not null"`                   // Apparent temperature in Celsius.
	Humidity    int     `gorm:"not null"`                   // Relative humidity percentage.
	WindSpeed   float64 `gorm:"not null"`                   // Wind speed in m/s.
	Description string  `gorm:"type:varchar(200)"`          // Conditions text.
	Icon        string  `gorm:"type:varchar(10)"`           // Provider icon code.

	SearchedAt time.Time `gorm:"not null;autoCreateTime;index"` // Lookup timestamp.
}

// TableName keeps weather lookups in their own namespace.
func (SearchHistory) TableName() string {
	return "weather_search_histories"
}
