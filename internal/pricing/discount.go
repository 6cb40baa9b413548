// Package pricing resolves event discounts for categories and prices products with them.
package pricing

import (
	"time"

	"github.com/elostora/shop/internal/models"
)

// Discount is the resolved discount for a category at a point in time.
type Discount struct {
	Percentage int    `json:"percentage"`
	EventID    uint64 `json:"event_id,omitempty"`
	EventName  string `json:"event_name,omitempty"`
}

// Active reports whether the discount lowers prices.
func (d Discount) Active() bool {
	return d.Percentage > 0
}

// Qualifies reports whether event grants its discount at now.
func Qualifies(event models.Event, now time.Time) bool {
	return event.IsActive && event.Status == models.EventStatusLive && !event.EventDate.After(now)
}

// BestDiscount picks the qualifying event with the highest percentage.
// Equal percentages resolve to the lowest event ID. It returns (0, nil) when nothing qualifies.
func BestDiscount(events []models.Event, now time.Time) (int, *models.Event) {
	var best *models.Event
	for i := range events {
		event := &events[i]
		if !Qualifies(*event, now) {
			continue
		}
		if best == nil ||
			event.DiscountPercentage > best.DiscountPercentage ||
			event.DiscountPercentage == best.DiscountPercentage && event.ID < best.ID {
			best = event
		}
	}
	if best == nil {
		return 0, nil
	}
	return best.DiscountPercentage, best
}

func discountFromEvent(pct int, event *models.Event) Discount {
	if event == nil {
		return Discount{}
	}
	return Discount{Percentage: pct, EventID: event.ID, EventName: event.Name}
}
