// Package events manages promotional events and their lifecycle.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/elostora/shop/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IsOngoing reports whether the event window contains now.
// Events without an end date run indefinitely once started.
func IsOngoing(event models.Event, now time.Time) bool {
	if event.EventDate.After(now) {
		return false
	}
	return event.EndDate == nil || !now.After(*event.EndDate)
}

// IsUpcoming reports whether the event has not started yet.
func IsUpcoming(event models.Event, now time.Time) bool {
	return event.EventDate.After(now)
}

// IsEnded reports whether the event's end date has passed.
func IsEnded(event models.Event, now time.Time) bool {
	return event.EndDate != nil && now.After(*event.EndDate)
}

// Countdown returns the time left until the event starts, or zero once started.
func Countdown(event models.Event, now time.Time) time.Duration {
	left := event.EventDate.Sub(now)
	if left <= 0 {
		return 0
	}
	return left
}

// SweepResult counts the events moved by SweepStatuses.
type SweepResult struct {
	Started int64
	Ended   int64
}

// SweepStatuses starts due events and ends expired ones.
// Active soon or pending events whose start has passed become live;
// live events whose end date has passed become end.
func SweepStatuses(ctx context.Context, conn *gorm.DB, now time.Time) (SweepResult, error) {
	var result SweepResult
	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		started := tx.Model(&models.Event{}).
			Where("is_active = ? AND status IN ? AND event_date <= ?", true,
				[]models.EventStatus{models.EventStatusSoon, models.EventStatusPending}, now).
			Where("end_date IS NULL OR end_date >= ?", now).
			Updates(map[string]any{"status": models.EventStatusLive, "updated_at": now})
		if started.Error != nil {
			return fmt.Errorf("events: start due events: %w", started.Error)
		}
		result.Started = started.RowsAffected

		ended := tx.Model(&models.Event{}).
			Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.EventStatusLive, now).
			Updates(map[string]any{"status": models.EventStatusEnd, "updated_at": now})
		if ended.Error != nil {
			return fmt.Errorf("events: end expired events: %w", ended.Error)
		}
		result.Ended = ended.RowsAffected
		return nil
	})
	if errTx != nil {
		return SweepResult{}, errTx
	}
	if result.Started > 0 || result.Ended > 0 {
		log.WithFields(log.Fields{"started": result.Started, "ended": result.Ended}).Info("event statuses swept")
	}
	return result, nil
}
