package events

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWindowHelpers(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	tests := []struct {
		name     string
		event    models.Event
		ongoing  bool
		upcoming bool
		ended    bool
		left     time.Duration
	}{
		{name: "future", event: models.Event{EventDate: now.Add(2 * time.Hour)}, upcoming: true, left: 2 * time.Hour},
		{name: "open ended", event: models.Event{EventDate: now.Add(-time.Hour)}, ongoing: true},
		{name: "inside window", event: models.Event{EventDate: now.Add(-time.Hour), EndDate: &end}, ongoing: true},
		{name: "ends exactly now", event: models.Event{EventDate: now.Add(-time.Hour), EndDate: &now}, ongoing: true},
		{name: "finished", event: models.Event{EventDate: now.Add(-time.Hour), EndDate: &past}, ended: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOngoing(tc.event, now); got != tc.ongoing {
				t.Fatalf("expected ongoing=%v, got %v", tc.ongoing, got)
			}
			if got := IsUpcoming(tc.event, now); got != tc.upcoming {
				t.Fatalf("expected upcoming=%v, got %v", tc.upcoming, got)
			}
			if got := IsEnded(tc.event, now); got != tc.ended {
				t.Fatalf("expected ended=%v, got %v", tc.ended, got)
			}
			if got := Countdown(tc.event, now); got != tc.left {
				t.Fatalf("expected countdown %s, got %s", tc.left, got)
			}
		})
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, errOpen)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func seedEvent(t *testing.T, conn *gorm.DB, status models.EventStatus, active bool, start time.Time, end *time.Time) models.Event {
	t.Helper()
	event := models.Event{
		UID: uuid.NewString(), Name: "promo", Type: models.EventTypeFlash,
		EventDate: start, EndDate: end, DiscountPercentage: 10, IsActive: active, Status: status,
	}
	require.NoError(t, conn.Create(&event).Error)
	return event
}

func statusOf(t *testing.T, conn *gorm.DB, id uint64) models.EventStatus {
	t.Helper()
	var event models.Event
	require.NoError(t, conn.First(&event, id).Error)
	return event.Status
}

func TestSweepStatuses(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	due := seedEvent(t, conn, models.EventStatusSoon, true, now.Add(-time.Minute), &later)
	pending := seedEvent(t, conn, models.EventStatusPending, true, now.Add(-time.Minute), nil)
	future := seedEvent(t, conn, models.EventStatusSoon, true, now.Add(time.Minute), nil)
	disabled := seedEvent(t, conn, models.EventStatusSoon, false, now.Add(-time.Minute), nil)
	expired := seedEvent(t, conn, models.EventStatusLive, true, now.Add(-2*time.Hour), &earlier)

	result, err := SweepStatuses(ctx, conn, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Started)
	require.EqualValues(t, 1, result.Ended)

	require.Equal(t, models.EventStatusLive, statusOf(t, conn, due.ID))
	require.Equal(t, models.EventStatusLive, statusOf(t, conn, pending.ID))
	require.Equal(t, models.EventStatusSoon, statusOf(t, conn, future.ID))
	require.Equal(t, models.EventStatusSoon, statusOf(t, conn, disabled.ID))
	require.Equal(t, models.EventStatusEnd, statusOf(t, conn, expired.ID))
}

func TestServiceCreateDrivesDiscount(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	resolver := pricing.NewResolver(conn, pricing.NewCache(nil, "test", func() bool { return true }))
	svc := NewService(conn, resolver)

	category := models.Category{Name: "bags", Slug: "bags"}
	require.NoError(t, conn.Create(&category).Error)
	now := time.Now().UTC()

	_, err := svc.Create(ctx, Input{Name: "bad", DiscountPercentage: 120})
	require.ErrorIs(t, err, ErrInvalidPercentage)
	_, err = svc.Create(ctx, Input{Name: "bad", Type: "raffle"})
	require.ErrorIs(t, err, ErrInvalidType)

	price, err := resolver.DiscountedPrice(ctx, decimal.NewFromInt(100), &category.ID, now)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(100)))

	event, err := svc.Create(ctx, Input{
		Name: "bag week", EventDate: now.Add(-time.Hour), DiscountPercentage: 25,
		CategoryIDs: []uint64{category.ID}, IsActive: true, Status: models.EventStatusLive,
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.UID)
	require.Len(t, event.Categories, 1)

	price, err = resolver.DiscountedPrice(ctx, decimal.NewFromInt(100), &category.ID, now)
	require.NoError(t, err)
	require.Truef(t, price.Equal(decimal.NewFromInt(75)), "expected 75, got %s", price)

	byUID, err := svc.Get(ctx, event.UID)
	require.NoError(t, err)
	require.Equal(t, event.ID, byUID.ID)

	updated, err := svc.Update(ctx, event.ID, Input{
		Name: "bag week", EventDate: now.Add(-time.Hour), DiscountPercentage: 25,
		IsActive: false, Status: models.EventStatusLive,
	})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Empty(t, updated.Categories)

	price, err = resolver.DiscountedPrice(ctx, decimal.NewFromInt(100), &category.ID, now)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(100)))

	require.NoError(t, svc.Delete(ctx, event.ID))
	_, err = svc.Get(ctx, strconv.FormatUint(event.ID, 10))
	require.ErrorIs(t, err, ErrEventNotFound)
	require.ErrorIs(t, svc.Delete(ctx, event.ID), ErrEventNotFound)
}
