package watcher

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	internalsettings "github.com/elostora/shop/internal/settings"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls.Add(1)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "watcher.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestPollReloadsSettingsWrittenElsewhere(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	w := New(conn, nil, time.Hour)
	w.Poll(ctx, true)

	row := models.Setting{Key: internalsettings.SiteNameKey, Value: datatypes.JSON(`"Watcher Shop"`)}
	if errSave := conn.Save(&row).Error; errSave != nil {
		t.Fatalf("save setting: %v", errSave)
	}
	internalsettings.StoreDBConfig(nil)

	w.Poll(ctx, false)
	name, ok := internalsettings.StringValue(internalsettings.SiteNameKey)
	if !ok || name != "Watcher Shop" {
		t.Fatalf("expected reloaded site name, got %q (ok=%v)", name, ok)
	}
}

func TestPollSkipsUnchangedSettings(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	w := New(conn, nil, time.Hour)
	w.Poll(ctx, true)

	internalsettings.StoreDBConfig(nil)
	w.Poll(ctx, false)
	if _, ok := internalsettings.DBConfigValue(internalsettings.RateLimitLoginKey); ok {
		t.Fatalf("expected no reload without a change")
	}
	w.Poll(ctx, true)
	if _, ok := internalsettings.DBConfigValue(internalsettings.RateLimitLoginKey); !ok {
		t.Fatalf("expected forced reload to restore the snapshot")
	}
}

func TestPollPurgesDiscountsWhenEventsChange(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	pricing := &countingInvalidator{}
	w := New(conn, pricing, time.Hour)
	w.Poll(ctx, true)
	if got := pricing.calls.Load(); got != 0 {
		t.Fatalf("expected no purge on first snapshot, got %d", got)
	}

	w.Poll(ctx, false)
	if got := pricing.calls.Load(); got != 0 {
		t.Fatalf("expected no purge without changes, got %d", got)
	}

	event := models.Event{
		UID: uuid.NewString(), Name: "flash", Type: models.EventTypeFlash,
		EventDate: time.Now().UTC(), DiscountPercentage: 20, IsActive: true, Status: models.EventStatusLive,
	}
	if errCreate := conn.Create(&event).Error; errCreate != nil {
		t.Fatalf("create event: %v", errCreate)
	}
	w.Poll(ctx, false)
	if got := pricing.calls.Load(); got != 1 {
		t.Fatalf("expected one purge after event insert, got %d", got)
	}

	if errDelete := conn.Delete(&models.Event{}, event.ID).Error; errDelete != nil {
		t.Fatalf("delete event: %v", errDelete)
	}
	w.Poll(ctx, false)
	if got := pricing.calls.Load(); got != 2 {
		t.Fatalf("expected purge after event delete, got %d", got)
	}
}

func TestStartStop(t *testing.T) {
	conn := openTestDB(t)
	w := New(conn, nil, 10*time.Millisecond)
	if errStart := w.Start(context.Background()); errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	time.Sleep(30 * time.Millisecond)
	w.Stop()
	w.Stop()
}
