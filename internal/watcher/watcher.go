// Package watcher polls the database for changes made by other instances and
// refreshes the in-process settings snapshot and discount cache.
package watcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/elostora/shop/internal/models"
	internalsettings "github.com/elostora/shop/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Default timings for the watcher loop.
const (
	// defaultPollInterval controls how often DB snapshots are refreshed.
	defaultPollInterval = 2 * time.Second
	// defaultQueryTimeout bounds DB query duration.
	defaultQueryTimeout = 10 * time.Second
)

// Invalidator drops derived state after events change.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// marker identifies the newest row of a table plus its row count.
type marker struct {
	at    time.Time
	key   string
	count int64
	set   bool
}

func (m marker) equal(other marker) bool {
	return m.set == other.set && m.at.Equal(other.at) && m.key == other.key && m.count == other.count
}

// Watcher polls the settings and events tables.
type Watcher struct {
	db           *gorm.DB
	pricing      Invalidator
	pollInterval time.Duration

	mu       sync.Mutex
	settings marker
	events   marker
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New builds a Watcher. pricing may be nil; interval <= 0 uses the default.
func New(db *gorm.DB, pricing Invalidator, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{db: db, pricing: pricing, pollInterval: interval}
}

// Start takes the initial snapshot and launches the polling goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil || w.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.Poll(runCtx, true)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(runCtx)
	}()
	log.Infof("db watcher started (poll_interval=%s)", w.pollInterval)
	return nil
}

// Stop cancels the polling goroutine and waits for it to exit.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx, false)
		}
	}
}

// Poll checks both tables once. force reloads regardless of the markers.
func (w *Watcher) Poll(ctx context.Context, force bool) {
	w.pollSettings(ctx, force)
	w.pollEvents(ctx, force)
}

// pollSettings reloads the settings snapshot when any row changed.
func (w *Watcher) pollSettings(ctx context.Context, force bool) {
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	latest, ok := w.latest(qctx, &models.Setting{}, "key")
	if !ok {
		return
	}
	w.mu.Lock()
	unchanged := !force && latest.equal(w.settings)
	w.mu.Unlock()
	if unchanged {
		return
	}

	if errReload := internalsettings.Reload(qctx, w.db); errReload != nil {
		if !errors.Is(errReload, context.Canceled) {
			log.WithError(errReload).Warn("db watcher: reload settings failed")
		}
		return
	}
	log.WithFields(log.Fields{
		"latest_updated_at": latest.at.Format(time.RFC3339Nano),
		"latest_key":        latest.key,
		"rows":              latest.count,
	}).Debug("db watcher: settings reloaded")

	w.mu.Lock()
	previous := w.settings
	w.settings = latest
	w.mu.Unlock()
	// The discount cache toggle lives in settings; a flip must not serve stale entries.
	if previous.set && w.pricing != nil {
		w.pricing.Invalidate(qctx)
	}
}

// pollEvents purges the discount cache when an event was written elsewhere.
func (w *Watcher) pollEvents(ctx context.Context, force bool) {
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	latest, ok := w.latest(qctx, &models.Event{}, "id")
	if !ok {
		return
	}
	w.mu.Lock()
	previous := w.events
	w.events = latest
	w.mu.Unlock()
	if !previous.set || (!force && latest.equal(previous)) {
		return
	}
	log.WithField("latest_updated_at", latest.at.Format(time.RFC3339Nano)).Info("db watcher: events changed, purging discount cache")
	if w.pricing != nil {
		w.pricing.Invalidate(qctx)
	}
}

// latest returns the newest updated_at row and the row count of model's table.
func (w *Watcher) latest(ctx context.Context, model any, keyColumn string) (marker, bool) {
	// latestRow captures the newest row for change detection.
	type latestRow struct {
		Key       string     `gorm:"column:row_key"`
		UpdatedAt *time.Time `gorm:"column:updated_at"`
	}
	var m marker
	if errCount := w.db.WithContext(ctx).Model(model).Count(&m.count).Error; errCount != nil {
		if !errors.Is(errCount, context.Canceled) {
			log.WithError(errCount).Warn("db watcher: count rows failed")
		}
		return marker{}, false
	}
	var row latestRow
	errLatest := w.db.WithContext(ctx).
		Model(model).
		Select(keyColumn+" AS row_key", "updated_at").
		Order("updated_at DESC").
		Order(keyColumn + " DESC").
		Limit(1).
		Take(&row).Error
	switch {
	case errLatest == nil:
		m.key = strings.TrimSpace(row.Key)
		if row.UpdatedAt != nil {
			m.at = row.UpdatedAt.UTC()
		}
	case errors.Is(errLatest, gorm.ErrRecordNotFound):
	default:
		if !errors.Is(errLatest, context.Canceled) {
			log.WithError(errLatest).Warn("db watcher: query latest row failed")
		}
		return marker{}, false
	}
	m.set = true
	return m, true
}
