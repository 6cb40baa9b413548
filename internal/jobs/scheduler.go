// Package jobs runs the periodic shop maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elostora/shop/internal/events"
	"github.com/elostora/shop/internal/shop"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultStaleOrdersSpec = "*/30 * * * * *"
	DefaultEventStatusSpec = "0 * * * * *"
	runTimeout             = 30 * time.Second
	stopTimeout            = 5 * time.Second
)

// Specs are the cron expressions, with seconds, of each task.
type Specs struct {
	StaleOrders string
	EventStatus string
}

// Scheduler cancels stale pending orders and sweeps event statuses.
type Scheduler struct {
	cron   *cron.Cron
	shop   *shop.Service
	events *events.Service
	specs  Specs
	now    func() time.Time

	mu      sync.Mutex
	started bool
}

// NewScheduler builds a Scheduler. Empty specs use the defaults.
func NewScheduler(shopSvc *shop.Service, eventSvc *events.Service, specs Specs) *Scheduler {
	if specs.StaleOrders == "" {
		specs.StaleOrders = DefaultStaleOrdersSpec
	}
	if specs.EventStatus == "" {
		specs.EventStatus = DefaultEventStatusSpec
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		shop:   shopSvc,
		events: eventSvc,
		specs:  specs,
		now:    time.Now,
	}
}

// Start registers the tasks and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.shop != nil {
		if _, errAdd := s.cron.AddFunc(s.specs.StaleOrders, s.cancelStaleOrders); errAdd != nil {
			return fmt.Errorf("jobs: schedule stale orders: %w", errAdd)
		}
	}
	if s.events != nil {
		if _, errAdd := s.cron.AddFunc(s.specs.EventStatus, s.sweepEvents); errAdd != nil {
			return fmt.Errorf("jobs: schedule event sweep: %w", errAdd)
		}
	}
	s.cron.Start()
	s.started = true
	log.Infof("jobs started (stale orders %q, event status %q)", s.specs.StaleOrders, s.specs.EventStatus)
	return nil
}

// Stop halts the cron loop and waits briefly for running tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(stopTimeout):
		log.Warn("jobs: timed out waiting for running tasks")
	}
	s.started = false
}

// RunOnce runs every task immediately.
func (s *Scheduler) RunOnce() {
	s.cancelStaleOrders()
	s.sweepEvents()
}

func (s *Scheduler) cancelStaleOrders() {
	if s.shop == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	cancelled, errCancel := s.shop.CancelStalePending(ctx, 0)
	if errCancel != nil {
		log.WithError(errCancel).Warn("jobs: stale order cancellation failed")
		return
	}
	if cancelled > 0 {
		log.WithField("cancelled", cancelled).Info("jobs: stale pending orders cancelled")
	}
}

func (s *Scheduler) sweepEvents() {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, errSweep := s.events.Sweep(ctx, s.now().UTC()); errSweep != nil {
		log.WithError(errSweep).Warn("jobs: event status sweep failed")
	}
}
