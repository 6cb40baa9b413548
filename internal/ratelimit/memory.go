package ratelimit

import (
	"context"
	"sync"
	"time"
)

const maxMemoryKeys = 10000

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter implements a fixed-window in-memory rate limiter.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request should be allowed in the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now)
	reset := windowReset(start)

	l.mu.Lock()
	l.evictLocked(start)
	entry := l.counters[key]
	if entry == nil {
		entry = &memoryEntry{window: start}
		l.counters[key] = entry
	}
	if entry.window != start {
		entry.window = start
		entry.count = 0
	}
	// Denied hits are not counted.
	if entry.count >= limit {
		l.mu.Unlock()
		return resultFor(limit+1, limit, reset), nil
	}
	entry.count++
	count := entry.count
	l.mu.Unlock()
	return resultFor(count, limit, reset), nil
}

// evictLocked drops counters from earlier windows once the map grows.
func (l *MemoryLimiter) evictLocked(current int64) {
	if len(l.counters) < maxMemoryKeys {
		return
	}
	for key, entry := range l.counters {
		if entry.window != current {
			delete(l.counters, key)
		}
	}
}
