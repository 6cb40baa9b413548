package ratelimit

import (
	"context"
	"time"
)

// Window is the fixed counting window of every limiter.
const Window = time.Minute

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)

// Action names a throttled operation.
type Action string

const (
	ActionLogin    Action = "login"
	ActionCheckout Action = "checkout"
)

// windowStart returns the unix start of the window holding now.
func windowStart(now time.Time) int64 {
	return now.UTC().Truncate(Window).Unix()
}

func windowReset(start int64) time.Time {
	return time.Unix(start, 0).UTC().Add(Window)
}

// resultFor decides the count-th hit of a window capped at limit.
func resultFor(count, limit int, reset time.Time) Result {
	if count > limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}
	}
	return Result{Allowed: true, Remaining: limit - count, Reset: reset}
}
