package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	// redisPause is how long a failing Redis is skipped before the next dial.
	redisPause       = 30 * time.Second
	redisDialTimeout = 2 * time.Second
)

var errNoRedisAddr = errors.New("rate limit: redis enabled without an address")

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// redisTarget identifies the Redis instance and key namespace in use.
type redisTarget struct {
	addr     string
	password string
	db       int
	prefix   string
}

func targetOf(cfg SettingsConfig) redisTarget {
	return redisTarget{addr: cfg.RedisAddr, password: cfg.RedisPassword, db: cfg.RedisDB, prefix: cfg.RedisPrefix}
}

// Manager throttles login, password-reset and checkout hits. Counters live in
// Redis when the settings enable it so every instance shares one window, and
// in process memory otherwise or while Redis is unreachable.
type Manager struct {
	settings SettingsProvider
	now      func() time.Time
	memory   *MemoryLimiter
	dial     RedisClientFactory

	mu          sync.Mutex
	shared      *RedisLimiter
	target      redisTarget
	pausedUntil time.Time
}

// NewManager builds a Manager. Nil arguments fall back to the stored settings,
// the wall clock and redis.NewClient.
func NewManager(settings SettingsProvider, now func() time.Time, dial RedisClientFactory) *Manager {
	if settings == nil {
		settings = LoadSettingsConfig
	}
	if now == nil {
		now = time.Now
	}
	if dial == nil {
		dial = redis.NewClient
	}
	return &Manager{settings: settings, now: now, memory: NewMemoryLimiter(), dial: dial}
}

// Check counts one hit of action for the caller: per account when signed in,
// per client address otherwise.
func (m *Manager) Check(ctx context.Context, action Action, accountID uint64, clientIP string) (Result, error) {
	key := KeyForAccount(action, accountID)
	if key == "" {
		key = KeyForClient(action, clientIP)
	}
	return m.AllowAction(ctx, action, key)
}

// AllowAction counts one hit of action against key. Actions without a
// positive limit always pass.
func (m *Manager) AllowAction(ctx context.Context, action Action, key string) (Result, error) {
	if m == nil || key == "" {
		return Result{Allowed: true}, nil
	}
	cfg := m.settings()
	limit := cfg.LimitFor(action)
	if limit <= 0 {
		return Result{Allowed: true}, nil
	}
	now := m.now()
	if cfg.RedisEnabled {
		if shared := m.sharedLimiter(ctx, cfg, now); shared != nil {
			result, errAllow := shared.Allow(ctx, key, limit, now)
			if errAllow == nil {
				return result, nil
			}
			m.mu.Lock()
			m.pauseLocked(errAllow, now)
			m.mu.Unlock()
		}
	}
	return m.memory.Allow(ctx, key, limit, now)
}

// sharedLimiter returns the Redis limiter for cfg, dialing on first use and
// whenever the target changes. It returns nil while Redis is paused.
func (m *Manager) sharedLimiter(ctx context.Context, cfg SettingsConfig, now time.Time) *RedisLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.pausedUntil) {
		return nil
	}
	target := targetOf(cfg)
	if m.shared != nil && m.target == target {
		return m.shared
	}
	if m.shared != nil {
		_ = m.shared.client.Close()
		m.shared = nil
	}
	if target.addr == "" {
		m.pauseLocked(errNoRedisAddr, now)
		return nil
	}

	client := m.dial(&redis.Options{Addr: target.addr, Password: target.password, DB: target.db})
	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		m.pauseLocked(errPing, now)
		return nil
	}
	m.shared = NewRedisLimiter(client, target.prefix)
	m.target = target
	log.WithField("addr", target.addr).Info("rate limit: using redis counters")
	return m.shared
}

// pauseLocked skips Redis for redisPause. Callers hold m.mu.
func (m *Manager) pauseLocked(err error, now time.Time) {
	if now.Before(m.pausedUntil) {
		return
	}
	m.pausedUntil = now.Add(redisPause)
	log.WithError(err).Warn("rate limit: redis unavailable, counting in memory")
}

// paused reports whether Redis is currently skipped.
func (m *Manager) paused(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Before(m.pausedUntil)
}
