package ratelimit

import (
	"strings"

	internalsettings "github.com/elostora/shop/internal/settings"
)

// SettingsConfig captures rate limit settings stored in DB config.
type SettingsConfig struct {
	LoginLimit    int
	CheckoutLimit int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LimitFor returns the per-window limit of action; zero means unlimited.
func (c SettingsConfig) LimitFor(action Action) int {
	switch action {
	case ActionLogin:
		return c.LoginLimit
	case ActionCheckout:
		return c.CheckoutLimit
	default:
		return 0
	}
}

// LoadSettingsConfig loads the current rate limit settings snapshot.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{
		LoginLimit:    internalsettings.DefaultRateLimitLogin,
		CheckoutLimit: internalsettings.DefaultRateLimitCheckout,
		RedisPrefix:   internalsettings.DefaultRateLimitRedisPrefix,
	}

	if limit, ok := internalsettings.IntValue(internalsettings.RateLimitLoginKey); ok {
		cfg.LoginLimit = limit
	}
	if limit, ok := internalsettings.IntValue(internalsettings.RateLimitCheckoutKey); ok {
		cfg.CheckoutLimit = limit
	}
	if enabled, ok := internalsettings.BoolValue(internalsettings.RateLimitRedisEnabledKey); ok {
		cfg.RedisEnabled = enabled
	}
	if addr, ok := internalsettings.StringValue(internalsettings.RateLimitRedisAddrKey); ok {
		cfg.RedisAddr = addr
	}
	if password, ok := internalsettings.StringValue(internalsettings.RateLimitRedisPasswordKey); ok {
		cfg.RedisPassword = password
	}
	if db, ok := internalsettings.IntValue(internalsettings.RateLimitRedisDBKey); ok {
		cfg.RedisDB = db
	}
	if prefix, ok := internalsettings.StringValue(internalsettings.RateLimitRedisPrefixKey); ok {
		cfg.RedisPrefix = prefix
	}
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.LoginLimit < 0 {
		cfg.LoginLimit = 0
	}
	if cfg.CheckoutLimit < 0 {
		cfg.CheckoutLimit = 0
	}
	return cfg
}
