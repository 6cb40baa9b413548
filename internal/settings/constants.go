package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the storefront name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback storefront name.
	DefaultSiteName = "Elostora"
	// DiscountCacheEnabledKey toggles caching of resolved category discounts.
	DiscountCacheEnabledKey = "DISCOUNT_CACHE_ENABLED"
	// DefaultDiscountCacheEnabled is the fallback discount cache toggle.
	DefaultDiscountCacheEnabled = false
	// RateLimitLoginKey caps login attempts per client per minute.
	RateLimitLoginKey = "RATE_LIMIT_LOGIN"
	// RateLimitCheckoutKey caps checkouts per account per minute.
	RateLimitCheckoutKey = "RATE_LIMIT_CHECKOUT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultRateLimitLogin is the fallback login limit (0 means unlimited).
	DefaultRateLimitLogin = 10
	// DefaultRateLimitCheckout is the fallback checkout limit (0 means unlimited).
	DefaultRateLimitCheckout = 5
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "shop:rl"
)

// Keys lists every setting editable from the admin surface.
var Keys = []string{
	SiteNameKey,
	DiscountCacheEnabledKey,
	RateLimitLoginKey,
	RateLimitCheckoutKey,
	RateLimitRedisEnabledKey,
	RateLimitRedisAddrKey,
	RateLimitRedisPasswordKey,
	RateLimitRedisDBKey,
	RateLimitRedisPrefixKey,
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
