package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	internalsettings "github.com/elostora/shop/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const cacheTTL = 2 * time.Minute

type memoryDiscount struct {
	discount  Discount
	expiresAt time.Time
}

// Cache memoises resolved discounts per category and minute.
// It uses Redis when a client is configured and an in-process map otherwise
// or when Redis fails. All methods are safe on a nil *Cache.
type Cache struct {
	client  *redis.Client
	prefix  string
	enabled func() bool

	mu     sync.Mutex
	memory map[string]memoryDiscount
}

// NewCache builds a Cache. client may be nil; enabled defaults to the DISCOUNT_CACHE_ENABLED setting.
func NewCache(client *redis.Client, prefix string, enabled func() bool) *Cache {
	if enabled == nil {
		enabled = settingEnabled
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "shop"
	}
	return &Cache{
		client:  client,
		prefix:  prefix,
		enabled: enabled,
		memory:  make(map[string]memoryDiscount),
	}
}

func settingEnabled() bool {
	enabled, ok := internalsettings.BoolValue(internalsettings.DiscountCacheEnabledKey)
	if !ok {
		return internalsettings.DefaultDiscountCacheEnabled
	}
	return enabled
}

func (c *Cache) key(categoryID uint64, now time.Time) string {
	return fmt.Sprintf("%s:discount:%d:%d", c.prefix, categoryID, now.UTC().Truncate(time.Minute).Unix())
}

func (c *Cache) active() bool {
	return c != nil && c.enabled()
}

// Get returns the cached discount for the category in the minute of now.
func (c *Cache) Get(ctx context.Context, categoryID uint64, now time.Time) (Discount, bool) {
	if !c.active() {
		return Discount{}, false
	}
	key := c.key(categoryID, now)
	if c.client != nil {
		raw, errGet := c.client.Get(ctx, key).Bytes()
		switch {
		case errGet == nil:
			var discount Discount
			if errUnmarshal := json.Unmarshal(raw, &discount); errUnmarshal == nil {
				return discount, true
			}
		case errors.Is(errGet, redis.Nil):
			return Discount{}, false
		default:
			log.WithError(errGet).Warn("pricing: redis cache read failed, using memory")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.memory[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return Discount{}, false
	}
	return entry.discount, true
}

// Set stores discount for the category in the minute of now.
func (c *Cache) Set(ctx context.Context, categoryID uint64, now time.Time, discount Discount) {
	if !c.active() {
		return
	}
	key := c.key(categoryID, now)
	if c.client != nil {
		payload, errMarshal := json.Marshal(discount)
		if errMarshal == nil {
			errSet := c.client.Set(ctx, key, payload, cacheTTL).Err()
			if errSet == nil {
				return
			}
			log.WithError(errSet).Warn("pricing: redis cache write failed, using memory")
		}
	}

	wall := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.memory {
		if wall.After(entry.expiresAt) {
			delete(c.memory, k)
		}
	}
	c.memory[key] = memoryDiscount{discount: discount, expiresAt: wall.Add(cacheTTL)}
}

// Purge removes every cached discount.
func (c *Cache) Purge(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.memory = make(map[string]memoryDiscount)
	c.mu.Unlock()

	if c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+":discount:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if errIter := iter.Err(); errIter != nil {
		log.WithError(errIter).Warn("pricing: redis cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if errDel := c.client.Del(ctx, keys...).Err(); errDel != nil {
		log.WithError(errDel).Warn("pricing: redis cache purge failed")
	}
}
