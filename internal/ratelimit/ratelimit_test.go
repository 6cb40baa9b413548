package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 10, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "login:ip:1.2.3.4", 3, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Allowed {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
		if res.Remaining != 2-i {
			t.Fatalf("expected remaining=%d, got %d", 2-i, res.Remaining)
		}
	}
	res, _ := limiter.Allow(ctx, "login:ip:1.2.3.4", 3, now.Add(40*time.Second))
	if res.Allowed {
		t.Fatalf("expected fourth attempt in the same minute to be denied")
	}
	if want := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC); !res.Reset.Equal(want) {
		t.Fatalf("expected reset %s, got %s", want, res.Reset)
	}

	other, _ := limiter.Allow(ctx, "login:ip:5.6.7.8", 3, now)
	if !other.Allowed {
		t.Fatalf("expected a different key to be counted separately")
	}
	next, _ := limiter.Allow(ctx, "login:ip:1.2.3.4", 3, now.Add(time.Minute))
	if !next.Allowed {
		t.Fatalf("expected the next window to reset the counter")
	}
}

func TestKeys(t *testing.T) {
	if got := KeyForClient(ActionLogin, " 10.0.0.1 "); got != "login:ip:10.0.0.1" {
		t.Fatalf("expected login:ip:10.0.0.1, got %q", got)
	}
	if got := KeyForAccount(ActionCheckout, 7); got != "checkout:acct:7" {
		t.Fatalf("expected checkout:acct:7, got %q", got)
	}
	if got := KeyForAccount(ActionCheckout, 0); got != "" {
		t.Fatalf("expected empty key for anonymous account, got %q", got)
	}
}

func TestManagerUsesActionLimits(t *testing.T) {
	cfg := SettingsConfig{LoginLimit: 1, CheckoutLimit: 0}
	now := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	manager := NewManager(func() SettingsConfig { return cfg }, func() time.Time { return now }, nil)
	ctx := context.Background()

	first, err := manager.AllowAction(ctx, ActionLogin, "login:ip:1")
	if err != nil || !first.Allowed {
		t.Fatalf("expected first login allowed, got %+v, %v", first, err)
	}
	second, _ := manager.AllowAction(ctx, ActionLogin, "login:ip:1")
	if second.Allowed {
		t.Fatalf("expected second login denied")
	}
	for i := 0; i < 20; i++ {
		res, _ := manager.AllowAction(ctx, ActionCheckout, "checkout:acct:1")
		if !res.Allowed {
			t.Fatalf("expected unlimited checkout when the limit is zero")
		}
	}
}

func TestManagerFallsBackToMemoryWhenRedisDown(t *testing.T) {
	cfg := SettingsConfig{LoginLimit: 1, RedisEnabled: true, RedisAddr: "127.0.0.1:1", RedisPrefix: "test"}
	now := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	manager := NewManager(func() SettingsConfig { return cfg }, func() time.Time { return now }, nil)
	ctx := context.Background()

	first, err := manager.AllowAction(ctx, ActionLogin, "login:ip:9")
	if err != nil || !first.Allowed {
		t.Fatalf("expected memory fallback to allow, got %+v, %v", first, err)
	}
	if !manager.paused(now) {
		t.Fatalf("expected redis to be paused")
	}
	second, _ := manager.AllowAction(ctx, ActionLogin, "login:ip:9")
	if second.Allowed {
		t.Fatalf("expected memory fallback to enforce the limit")
	}
}

func TestManagerCheckKeysByAccountThenAddress(t *testing.T) {
	cfg := SettingsConfig{CheckoutLimit: 1}
	now := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	manager := NewManager(func() SettingsConfig { return cfg }, func() time.Time { return now }, nil)
	ctx := context.Background()

	if res, _ := manager.Check(ctx, ActionCheckout, 7, "10.0.0.1"); !res.Allowed {
		t.Fatalf("expected first checkout for account 7 allowed")
	}
	if res, _ := manager.Check(ctx, ActionCheckout, 7, "10.0.0.2"); res.Allowed {
		t.Fatalf("expected account 7 limited regardless of address")
	}
	if res, _ := manager.Check(ctx, ActionCheckout, 0, "10.0.0.1"); !res.Allowed {
		t.Fatalf("expected anonymous caller counted by address")
	}
	if res, _ := manager.Check(ctx, ActionCheckout, 0, ""); !res.Allowed {
		t.Fatalf("expected a caller without key to pass")
	}
}

func TestManagerPausesRedisWithoutAddress(t *testing.T) {
	cfg := SettingsConfig{LoginLimit: 2, RedisEnabled: true}
	now := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	manager := NewManager(func() SettingsConfig { return cfg }, func() time.Time { return now }, nil)

	if res, err := manager.AllowAction(context.Background(), ActionLogin, "login:ip:1"); err != nil || !res.Allowed {
		t.Fatalf("expected memory counting, got %+v, %v", res, err)
	}
	if !manager.paused(now) {
		t.Fatalf("expected redis paused without an address")
	}
	if manager.paused(now.Add(redisPause)) {
		t.Fatalf("expected pause to lapse")
	}
}

func TestCounterKey(t *testing.T) {
	if got := counterKey("shop", "login:ip:1", 60); got != "shop:login:ip:1:60" {
		t.Fatalf("expected prefixed key, got %q", got)
	}
	if got := counterKey("", "login:ip:1", 60); got != "login:ip:1:60" {
		t.Fatalf("expected bare key, got %q", got)
	}
}

func TestResultFor(t *testing.T) {
	reset := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	if res := resultFor(2, 3, reset); !res.Allowed || res.Remaining != 1 || !res.Reset.Equal(reset) {
		t.Fatalf("expected allowed with one remaining, got %+v", res)
	}
	if res := resultFor(4, 3, reset); res.Allowed || res.Remaining != 0 {
		t.Fatalf("expected denial past the limit, got %+v", res)
	}
}
