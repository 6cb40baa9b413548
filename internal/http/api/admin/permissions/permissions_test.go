package permissions

import (
	"testing"

	"github.com/elostora/shop/internal/access"
)

func TestAllowedFollowsMinimumTier(t *testing.T) {
	cases := []struct {
		tier access.Tier
		key  string
		want bool
	}{
		{access.TierUser, Key("GET", "/v0/admin/orders"), false},
		{access.TierManager, Key("GET", "/v0/admin/orders"), true},
		{access.TierAdmin, Key("GET", "/v0/admin/orders"), true},
		{access.TierManager, Key("POST", "/v0/admin/coupons"), false},
		{access.TierAdmin, Key("POST", "/v0/admin/coupons"), true},
		{access.TierManager, Key("post", "/v0/admin/accounts"), true},
		{access.TierUser, Key("post", "/v0/admin/accounts"), false},
		{access.TierManager, Key("post", "/v0/admin/accounts/:id/promote"), false},
		{access.TierAdmin, Key("post", "/v0/admin/accounts/:id/promote"), true},
		{access.TierManager, Key("GET", "/v0/admin/events"), true},
		{access.TierManager, Key("POST", "/v0/admin/events"), false},
		{access.TierAdmin, Key("GET", "/v0/admin/unknown"), false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.tier, tc.key); got != tc.want {
			t.Fatalf("Allowed(%s, %q): expected %v, got %v", tc.tier, tc.key, tc.want, got)
		}
	}
}

func TestKeysForGrowsWithTier(t *testing.T) {
	user := KeysFor(access.TierUser)
	manager := KeysFor(access.TierManager)
	admin := KeysFor(access.TierAdmin)

	if len(user) != 0 {
		t.Fatalf("expected no keys for USER, got %v", user)
	}
	if len(manager) == 0 || len(manager) >= len(admin) {
		t.Fatalf("expected manager keys to be a strict subset, got %d manager vs %d admin", len(manager), len(admin))
	}
	if len(admin) != len(Definitions()) {
		t.Fatalf("expected admin to hold every key, got %d of %d", len(admin), len(Definitions()))
	}
	for _, key := range manager {
		if !Allowed(access.TierManager, key) {
			t.Fatalf("expected %q to be allowed for MANAGER", key)
		}
	}
}

func TestDefinitionsHaveUniqueKeys(t *testing.T) {
	seen := map[string]struct{}{}
	for _, def := range Definitions() {
		if _, dup := seen[def.Key]; dup {
			t.Fatalf("duplicate permission key %q", def.Key)
		}
		seen[def.Key] = struct{}{}
		if def.Tier != def.MinTier.String() {
			t.Fatalf("expected tier label %q for %q, got %q", def.MinTier.String(), def.Key, def.Tier)
		}
	}
	if len(DefinitionMap()) != len(seen) {
		t.Fatalf("expected definition map of %d entries, got %d", len(seen), len(DefinitionMap()))
	}
}

func TestNormalizePermissions(t *testing.T) {
	got := NormalizePermissions([]string{" b ", "a", "", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}
