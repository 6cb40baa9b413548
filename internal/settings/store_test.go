package settings

import (
	"encoding/json"
	"testing"
)

func TestParseBool(t *testing.T) {
	cases := map[string]struct {
		value bool
		ok    bool
	}{
		`true`:    {true, true},
		`false`:   {false, true},
		`"yes"`:   {true, true},
		`"off"`:   {false, true},
		`1`:       {true, true},
		`0`:       {false, true},
		`"maybe"`: {false, false},
		``:        {false, false},
	}
	for raw, want := range cases {
		got, ok := ParseBool(json.RawMessage(raw))
		if got != want.value || ok != want.ok {
			t.Fatalf("ParseBool(%q): expected (%v,%v), got (%v,%v)", raw, want.value, want.ok, got, ok)
		}
	}
}

func TestParseNonNegativeInt(t *testing.T) {
	if v, ok := ParseNonNegativeInt(json.RawMessage(`12`)); !ok || v != 12 {
		t.Fatalf("expected 12, got %d (ok=%v)", v, ok)
	}
	if v, ok := ParseNonNegativeInt(json.RawMessage(`"7"`)); !ok || v != 7 {
		t.Fatalf("expected 7, got %d (ok=%v)", v, ok)
	}
	if _, ok := ParseNonNegativeInt(json.RawMessage(`-3`)); ok {
		t.Fatalf("expected negative value to be rejected")
	}
	if _, ok := ParseNonNegativeInt(json.RawMessage(`2.5`)); ok {
		t.Fatalf("expected fractional value to be rejected")
	}
}

func TestSnapshotAccessors(t *testing.T) {
	StoreDBConfig(map[string]json.RawMessage{
		SiteNameKey:             json.RawMessage(`" Shop "`),
		DiscountCacheEnabledKey: json.RawMessage(`true`),
		RateLimitLoginKey:       json.RawMessage(`4`),
	})
	t.Cleanup(func() { StoreDBConfig(nil) })

	if name, ok := StringValue(SiteNameKey); !ok || name != "Shop" {
		t.Fatalf("expected trimmed site name, got %q", name)
	}
	if enabled, ok := BoolValue(DiscountCacheEnabledKey); !ok || !enabled {
		t.Fatalf("expected discount cache enabled")
	}
	if limit, ok := IntValue(RateLimitLoginKey); !ok || limit != 4 {
		t.Fatalf("expected login limit 4, got %d", limit)
	}
	SetDBConfigValue(RateLimitLoginKey, json.RawMessage(`9`))
	if limit, _ := IntValue(RateLimitLoginKey); limit != 9 {
		t.Fatalf("expected updated login limit 9, got %d", limit)
	}
	if _, ok := DBConfigValue("MISSING"); ok {
		t.Fatalf("expected missing key to be absent")
	}
}
