package app

import "testing"

func TestParseDSNReversesBuildDSN(t *testing.T) {
	built, errBuild := BuildDSN(InitRequest{
		DatabaseType:     "postgres",
		DatabaseHost:     "db.internal",
		DatabasePort:     6432,
		DatabaseUser:     "shop",
		DatabasePassword: "secret",
		DatabaseName:     "shop",
		DatabaseSSLMode:  "require",
	})
	if errBuild != nil {
		t.Fatalf("BuildDSN: %v", errBuild)
	}
	req, passwordSet, errParse := ParseDSN(built)
	if errParse != nil {
		t.Fatalf("ParseDSN: %v", errParse)
	}
	if req.DatabaseHost != "db.internal" || req.DatabasePort != 6432 || req.DatabaseUser != "shop" || req.DatabaseName != "shop" {
		t.Fatalf("unexpected postgres fields: %+v", req)
	}
	if req.DatabaseSSLMode != "require" {
		t.Fatalf("expected sslmode require, got %q", req.DatabaseSSLMode)
	}
	if req.DatabasePassword != "" || !passwordSet {
		t.Fatalf("expected password reported but not returned, got %q set=%v", req.DatabasePassword, passwordSet)
	}
}

func TestParseDSNSQLite(t *testing.T) {
	req, passwordSet, errParse := ParseDSN(buildSQLiteDSN("data/shop.db"))
	if errParse != nil {
		t.Fatalf("ParseDSN: %v", errParse)
	}
	if req.DatabaseType != "sqlite" || req.DatabasePath != "data/shop.db" || passwordSet {
		t.Fatalf("unexpected sqlite fields: %+v set=%v", req, passwordSet)
	}

	req, _, errParse = ParseDSN("file:?_busy_timeout=5000")
	if errParse != nil {
		t.Fatalf("ParseDSN empty path: %v", errParse)
	}
	if req.DatabasePath != defaultSQLitePath {
		t.Fatalf("expected default path %q, got %q", defaultSQLitePath, req.DatabasePath)
	}
}

func TestSetupPrefillDefaultsAndErrors(t *testing.T) {
	prefill := newSetupPrefill("postgres://shop@localhost/shop")
	if prefill.DatabasePort != 5432 || prefill.DatabaseSSLMode != "disable" || prefill.DatabasePasswordSet {
		t.Fatalf("unexpected defaults: %+v", prefill)
	}
	if !prefill.Locked {
		t.Fatalf("expected prefill to be locked")
	}

	for _, dsn := range []string{"", "mysql://root@localhost/shop", "postgres://shop@localhost:port/shop"} {
		if _, _, errParse := ParseDSN(dsn); errParse == nil {
			t.Fatalf("expected error for %q", dsn)
		}
		if got := newSetupPrefill(dsn); got != (setupPrefill{Locked: true}) {
			t.Fatalf("expected bare locked prefill for %q, got %+v", dsn, got)
		}
	}
}
