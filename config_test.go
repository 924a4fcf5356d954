package goEnroll

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goEnroll/store"
)

func TestDefaultConfigValidatesWithKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testJWTSecret)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	base := func() Config {
		cfg := DefaultConfig()
		cfg.JWT.PrivateKey = []byte(testJWTSecret)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing jwt key", func(c *Config) { c.JWT.PrivateKey = nil }},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"zero min length", func(c *Config) { c.Policy.MinLength = 0 }},
		{"too few digits", func(c *Config) { c.TOTP.Digits = 5 }},
		{"too many digits", func(c *Config) { c.TOTP.Digits = 11 }},
		{"zero period", func(c *Config) { c.TOTP.Period = 0 }},
		{"negative skew", func(c *Config) { c.TOTP.Skew = -1 }},
		{"excessive skew", func(c *Config) { c.TOTP.Skew = 3 }},
		{"zero op timeout", func(c *Config) { c.Store.OpTimeout = 0 }},
		{"zero write retries", func(c *Config) { c.Store.MaxWriteRetries = 0 }},
	}

	for _, tc := range cases {
		cfg := base()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestBuilderRequiresStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testJWTSecret)

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected an error without a store")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithStore(store.NewMemory())

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected an error from the second Build")
	}
}

func TestBuilderClonesKeyMaterial(t *testing.T) {
	key := []byte(testJWTSecret)
	cfg := testConfig()
	cfg.JWT.PrivateKey = key
	cfg.JWT.AccessTTL = time.Minute

	st := store.NewMemory()
	engine, err := New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Mutating the caller's copy after Build must not affect the engine.
	for i := range key {
		key[i] = 0
	}

	proof, err := engine.issuer.Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if subject, err := engine.issuer.Validate(proof); err != nil || subject != "alice" {
		t.Fatalf("token roundtrip failed after caller mutation: subject=%q err=%v", subject, err)
	}
}

func TestBuilderRejectsBadPasswordParams(t *testing.T) {
	cfg := testConfig()
	cfg.Password.Memory = 1024 // below the hasher floor

	if _, err := New().WithConfig(cfg).WithStore(store.NewMemory()).Build(); err == nil {
		t.Fatal("expected an error for sub-floor argon2 memory")
	}
}

func TestMetricsDisabledByDefault(t *testing.T) {
	st := store.NewMemory()
	engine, err := New().WithConfig(testConfig()).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	provisionUser(t, engine, st, "alice", testInitialPass)

	if _, err := engine.Login(context.Background(), "alice", testInitialPass); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot with metrics disabled, got %d counters", len(snap.Counters))
	}
}
