package goEnroll

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goEnroll/store"
)

const (
	testJWTSecret    = "0123456789abcdef0123456789abcdef"
	testInitialPass  = "InitialPass123!"
	testRotatedPass  = "NewPass123!"
	testUsername     = "test@example.com"
	testStepDuration = 30
)

// testConfig keeps the argon2 work factors at the floor so the suite stays
// fast; production defaults are exercised in config_test.go.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testJWTSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T, st store.Store) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(st).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

// provisionUser seeds a freshly provisioned record: hashed initial password,
// forced rotation pending, no factors enrolled.
func provisionUser(t *testing.T, engine *Engine, st store.Store, username, initial string) {
	t.Helper()

	hash, err := engine.hasher.Hash(initial)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	err = st.Put(context.Background(), store.Record{
		Username:       username,
		PasswordHash:   hash,
		RequiresChange: true,
	})
	if err != nil {
		t.Fatalf("seed Put failed: %v", err)
	}
}

// rotatePassword walks a provisioned user through the forced first-login
// rotation and returns the generated TOTP secret and proof token.
func rotatePassword(t *testing.T, engine *Engine, username, initial, rotated string) (secret, proof string) {
	t.Helper()

	res, err := engine.ChangePassword(context.Background(), username, initial, rotated)
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if res.TOTPSecret == "" {
		t.Fatal("expected a generated TOTP secret")
	}
	return res.TOTPSecret, res.Token
}

// confirmTOTP completes the TOTP step with a code for the current time.
func confirmTOTP(t *testing.T, engine *Engine, username, secret, proof string) {
	t.Helper()

	code := totpCodeAt(t, secret, time.Now(), 0)
	if _, err := engine.SetupTOTP(context.Background(), username, code, proof); err != nil {
		t.Fatalf("SetupTOTP failed: %v", err)
	}
}

// totpCodeAt computes the code for the time step containing at, shifted by
// offsetSteps whole steps.
func totpCodeAt(t *testing.T, secret string, at time.Time, offsetSteps int) string {
	t.Helper()

	raw, err := b32.DecodeString(secret)
	if err != nil {
		t.Fatalf("decode secret failed: %v", err)
	}
	counter := at.Unix()/testStepDuration + int64(offsetSteps)
	code, err := hotpCode(raw, counter, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}

func mustGet(t *testing.T, st store.Store, username string) store.Record {
	t.Helper()

	rec, found, err := st.Get(context.Background(), username)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatalf("record %q not found", username)
	}
	return rec
}
