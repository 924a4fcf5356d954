package goEnroll

import (
	"errors"
	"time"

	"github.com/MrEthical07/goEnroll/token"
)

// Config configures an Engine. Instances are treated as immutable after
// [Builder.Build]; the builder clones key material so later mutation of the
// caller's copy cannot affect a running engine.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Policy   PolicyConfig
	TOTP     TOTPConfig
	Store    StoreConfig
	Metrics  MetricsConfig
}

// JWTConfig configures the proof-token issuer. The signing key is
// process-wide, loaded once at startup; rotation is an external concern.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte // ed25519 only
	Issuer        string
	Leeway        time.Duration
}

// PasswordConfig holds the argon2id work factors (Memory in KB).
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// PolicyConfig is the minimum-strength policy applied to new passwords.
// Character classes are only enforced when the corresponding flag is set.
type PolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSymbol    bool
}

// TOTPConfig holds the RFC 6238 parameters. Skew is the number of adjacent
// time steps accepted on either side of the current one.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int // seconds
	Skew      int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

// StoreConfig bounds the engine's credential-store interactions.
type StoreConfig struct {
	// OpTimeout caps each store round-trip. A deadline hit surfaces as
	// ErrStoreUnavailable, never as a hang.
	OpTimeout time.Duration
	// MaxWriteRetries is how many times an operation re-runs its
	// read-decide-write cycle after an optimistic version conflict before
	// giving up with ErrStoreConflict.
	MaxWriteRetries int
}

// MetricsConfig toggles the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. The JWT private key must
// still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: string(token.MethodHS256),
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Policy: PolicyConfig{
			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireDigit:     true,
			RequireSymbol:    true,
		},
		TOTP: TOTPConfig{
			Issuer:    "goEnroll",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Store: StoreConfig{
			OpTimeout:       3 * time.Second,
			MaxWriteRetries: 3,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for internal consistency. Key-material
// validity is checked by the token and password constructors during Build.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("jwt access ttl must be positive")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("jwt private key required")
	}
	if c.Policy.MinLength < 1 {
		return errors.New("password policy min length must be >= 1")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("totp digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be between 0 and 2")
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("store op timeout must be positive")
	}
	if c.Store.MaxWriteRetries < 1 {
		return errors.New("store max write retries must be >= 1")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
