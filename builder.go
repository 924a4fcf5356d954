package goEnroll

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/MrEthical07/goEnroll/password"
	"github.com/MrEthical07/goEnroll/store"
	"github.com/MrEthical07/goEnroll/token"
)

// Builder assembles an Engine. Construction is allocation-only except for
// the one decoy hash computed at Build time.
type Builder struct {
	config Config
	store  store.Store
	built  bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential store backend. Required.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.store = st
	return b
}

// WithMetricsEnabled toggles the in-process counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs the credential components,
// and returns the engine. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(token.Config{
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// The decoy plaintext is random per process so its hash cannot be
	// precomputed; only the verification cost matters, never a match.
	var decoySeed [32]byte
	if _, err := rand.Read(decoySeed[:]); err != nil {
		return nil, err
	}
	decoyHash, err := hasher.Hash(base64.RawStdEncoding.EncodeToString(decoySeed[:]))
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		hasher:    hasher,
		totp:      newTOTPManager(cfg.TOTP),
		issuer:    issuer,
		decoyHash: decoyHash,
	}
	if cfg.Metrics.Enabled {
		engine.metrics = newMetrics()
	}
	return engine, nil
}
