// Package token issues and validates the short-lived signed bearer tokens
// that prove a completed authentication step. A token carries only the
// username (subject) and expiry; it is not a session and there is nothing
// server-side to revoke.
package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a process-wide symmetric secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an ed25519 private key and verifies with the
	// matching public key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrExpired is returned when a token's expiry claim has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature is returned for any token that fails to parse or
	// verify for a reason other than expiry.
	ErrInvalidSignature = errors.New("token signature invalid")
)

// Config holds the signing key material. The key is loaded once at startup
// and never mutated; rotation is a process restart.
type Config struct {
	SigningMethod SigningMethod
	// PrivateKey is the HS256 secret, or an ed25519 private key in raw or
	// PEM form.
	PrivateKey []byte
	// PublicKey is the ed25519 verify key (raw or PEM). Unused for HS256.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
}

// Issuer signs and validates proof tokens. Immutable after construction and
// safe for concurrent use.
type Issuer struct {
	config Config
}

type proofClaims struct {
	jwt.RegisteredClaims
}

// NewIssuer validates the key material for the selected method.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a secret key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Issuer{config: cfg}, nil
}

// Issue signs a token for username expiring after ttl.
func (i *Issuer) Issue(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := proofClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(i.method(), claims)
	key, err := i.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// Validate verifies tokenStr and returns the username it was issued to.
// Expiry maps to ErrExpired; every other failure maps to ErrInvalidSignature
// so callers cannot learn why a forged token was rejected.
func (i *Issuer) Validate(tokenStr string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &proofClaims{}, func(t *jwt.Token) (interface{}, error) {
		return i.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalidSignature
	}

	claims, ok := tok.Claims.(*proofClaims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidSignature
	}
	return claims.Subject, nil
}

func (i *Issuer) method() jwt.SigningMethod {
	if i.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (i *Issuer) signKey() (interface{}, error) {
	if i.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(i.config.PrivateKey)
	}
	return i.config.PrivateKey, nil
}

func (i *Issuer) verifyKey() (interface{}, error) {
	if i.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(i.config.PublicKey)
	}
	return i.config.PrivateKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
