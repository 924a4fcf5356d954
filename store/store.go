// Package store defines the credential-store contract consumed by the
// enrollment engine and its interchangeable backends: an in-memory map, a
// Redis table, a DynamoDB table, and an AWS Secrets Manager namespace.
//
// Every backend persists whole records keyed on username and exposes the same
// optimistic-concurrency discipline: Put succeeds only when the stored record
// version still equals the version the caller loaded. Partial-field writes
// are never observable through Get.
package store

import (
	"context"
	"errors"
)

// Record is the persisted per-user authentication state. It is read and
// written as a whole; the engine derives the enrollment state from its
// fields rather than storing a state column.
type Record struct {
	Username       string `json:"username" dynamodbav:"username"`
	PasswordHash   string `json:"password_hash" dynamodbav:"password_hash"`
	RequiresChange bool   `json:"requires_change" dynamodbav:"requires_change"`
	TOTPSecret     string `json:"totp_secret,omitempty" dynamodbav:"totp_secret"`
	TOTPConfirmed  bool   `json:"totp_confirmed" dynamodbav:"totp_confirmed"`
	BiometricKey   string `json:"biometric_key,omitempty" dynamodbav:"biometric_key"`

	// Version increases by one on every successful Put. Get returns the
	// current version; Put treats the version carried in the record as the
	// expected current version and rejects the write when it is stale.
	// Version 0 means "record does not exist yet" (creation path).
	Version int64 `json:"version" dynamodbav:"version"`
}

var (
	// ErrVersionConflict is returned by Put when the stored version no longer
	// matches the version carried in the record.
	ErrVersionConflict = errors.New("store: record version conflict")
	// ErrUnavailable wraps backend transport failures and timeouts.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is the minimal persistence contract of the enrollment engine.
//
// Implementations must provide read-after-write consistency for a single key
// and all-or-nothing Put semantics. They must honor ctx cancellation and
// deadlines on every call.
type Store interface {
	// Get loads the record for username. found is false when no record
	// exists; err is reserved for backend failures.
	Get(ctx context.Context, username string) (rec Record, found bool, err error)

	// Put writes rec if and only if the stored version still equals
	// rec.Version (0 creates). On success the persisted record carries
	// rec.Version+1. A stale version yields ErrVersionConflict.
	Put(ctx context.Context, rec Record) error
}
