package goEnroll

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goEnroll/store"
)

// passwordHasher is the slice of the password hasher the engine consumes.
// Satisfied by password.Hasher.
type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// proofIssuer is the slice of the token issuer the engine consumes.
// Satisfied by token.Issuer.
type proofIssuer interface {
	Issue(username string, ttl time.Duration) (string, error)
	Validate(tokenStr string) (string, error)
}

// Result messages, stable across transports. Credential-guessing-sensitive
// paths never get a more specific message than these.
const (
	msgFirstLogin        = "First login detected. Please change your password."
	msgLoginOK           = "Login successful."
	msgPasswordChanged   = "Password changed. Proceed to TOTP setup."
	msgPasswordRotated   = "Password changed."
	msgTOTPComplete      = "TOTP setup complete. Proceed to biometric setup."
	msgBiometricComplete = "Biometric setup complete. Login with biometrics next time."
)

// Engine is the enrollment state machine. Build one through [Builder]; after
// that it is immutable and safe for concurrent use. The credential store is
// the only shared mutable resource the engine touches.
type Engine struct {
	config  Config
	store   store.Store
	hasher  passwordHasher
	totp    *totpManager
	issuer  proofIssuer
	metrics *Metrics

	// decoyHash is verified against when no record exists, so the
	// user-absent path burns the same argon2 work as a real mismatch.
	decoyHash string
}

// MetricsSnapshot returns a point-in-time copy of the engine counters. It is
// empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// getRecord loads one record under the configured store timeout, translating
// backend failures to ErrStoreUnavailable.
func (e *Engine) getRecord(ctx context.Context, username string) (store.Record, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.config.Store.OpTimeout)
	defer cancel()

	rec, found, err := e.store.Get(opCtx, username)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return store.Record{}, false, errors.Join(ErrStoreUnavailable, err)
	}
	return rec, found, nil
}

// putRecord writes one record under the configured store timeout. Version
// conflicts pass through untranslated so updateRecord can retry them.
func (e *Engine) putRecord(ctx context.Context, rec store.Record) error {
	opCtx, cancel := context.WithTimeout(ctx, e.config.Store.OpTimeout)
	defer cancel()

	err := e.store.Put(opCtx, rec)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVersionConflict):
		e.metricInc(MetricStoreConflict)
		return err
	default:
		e.metricInc(MetricStoreUnavailable)
		return errors.Join(ErrStoreUnavailable, err)
	}
}

// updateRecord is the engine's single logical transaction: load the record,
// apply the mutation, write it back with the loaded version as the expected
// one. A concurrent write to the same username fails the version check and
// the whole cycle re-runs against the fresh record, so apply must be safe to
// execute more than once and must re-derive every decision from the record
// it is handed.
func (e *Engine) updateRecord(ctx context.Context, username string, apply func(rec *store.Record) error) (store.Record, error) {
	for attempt := 0; attempt < e.config.Store.MaxWriteRetries; attempt++ {
		rec, found, err := e.getRecord(ctx, username)
		if err != nil {
			return store.Record{}, err
		}
		if !found {
			return store.Record{}, ErrUserNotFound
		}

		if err := apply(&rec); err != nil {
			return store.Record{}, err
		}

		err = e.putRecord(ctx, rec)
		if err == nil {
			rec.Version++
			return rec, nil
		}
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		return store.Record{}, err
	}
	return store.Record{}, ErrStoreConflict
}

// validateProof checks that proofToken is a live token issued to username.
func (e *Engine) validateProof(proofToken, username string) error {
	subject, err := e.issuer.Validate(proofToken)
	if err != nil {
		return err
	}
	if subject != username {
		return ErrProofMismatch
	}
	return nil
}
