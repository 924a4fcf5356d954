package goEnroll

import (
	"context"
	"crypto/sha256"
	"encoding/base64"

	"github.com/MrEthical07/goEnroll/store"
	"github.com/google/uuid"
)

// SetupBiometric registers an opaque biometric key reference. The engine
// never interprets key material cryptographically: when the client supplies
// material, only its digest is stored; when it supplies none, a random
// reference is minted. Actual biometric verification is a client-device
// concern.
//
// Requires a confirmed TOTP enrollment and an empty biometric slot; like
// SetupTOTP, a completed enrollment rejects re-submission with
// [ErrAlreadyEnrolled].
func (e *Engine) SetupBiometric(ctx context.Context, username, keyMaterial, proofToken string) (*SetupResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.validateProof(proofToken, username); err != nil {
		e.metricInc(MetricBiometricFailure)
		return nil, err
	}

	reference := biometricReference(keyMaterial)
	rec, err := e.updateRecord(ctx, username, func(rec *store.Record) error {
		if rec.BiometricKey != "" {
			return ErrAlreadyEnrolled
		}
		if !rec.TOTPConfirmed {
			return ErrPrerequisiteNotMet
		}
		rec.BiometricKey = reference
		return nil
	})
	if err != nil {
		e.metricInc(MetricBiometricFailure)
		return nil, err
	}

	e.metricInc(MetricBiometricEnrolled)
	return &SetupResult{
		Message: msgBiometricComplete,
		State:   StateOf(rec),
	}, nil
}

func biometricReference(keyMaterial string) string {
	if keyMaterial == "" {
		return "ref:" + uuid.NewString()
	}
	sum := sha256.Sum256([]byte(keyMaterial))
	return "sha256:" + base64.RawURLEncoding.EncodeToString(sum[:])
}
