package goEnroll

import (
	"context"
	"time"

	"github.com/MrEthical07/goEnroll/store"
)

// SetupTOTP confirms the caller possesses a working authenticator by
// verifying a code computed from the secret that ChangePassword persisted.
// The code is accepted within the configured clock-skew window around now.
//
// A confirmed enrollment is final: re-submission is rejected with
// [ErrAlreadyEnrolled], never treated as an idempotent success. proofToken
// must be a live token issued to username.
func (e *Engine) SetupTOTP(ctx context.Context, username, code, proofToken string) (*SetupResult, error) {
	if e == nil || e.totp == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.validateProof(proofToken, username); err != nil {
		e.metricInc(MetricTOTPFailure)
		return nil, err
	}

	rec, err := e.updateRecord(ctx, username, func(rec *store.Record) error {
		if rec.TOTPConfirmed {
			return ErrAlreadyEnrolled
		}
		if rec.RequiresChange || rec.TOTPSecret == "" {
			return ErrPrerequisiteNotMet
		}

		ok, err := e.totp.VerifyCode(rec.TOTPSecret, code, time.Now())
		if err != nil || !ok {
			return ErrTOTPInvalid
		}
		rec.TOTPConfirmed = true
		return nil
	})
	if err != nil {
		e.metricInc(MetricTOTPFailure)
		return nil, err
	}

	e.metricInc(MetricTOTPEnrolled)
	return &SetupResult{
		Message: msgTOTPComplete,
		State:   StateOf(rec),
	}, nil
}
