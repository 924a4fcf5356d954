package goEnroll

import (
	"context"

	"github.com/MrEthical07/goEnroll/store"
)

// ChangePassword rotates the stored password after verifying the old one,
// clears the forced-rotation flag, and generates a TOTP secret in the same
// write when none exists yet. Password rotation and secret generation
// are a single transaction: the caller cannot end up with a rotated password
// and no path to TOTP enrollment.
//
// The returned TOTPSecret and ProvisionURI are set only by the call that
// first generated the secret; a later successful rotation leaves the secret
// untouched and returns neither.
func (e *Engine) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (*ChangePasswordResult, error) {
	if e == nil || e.hasher == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if username == "" || oldPassword == "" {
		e.metricInc(MetricPasswordChangeFailure)
		return nil, ErrInvalidCredentials
	}

	// Sign the proof before touching the record. Issuing afterwards could
	// persist a freshly generated TOTP secret and then fail, stranding the
	// user mid-flow with a secret that was never revealed.
	proof, err := e.issuer.Issue(username, e.config.JWT.AccessTTL)
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return nil, err
	}

	var generatedSecret string
	rec, err := e.updateRecord(ctx, username, func(rec *store.Record) error {
		// Re-runs on write conflict; everything is re-derived from the
		// fresh record, including whether a secret still needs generating.
		generatedSecret = ""

		ok, err := e.hasher.Verify(oldPassword, rec.PasswordHash)
		if err != nil || !ok {
			return ErrInvalidCredentials
		}
		if !checkPolicy(e.config.Policy, newPassword) {
			return ErrWeakPassword
		}
		same, err := e.hasher.Verify(newPassword, rec.PasswordHash)
		if err == nil && same {
			return ErrPasswordReuse
		}

		newHash, err := e.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		rec.PasswordHash = newHash
		rec.RequiresChange = false

		if rec.TOTPSecret == "" {
			secret, err := e.totp.GenerateSecret()
			if err != nil {
				return err
			}
			rec.TOTPSecret = secret
			generatedSecret = secret
		}
		return nil
	})
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return nil, err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	result := &ChangePasswordResult{
		Message: msgPasswordRotated,
		State:   StateOf(rec),
		Token:   proof,
	}
	if generatedSecret != "" {
		result.Message = msgPasswordChanged
		result.TOTPSecret = generatedSecret
		result.ProvisionURI = e.totp.ProvisionURI(generatedSecret, username)
	}
	return result, nil
}
