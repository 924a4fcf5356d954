package goEnroll

import (
	"context"

	"github.com/MrEthical07/goEnroll/store"
)

// Login verifies the presented password and reports the caller's position in
// the enrollment flow.
//
// While the record still requires a password change, the result carries no
// token; otherwise a proof token is issued together with the current
// enrollment state so the transport can prompt for the remaining steps.
// Login never mutates enrollment flags. An unknown username and a wrong
// password are indistinguishable in both the returned error and the latency
// class: the unknown-user path verifies against a decoy hash before failing.
func (e *Engine) Login(ctx context.Context, username, presented string) (*LoginResult, error) {
	if e == nil || e.hasher == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if username == "" || presented == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	rec, found, err := e.getRecord(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found {
		_, _ = e.hasher.Verify(presented, e.decoyHash)
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(presented, rec.PasswordHash)
	if err != nil {
		// A malformed stored hash fails before any argon2 work; burn the
		// decoy verification so this path stays in the same latency class
		// as an ordinary mismatch.
		_, _ = e.hasher.Verify(presented, e.decoyHash)
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if rec.RequiresChange {
		e.metricInc(MetricLoginSuccess)
		return &LoginResult{
			Message:        msgFirstLogin,
			RequiresChange: true,
			State:          StateNeedsPasswordChange,
		}, nil
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, rec, presented)
	}

	proof, err := e.issuer.Issue(username, e.config.JWT.AccessTTL)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	return &LoginResult{
		Message: msgLoginOK,
		State:   StateOf(rec),
		Token:   proof,
	}, nil
}

// maybeUpgradeHash rehashes the verified password when the stored hash is
// weaker than the configured parameters. Best effort: a version conflict
// means another writer got there first and the upgrade is simply skipped;
// it must never block or fail a successful login.
func (e *Engine) maybeUpgradeHash(ctx context.Context, rec store.Record, presented string) {
	needs, err := e.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !needs {
		return
	}

	upgraded, err := e.hasher.Hash(presented)
	if err != nil {
		return
	}

	rec.PasswordHash = upgraded
	if err := e.putRecord(ctx, rec); err == nil {
		e.metricInc(MetricHashUpgrade)
	}
}
