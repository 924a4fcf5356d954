package goEnroll

import "errors"

var (
	// ErrInvalidCredentials is returned when a presented password does not
	// verify, and at the Login boundary also when the username is unknown.
	// The two cases are deliberately indistinguishable there.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by enrollment operations when no credential
	// record exists. Login never returns it.
	ErrUserNotFound = errors.New("user not found")
	// ErrWeakPassword is returned when a new password fails the configured
	// strength policy.
	ErrWeakPassword = errors.New("password does not meet strength policy")
	// ErrPasswordReuse is returned when a password change presents the
	// current password as the new one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrTOTPInvalid is returned when a TOTP code does not match within the
	// configured skew window.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrAlreadyEnrolled is returned when a completed enrollment step is
	// submitted again. Re-submission is a hard rejection, not a no-op.
	ErrAlreadyEnrolled = errors.New("factor already enrolled")
	// ErrPrerequisiteNotMet is returned when an enrollment step is attempted
	// before the preceding step has completed.
	ErrPrerequisiteNotMet = errors.New("enrollment prerequisite not met")
	// ErrProofMismatch is returned when a proof token is valid but was issued
	// to a different username.
	ErrProofMismatch = errors.New("proof token subject mismatch")
	// ErrStoreUnavailable is returned when the credential store times out or
	// cannot be reached. Callers may retry.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrStoreConflict is returned when an operation exhausts its optimistic
	// write retries against concurrent mutations of the same record.
	ErrStoreConflict = errors.New("credential record write conflict")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
