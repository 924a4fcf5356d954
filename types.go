package goEnroll

import "github.com/MrEthical07/goEnroll/store"

// EnrollmentState is the position of a credential record in the linear
// enrollment flow. It is always derived from record fields via [StateOf],
// never stored, so it cannot drift from the underlying flags.
type EnrollmentState uint8

const (
	// StateNeedsPasswordChange means the provisioned initial password has
	// not been rotated yet.
	StateNeedsPasswordChange EnrollmentState = iota
	// StateNeedsTOTPEnrollment means the password was rotated but the user
	// has not proven possession of a working authenticator.
	StateNeedsTOTPEnrollment
	// StateNeedsBiometricEnrollment means TOTP is confirmed but no biometric
	// key reference is registered.
	StateNeedsBiometricEnrollment
	// StateEnrolled is the stable terminal state of the enrollment sub-flow.
	StateEnrolled
)

// String returns the transport-facing name of the state.
func (s EnrollmentState) String() string {
	switch s {
	case StateNeedsPasswordChange:
		return "needs_password_change"
	case StateNeedsTOTPEnrollment:
		return "needs_totp_enrollment"
	case StateNeedsBiometricEnrollment:
		return "needs_biometric_enrollment"
	case StateEnrolled:
		return "enrolled"
	default:
		return "unknown"
	}
}

// StateOf derives the enrollment state from a credential record. This is the
// single source of truth for the derivation:
//
//	RequiresChange                        → NeedsPasswordChange
//	!RequiresChange && !TOTPConfirmed     → NeedsTOTPEnrollment
//	TOTPConfirmed && BiometricKey == ""   → NeedsBiometricEnrollment
//	otherwise                             → Enrolled
func StateOf(rec store.Record) EnrollmentState {
	switch {
	case rec.RequiresChange:
		return StateNeedsPasswordChange
	case !rec.TOTPConfirmed:
		return StateNeedsTOTPEnrollment
	case rec.BiometricKey == "":
		return StateNeedsBiometricEnrollment
	default:
		return StateEnrolled
	}
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Message        string
	RequiresChange bool
	State          EnrollmentState
	// Token is empty while the password still requires rotation.
	Token string
}

// ChangePasswordResult is returned by [Engine.ChangePassword].
type ChangePasswordResult struct {
	Message string
	State   EnrollmentState
	// TOTPSecret is the freshly generated base32 shared secret. It is set
	// only by the call that first generated it; this is the only place the
	// secret is ever revealed in plaintext.
	TOTPSecret string
	// ProvisionURI is the otpauth:// URI for the secret, set together with
	// TOTPSecret.
	ProvisionURI string
	// Token is a proof token for the follow-up enrollment steps.
	Token string
}

// SetupResult is returned by [Engine.SetupTOTP] and [Engine.SetupBiometric].
type SetupResult struct {
	Message string
	State   EnrollmentState
}
