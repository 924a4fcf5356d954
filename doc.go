// Package goEnroll implements a credential-lifecycle authentication engine:
// password verification, forced password rotation on first use, TOTP
// enrollment, biometric-key registration, and short-lived proof-token
// issuance.
//
// The engine is a state machine over a single persisted credential record per
// username. There is no separate state column: the record is the state, and
// [StateOf] is the single source of truth for the derivation. The enrollment
// flow is linear and has no backward transitions reachable through the public
// operations:
//
//	NeedsPasswordChange → NeedsTOTPEnrollment → NeedsBiometricEnrollment → Enrolled
//
// Each Engine operation is one logical transaction against one record: read,
// decide, write with an optimistic version check, retried on conflict. The
// engine never blocks indefinitely on its store; store calls carry a bounded
// timeout and a timeout surfaces as [ErrStoreUnavailable].
//
// # Architecture boundaries
//
// goEnroll is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, ChangePasswordResult, SetupResult,
// MetricsSnapshot). Credential persistence lives behind [store.Store] with
// interchangeable backends (in-memory, Redis, DynamoDB, Secrets Manager);
// the engine never inspects which backend is configured. HTTP decoding,
// deployment wiring, and record provisioning are external collaborators;
// the engine never creates or deletes records.
//
// # What this package must NOT do
//
//   - Log or persist plaintext passwords, TOTP codes, or biometric material.
//   - Reveal a generated TOTP secret anywhere except the ChangePassword
//     result that first carried it.
//   - Distinguish "unknown user" from "wrong password" at the Login boundary,
//     in either the returned error or the latency class.
package goEnroll
