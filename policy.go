package goEnroll

import "unicode"

// checkPolicy validates a candidate password against the configured
// minimum-strength policy. It reports only pass/fail; the specific failing
// rule is not surfaced to callers (the transport message for a weak password
// describes the whole policy, not the gap).
func checkPolicy(policy PolicyConfig, candidate string) bool {
	if len(candidate) < policy.MinLength {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		return false
	}
	if policy.RequireLowercase && !hasLower {
		return false
	}
	if policy.RequireDigit && !hasDigit {
		return false
	}
	if policy.RequireSymbol && !hasSymbol {
		return false
	}
	return true
}
