package llm

import "strings"

// IsRateLimited reports whether an oracle error looks like an upstream
// rate limit. The SDK does not expose a typed error for this, so the
// check is on the provider's status text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted")
}

// IsQuotaExhausted reports whether an oracle error looks like a usage or
// billing limit rather than a transient rate limit.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "billing") ||
		strings.Contains(msg, "payment")
}
