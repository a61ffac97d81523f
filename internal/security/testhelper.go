package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// NewTestTokenProvider returns a TokenProvider using fixed test secrets.
// For unit tests only.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider(
		[]byte(testAccessSecret),
		[]byte(testRefreshSecret),
		"test-issuer",
		"test-audience",
		15*time.Minute,
		24*time.Hour,
	)
}
