package auth_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoginRateLimit verifies the strict per-IP profile kicks in on the
// login endpoint under production limits. Each request uses a distinct email
// so the transport limit is hit before any account lockout.
func TestLoginRateLimit(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	var limited bool
	for i := 0; i < 8; i++ {
		status, raw := client.post(t, "/v1/auth/login", "", map[string]string{
			"email":    fmt.Sprintf("stuffer-%d@example.com", i),
			"password": "whatever-password",
		})
		if status == http.StatusTooManyRequests {
			assertAPIError(t, raw, "rate_limited")
			limited = true
			break
		}
		require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	}

	require.True(t, limited, "Strict profile should reject within eight rapid attempts")
}

// TestHealthEndpointsAreLenientlyLimited verifies probes are not starved by
// the strict profile.
func TestHealthEndpointsAreLenientlyLimited(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	for i := 0; i < 20; i++ {
		status, _ := client.get(t, "/livez", "")
		require.Equal(t, http.StatusOK, status, "probe %d should not be limited", i+1)
	}
}
