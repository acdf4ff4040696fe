package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestChangePassword covers the authenticated password change flow end to
// end: the old password stops working, the new one takes over.
func TestChangePassword(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	const newPassword = "EvenBetter10!pass"

	// Wrong current password is refused.
	status, raw := client.post(t, "/v1/auth/password/change", session.Tokens.AccessToken, map[string]string{
		"current_password": "not-the-password",
		"new_password":     newPassword,
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_credential")

	// Reusing the current password is refused.
	status, raw = client.post(t, "/v1/auth/password/change", session.Tokens.AccessToken, map[string]string{
		"current_password": testUserPassword,
		"new_password":     testUserPassword,
	})
	require.Equal(t, http.StatusBadRequest, status, "body: %s", raw)
	assertAPIError(t, raw, "same_as_current")

	status, raw = client.post(t, "/v1/auth/password/change", session.Tokens.AccessToken, map[string]string{
		"current_password": testUserPassword,
		"new_password":     newPassword,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	status, raw = client.post(t, "/v1/auth/login", "", map[string]string{
		"email":    testUserEmail,
		"password": testUserPassword,
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)

	loginUser(t, client, testUserEmail, newPassword)
}

// TestForgotPasswordDoesNotRevealAccounts verifies the forgot endpoint
// answers identically for known and unknown addresses.
func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	status, knownRaw := client.post(t, "/v1/auth/password/forgot", "", map[string]string{
		"email": testUserEmail,
	})
	require.Equal(t, http.StatusOK, status)

	status, unknownRaw := client.post(t, "/v1/auth/password/forgot", "", map[string]string{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, status)

	require.JSONEq(t, string(knownRaw), string(unknownRaw),
		"Responses must not distinguish known from unknown accounts")
}

// TestResetPasswordRejectsBogusToken verifies a made-up reset token is a 400,
// not a silent success.
func TestResetPasswordRejectsBogusToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	status, raw := client.post(t, "/v1/auth/password/reset", "", map[string]string{
		"token":        "definitely-not-a-real-token",
		"new_password": "BrandNew12!pass",
	})
	require.Equal(t, http.StatusBadRequest, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_token")
}
