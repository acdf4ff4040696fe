package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRefreshRotation verifies a refresh yields a new pair and the spent
// token is rejected on reuse.
func TestRefreshRotation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	status, raw := client.post(t, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	rotated := decodeJSON[tokenPair](t, raw)
	assertTokenResponse(t, rotated)
	require.NotEqual(t, session.Tokens.RefreshToken, rotated.RefreshToken,
		"Rotation should mint a new refresh token")

	// The old token is blacklisted the moment it is rotated.
	status, raw = client.post(t, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_token")

	// The replacement still works.
	status, raw = client.post(t, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": rotated.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)
}

// TestLogoutRevokesRefreshToken verifies logout blacklists the presented
// refresh token and is idempotent.
func TestLogoutRevokesRefreshToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	status, raw := client.post(t, "/v1/auth/logout", "", map[string]string{
		"refresh_token": session.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	status, raw = client.post(t, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_token")

	// Logging out the same token again is not an error.
	status, _ = client.post(t, "/v1/auth/logout", "", map[string]string{
		"refresh_token": session.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status)
}

// TestRefreshTokenIsNotAnAccessToken verifies the kinds are not
// interchangeable at the HTTP layer.
func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	status, _ := client.get(t, "/v1/auth/session", session.Tokens.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, status,
		"Refresh token must not authenticate API calls")

	status, raw := client.post(t, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.Tokens.AccessToken,
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_token")
}
