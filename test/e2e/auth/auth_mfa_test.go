package auth_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// enrollMFA walks a user through setup and confirm, returning the TOTP
// secret and the one-time backup codes.
func enrollMFA(t *testing.T, client *apiClient, accessToken string) (string, []string) {
	t.Helper()

	status, raw := client.post(t, "/v1/mfa/setup", accessToken, struct{}{})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	setup := decodeJSON[mfaSetup](t, raw)
	require.NotEmpty(t, setup.Secret)
	require.True(t, strings.HasPrefix(setup.OTPAuthURL, "otpauth://totp/"),
		"Setup should return an otpauth URI, got: %s", setup.OTPAuthURL)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	status, raw = client.post(t, "/v1/mfa/confirm", accessToken, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	backup := decodeJSON[backupCodes](t, raw)
	require.Len(t, backup.Codes, 10, "Confirm should hand out ten backup codes")

	return setup.Secret, backup.Codes
}

// challengeLogin performs a password login for an MFA-enabled account and
// returns the challenge.
func challengeLogin(t *testing.T, client *apiClient, email, password string) mfaChallenge {
	t.Helper()

	status, raw := client.post(t, "/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	challenge := decodeJSON[mfaChallenge](t, raw)
	require.True(t, challenge.RequireMFA, "Login should demand MFA completion")
	require.NotEmpty(t, challenge.TempToken)
	return challenge
}

// TestMFAEnrollmentAndLogin covers the full TOTP lifecycle: setup, confirm,
// challenged login, completion with an authenticator code.
func TestMFAEnrollmentAndLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	secret, _ := enrollMFA(t, client, session.Tokens.AccessToken)

	challenge := challengeLogin(t, client, testUserEmail, testUserPassword)

	// Wrong code first: rejected without burning the challenge.
	status, raw := client.post(t, "/v1/auth/mfa/verify", "", map[string]string{
		"temp_token": challenge.TempToken,
		"code":       "000000",
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_mfa_code")

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	status, raw = client.post(t, "/v1/auth/mfa/verify", "", map[string]string{
		"temp_token": challenge.TempToken,
		"code":       code,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	result := decodeJSON[loginResult](t, raw)
	assertTokenResponse(t, result.Tokens)
	require.True(t, result.User.MFAEnabled)
}

// TestMFABackupCodeIsSingleUse verifies a backup code completes a challenge
// exactly once.
func TestMFABackupCodeIsSingleUse(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	_, codes := enrollMFA(t, client, session.Tokens.AccessToken)

	challenge := challengeLogin(t, client, testUserEmail, testUserPassword)
	status, raw := client.post(t, "/v1/auth/mfa/verify", "", map[string]string{
		"temp_token": challenge.TempToken,
		"code":       codes[0],
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	// Same code on a fresh challenge is spent.
	challenge = challengeLogin(t, client, testUserEmail, testUserPassword)
	status, raw = client.post(t, "/v1/auth/mfa/verify", "", map[string]string{
		"temp_token": challenge.TempToken,
		"code":       codes[0],
	})
	require.Equal(t, http.StatusUnauthorized, status, "body: %s", raw)
	assertAPIError(t, raw, "invalid_mfa_code")
}

// TestMFADisableWithBackupCode verifies the lost-authenticator path: a
// backup code alone is accepted as the disabling credential.
func TestMFADisableWithBackupCode(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	_, codes := enrollMFA(t, client, session.Tokens.AccessToken)

	status, raw := client.post(t, "/v1/mfa/disable", session.Tokens.AccessToken, map[string]any{
		"code":            codes[0],
		"use_backup_code": true,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	result := loginUser(t, client, testUserEmail, testUserPassword)
	require.False(t, result.User.MFAEnabled)
}

// TestMFADisable verifies disabling returns login to the plain password flow.
func TestMFADisable(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)
	session := registerUser(t, client, testUserName, testUserEmail, testUserPassword)

	secret, _ := enrollMFA(t, client, session.Tokens.AccessToken)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	status, raw := client.post(t, "/v1/mfa/disable", session.Tokens.AccessToken, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	// Login is a straight token response again.
	result := loginUser(t, client, testUserEmail, testUserPassword)
	assertTokenResponse(t, result.Tokens)
	require.False(t, result.User.MFAEnabled)
}
