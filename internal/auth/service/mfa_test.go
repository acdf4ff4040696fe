package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// totpCode derives the current code for a secret the way an authenticator
// app would.
func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestMFASetupStateMachine(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	userID := result.User.ID

	t.Run("confirm before begin fails", func(t *testing.T) {
		_, err := env.mfa.ConfirmSetup(ctx, userID, "000000")
		require.ErrorIs(t, err, ErrMFANotEnabled)
	})

	setup, err := env.mfa.BeginSetup(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OTPAuthURL, "otpauth://totp/")

	t.Run("re-begin overwrites pending secret", func(t *testing.T) {
		again, err := env.mfa.BeginSetup(ctx, userID)
		require.NoError(t, err)
		require.NotEqual(t, setup.Secret, again.Secret)
		setup = again
	})

	t.Run("wrong code does not enable", func(t *testing.T) {
		_, err := env.mfa.ConfirmSetup(ctx, userID, "000000")
		require.ErrorIs(t, err, ErrInvalidMFACode)

		u, err := env.store.Users().GetUserByID(ctx, userID)
		require.NoError(t, err)
		require.False(t, u.MFAEnabled)
	})

	codes, err := env.mfa.ConfirmSetup(ctx, userID, totpCode(t, setup.Secret))
	require.NoError(t, err)
	require.Len(t, codes, backupCodeCount)

	u, err := env.store.Users().GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.True(t, u.MFAEnabled)

	t.Run("begin again while enabled fails", func(t *testing.T) {
		_, err := env.mfa.BeginSetup(ctx, userID)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("confirm again fails", func(t *testing.T) {
		_, err := env.mfa.ConfirmSetup(ctx, userID, totpCode(t, setup.Secret))
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})
}

func TestLoginWithMFA(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	userID := result.User.ID

	setup, err := env.mfa.BeginSetup(ctx, userID)
	require.NoError(t, err)
	backupCodes, err := env.mfa.ConfirmSetup(ctx, userID, totpCode(t, setup.Secret))
	require.NoError(t, err)

	loginResult, challenge, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)
	require.Nil(t, loginResult)
	require.True(t, challenge.RequireMFA)
	require.NotEmpty(t, challenge.TempToken)

	t.Run("wrong code", func(t *testing.T) {
		_, err := env.auth.VerifyMFA(ctx, challenge.TempToken, "000000", "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("totp completes the login", func(t *testing.T) {
		completed, err := env.auth.VerifyMFA(ctx, challenge.TempToken, totpCode(t, setup.Secret), "10.0.0.1")
		require.NoError(t, err)
		require.NotEmpty(t, completed.Tokens.AccessToken)
		require.NotEmpty(t, completed.Tokens.RefreshToken)
	})

	t.Run("backup code works exactly once", func(t *testing.T) {
		_, challenge, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
		require.NoError(t, err)

		completed, err := env.auth.VerifyMFA(ctx, challenge.TempToken, backupCodes[0], "10.0.0.1")
		require.NoError(t, err)
		require.NotEmpty(t, completed.Tokens.AccessToken)

		_, challenge, err = env.auth.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
		require.NoError(t, err)
		_, err = env.auth.VerifyMFA(ctx, challenge.TempToken, backupCodes[0], "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("temp token expires", func(t *testing.T) {
		_, challenge, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
		require.NoError(t, err)

		env.clock.Advance(TempTokenTTL + time.Second)
		_, err = env.auth.VerifyMFA(ctx, challenge.TempToken, totpCode(t, setup.Secret), "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	})

	t.Run("garbage temp token", func(t *testing.T) {
		_, err := env.auth.VerifyMFA(ctx, "not.a.jwt", totpCode(t, setup.Secret), "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	})
}

func TestRegenerateBackupCodes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	userID := result.User.ID

	setup, err := env.mfa.BeginSetup(ctx, userID)
	require.NoError(t, err)
	oldCodes, err := env.mfa.ConfirmSetup(ctx, userID, totpCode(t, setup.Secret))
	require.NoError(t, err)

	t.Run("requires a valid totp code", func(t *testing.T) {
		_, err := env.mfa.RegenerateBackupCodes(ctx, userID, "000000")
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	newCodes, err := env.mfa.RegenerateBackupCodes(ctx, userID, totpCode(t, setup.Secret))
	require.NoError(t, err)
	require.Len(t, newCodes, backupCodeCount)
	require.NotElementsMatch(t, oldCodes, newCodes)

	// The replacement is wholesale: old codes are dead.
	require.ErrorIs(t, env.mfa.ConsumeBackupCode(ctx, userID, oldCodes[0]), ErrInvalidMFACode)
	require.NoError(t, env.mfa.ConsumeBackupCode(ctx, userID, newCodes[0]))

	remaining, err := env.mfa.RemainingBackupCodes(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount-1, remaining)
}

func TestDisableMFA(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	userID := result.User.ID

	setup, err := env.mfa.BeginSetup(ctx, userID)
	require.NoError(t, err)
	_, err = env.mfa.ConfirmSetup(ctx, userID, totpCode(t, setup.Secret))
	require.NoError(t, err)

	t.Run("requires a valid totp code", func(t *testing.T) {
		require.ErrorIs(t, env.mfa.Disable(ctx, userID, "000000", false), ErrInvalidMFACode)
	})

	require.NoError(t, env.mfa.Disable(ctx, userID, totpCode(t, setup.Secret), false))

	// Clean slate: login no longer challenges, backup codes are gone, and a
	// fresh enrollment can begin.
	loginResult, challenge, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.NotNil(t, loginResult)

	remaining, err := env.mfa.RemainingBackupCodes(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, remaining)

	_, err = env.mfa.BeginSetup(ctx, userID)
	require.NoError(t, err)
}

func TestDisableMFAWithBackupCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	userID := result.User.ID

	setup, err := env.mfa.BeginSetup(ctx, userID)
	require.NoError(t, err)
	codes, err := env.mfa.ConfirmSetup(ctx, userID, totpCode(t, setup.Secret))
	require.NoError(t, err)

	t.Run("requires a valid backup code", func(t *testing.T) {
		require.ErrorIs(t, env.mfa.Disable(ctx, userID, "deadbeef", true), ErrInvalidMFACode)
	})

	t.Run("totp code is not accepted as a backup code", func(t *testing.T) {
		require.ErrorIs(t, env.mfa.Disable(ctx, userID, totpCode(t, setup.Secret), true), ErrInvalidMFACode)
	})

	// The lost-authenticator path: a backup code alone disables MFA.
	require.NoError(t, env.mfa.Disable(ctx, userID, codes[0], true))

	u, err := env.store.Users().GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.False(t, u.MFAEnabled)

	loginResult, challenge, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.NotNil(t, loginResult)

	t.Run("backup code disable needs an enrollment", func(t *testing.T) {
		require.ErrorIs(t, env.mfa.Disable(ctx, userID, codes[1], true), ErrMFANotEnabled)
	})
}
