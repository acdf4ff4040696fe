package service

import (
	"context"
	"testing"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/pkg/cryptox"
	"github.com/halcyonlabs/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	_, err := env.tokens.Verify(result.Tokens.AccessToken, jwtx.KindRefresh)
	require.Error(t, err)

	_, err = env.tokens.Verify(result.Tokens.RefreshToken, jwtx.KindAccess)
	require.Error(t, err)

	claims, err := env.tokens.Verify(result.Tokens.AccessToken, jwtx.KindAccess)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
}

func TestUnknownRefreshTokenIsBlacklisted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	// A well-signed refresh token we have no issuance record of must be
	// treated as blacklisted.
	claims := jwtx.NewClaims(result.User.ID, "alice@example.com", "user", jwtx.KindRefresh,
		time.Hour, env.tokens.Codec.Issuer(), env.clock.Now())
	forged, err := env.tokens.Codec.Sign(claims)
	require.NoError(t, err)

	blacklisted, err := env.tokens.IsBlacklisted(ctx, forged)
	require.NoError(t, err)
	require.True(t, blacklisted)

	_, err = env.tokens.Rotate(ctx, forged)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// Whereas the genuinely issued one is fine.
	blacklisted, err = env.tokens.IsBlacklisted(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	require.False(t, blacklisted)
}

func TestRefreshTokenBlacklistExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	// The blacklist flip is a conditional update: of two rotations racing on
	// the same token, only the one that makes the flip may mint a new pair.
	hash := cryptox.FingerprintToken(result.Tokens.RefreshToken)

	flipped, err := env.store.RefreshTokens().BlacklistRefreshToken(ctx, hash)
	require.NoError(t, err)
	require.True(t, flipped)

	flipped, err = env.store.RefreshTokens().BlacklistRefreshToken(ctx, hash)
	require.NoError(t, err)
	require.False(t, flipped, "second flip of the same token must report false")

	_, err = env.tokens.Rotate(ctx, result.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// Unknown fingerprints flip nothing.
	flipped, err = env.store.RefreshTokens().BlacklistRefreshToken(ctx, "no-such-hash")
	require.NoError(t, err)
	require.False(t, flipped)
}

func TestAccessTokenExpiry(t *testing.T) {
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	env.clock.Advance(env.tokens.accessTTL() + time.Second)

	_, err := env.tokens.Verify(result.Tokens.AccessToken, jwtx.KindAccess)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestSingleUseTokenConsumeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	raw, err := env.tokens.IssueSingleUse(ctx, result.User.ID, domain.SingleUseReset)
	require.NoError(t, err)

	tok, err := env.tokens.ConsumeSingleUse(ctx, domain.SingleUseReset, raw)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, tok.UserID)
	require.True(t, tok.Used)

	_, err = env.tokens.ConsumeSingleUse(ctx, domain.SingleUseReset, raw)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestSingleUseTokenKindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	result := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	raw, err := env.tokens.IssueSingleUse(ctx, result.User.ID, domain.SingleUseVerify)
	require.NoError(t, err)

	// A verify token cannot be spent as a reset token.
	_, err = env.tokens.ConsumeSingleUse(ctx, domain.SingleUseReset, raw)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	_, err = env.tokens.ConsumeSingleUse(ctx, domain.SingleUseVerify, raw)
	require.NoError(t, err)
}
