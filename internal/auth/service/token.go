package service

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/store"
	"github.com/halcyonlabs/authd/pkg/cryptox"
	"github.com/halcyonlabs/authd/pkg/idx"
	"github.com/halcyonlabs/authd/pkg/jwtx"
	"github.com/jonboulle/clockwork"
)

// Single-use token lifetimes. Reset links are deliberately short; verify
// links survive a day because signup emails get read late.
const (
	ResetTokenTTL  = time.Hour
	VerifyTokenTTL = 24 * time.Hour

	// TempTokenTTL bounds the window between a correct password and MFA
	// completion.
	TempTokenTTL = 5 * time.Minute
)

// TokenService mints and validates the four token kinds and owns the refresh
// token blacklist. Access and refresh tokens are signed JWTs (kind-scoped
// secrets, see pkg/jwtx); reset and verify tokens are opaque random strings
// persisted server-side and consumed at most once.
type TokenService struct {
	Codec *jwtx.Codec
	Store store.Store
	Clock clockwork.Clock

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTTL
}

// IssueAccess mints a signed access token for the user.
func (s *TokenService) IssueAccess(u domain.User) (string, error) {
	return s.sign(u, jwtx.KindAccess, s.accessTTL())
}

// IssueTemp mints a short-lived access-kind token used solely to carry
// identity between a correct password and MFA completion.
func (s *TokenService) IssueTemp(u domain.User) (string, error) {
	return s.sign(u, jwtx.KindAccess, TempTokenTTL)
}

// IssueRefresh mints a signed refresh token and persists its fingerprint so
// it can later be blacklisted. One row per issuance.
func (s *TokenService) IssueRefresh(ctx context.Context, u domain.User) (string, error) {
	raw, err := s.sign(u, jwtx.KindRefresh, s.refreshTTL())
	if err != nil {
		return "", err
	}

	now := s.now()
	row := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, row); err != nil {
		return "", err
	}
	return raw, nil
}

// IssuePair mints the access+refresh pair returned by every flow that
// completes authentication.
func (s *TokenService) IssuePair(ctx context.Context, u domain.User) (domain.TokenPair, error) {
	access, err := s.IssueAccess(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(ctx, u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}, nil
}

// Verify validates a signed token against the expected kind.
func (s *TokenService) Verify(raw string, expected jwtx.Kind) (jwtx.Claims, error) {
	return s.Codec.Verify(raw, expected)
}

// IsBlacklisted reports whether a refresh token may no longer be used. An
// unknown token is treated as blacklisted: if we have no record of issuing
// it, it must not be honoured.
func (s *TokenService) IsBlacklisted(ctx context.Context, raw string) (bool, error) {
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return rt.Blacklisted, nil
}

// Blacklist marks a refresh token unusable. Idempotent; unknown and
// already-blacklisted tokens are not an error (they are already unusable).
func (s *TokenService) Blacklist(ctx context.Context, raw string) error {
	_, err := s.Store.RefreshTokens().BlacklistRefreshToken(ctx, cryptox.FingerprintToken(raw))
	return err
}

// Rotate implements one-time-use refresh: the presented token is verified,
// blacklisted, and replaced by a fresh pair in a single transaction. A
// blacklisted, unknown, expired or otherwise invalid token fails with
// ErrInvalidOrExpiredToken.
//
// The IsBlacklisted read up front is only a fast path; the authoritative
// one-time-use guard is the conditional blacklist flip inside the
// transaction, so two concurrent rotations of the same token can never both
// succeed.
func (s *TokenService) Rotate(ctx context.Context, raw string) (domain.TokenPair, error) {
	blacklisted, err := s.IsBlacklisted(ctx, raw)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if blacklisted {
		return domain.TokenPair{}, ErrInvalidOrExpiredToken
	}

	claims, err := s.Codec.Verify(raw, jwtx.KindRefresh)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidOrExpiredToken
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidOrExpiredToken
		}
		return domain.TokenPair{}, err
	}

	access, err := s.IssueAccess(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	newRefresh, err := s.sign(u, jwtx.KindRefresh, s.refreshTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := s.now()
	row := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(newRefresh),
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		flipped, err := tx.RefreshTokens().BlacklistRefreshToken(ctx, cryptox.FingerprintToken(raw))
		if err != nil {
			return err
		}
		if !flipped {
			// A concurrent rotation won the race (or the row vanished).
			return ErrInvalidOrExpiredToken
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, row)
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}, nil
}

// IssueSingleUse mints an opaque reset or verify token, persisting only its
// fingerprint. The raw value is returned exactly once for the outbound link.
func (s *TokenService) IssueSingleUse(ctx context.Context, userID string, kind domain.SingleUseKind) (string, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	ttl := VerifyTokenTTL
	if kind == domain.SingleUseReset {
		ttl = ResetTokenTTL
	}

	now := s.now()
	row := domain.SingleUseToken{
		ID:        idx.New().String(),
		UserID:    userID,
		Kind:      kind,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.Store.SingleUseTokens().CreateSingleUseToken(ctx, row); err != nil {
		return "", err
	}
	return raw, nil
}

// ConsumeSingleUse atomically spends a reset or verify token. A second
// consume of the same token fails with ErrInvalidOrExpiredToken, as does an
// expired or unknown one.
func (s *TokenService) ConsumeSingleUse(ctx context.Context, kind domain.SingleUseKind, raw string) (domain.SingleUseToken, error) {
	tok, err := s.Store.SingleUseTokens().ConsumeSingleUseToken(ctx, kind, cryptox.FingerprintToken(raw), s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SingleUseToken{}, ErrInvalidOrExpiredToken
		}
		return domain.SingleUseToken{}, err
	}
	return tok, nil
}

func (s *TokenService) sign(u domain.User, kind jwtx.Kind, ttl time.Duration) (string, error) {
	claims := jwtx.NewClaims(u.ID, u.Email, string(u.Role), kind, ttl, s.Codec.Issuer(), s.now())
	return s.Codec.Sign(claims)
}
