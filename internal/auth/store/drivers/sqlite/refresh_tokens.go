package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, blacklisted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, timeToMillis(t.ExpiresAt),
		boolToInt(t.Blacklisted), timeToMillis(t.CreatedAt), timeToMillis(t.CreatedAt),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, blacklisted, created_at, updated_at
		FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		t                              domain.RefreshToken
		expires, created, updated, bl  int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &bl, &created, &updated); err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.ExpiresAt = millisToTime(expires)
	t.Blacklisted = bl != 0
	t.CreatedAt = millisToTime(created)
	t.UpdatedAt = millisToTime(updated)
	return t, nil
}

func (r *refreshTokensRepo) BlacklistRefreshToken(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET blacklisted = 1, updated_at = ?
		WHERE token_hash = ? AND blacklisted = 0`,
		nowMillis(), hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, timeToMillis(now))
	return err
}
