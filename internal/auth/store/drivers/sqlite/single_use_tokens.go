package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/store"
)

type singleUseTokensRepo struct {
	db dbtx
}

func (r *singleUseTokensRepo) CreateSingleUseToken(ctx context.Context, t domain.SingleUseToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO single_use_tokens (
			id, user_id, kind, token_hash, expires_at, used, created_at
		) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		t.ID, t.UserID, string(t.Kind), t.TokenHash,
		timeToMillis(t.ExpiresAt), timeToMillis(t.CreatedAt),
	)
	return err
}

func (r *singleUseTokensRepo) ConsumeSingleUseToken(
	ctx context.Context,
	kind domain.SingleUseKind,
	hash string,
	now time.Time,
) (domain.SingleUseToken, error) {
	// Single conditional UPDATE is the consumption point: of two concurrent
	// consumers exactly one sees rows-affected == 1.
	res, err := r.db.ExecContext(ctx, `
		UPDATE single_use_tokens SET used = 1
		WHERE kind = ? AND token_hash = ? AND used = 0 AND expires_at > ?`,
		string(kind), hash, timeToMillis(now))
	if err != nil {
		return domain.SingleUseToken{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.SingleUseToken{}, err
	}
	if affected == 0 {
		return domain.SingleUseToken{}, store.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, token_hash, expires_at, used, created_at
		FROM single_use_tokens WHERE kind = ? AND token_hash = ?`,
		string(kind), hash)

	var (
		t                     domain.SingleUseToken
		k                     string
		expires, used, created int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &k, &t.TokenHash, &expires, &used, &created); err != nil {
		return domain.SingleUseToken{}, mapNotFound(err)
	}

	t.Kind = domain.SingleUseKind(k)
	t.ExpiresAt = millisToTime(expires)
	t.Used = used != 0
	t.CreatedAt = millisToTime(created)
	return t, nil
}

func (r *singleUseTokensRepo) DeleteExpiredSingleUseTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM single_use_tokens WHERE expires_at < ?`, timeToMillis(now))
	return err
}
