package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
)

type loginAttemptsRepo struct {
	db dbtx
}

func (r *loginAttemptsRepo) CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_attempts (id, email, source_addr, successful, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.SourceAddr, boolToInt(a.Successful), timeToMillis(a.CreatedAt))
	return err
}

func (r *loginAttemptsRepo) CountRecentFailuresByAddr(ctx context.Context, addr string, since time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE source_addr = ? AND successful = 0 AND created_at >= ?`,
		addr, timeToMillis(since))

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *loginAttemptsRepo) DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE created_at < ?`, timeToMillis(cutoff))
	return err
}
