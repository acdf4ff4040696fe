package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, email, password_hash, role, is_active,
	is_email_verified, mfa_enabled, failed_login_attempts, last_failed_login,
	account_locked, account_locked_until, password_last_changed, last_login,
	created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, role, is_active, is_email_verified,
			mfa_enabled, failed_login_attempts, account_locked,
			password_last_changed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role),
		boolToInt(u.IsActive), boolToInt(u.IsEmailVerified),
		timeToMillis(u.PasswordLastChanged),
		timeToMillis(u.CreatedAt), timeToMillis(u.UpdatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string, changedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, password_last_changed = ?, updated_at = ?
		WHERE id = ?`,
		newHash, timeToMillis(changedAt), timeToMillis(changedAt), userID)
	return err
}

func (r *usersRepo) SetEmailVerified(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_email_verified = 1, updated_at = ? WHERE id = ?`,
		nowMillis(), userID)
	return err
}

func (r *usersRepo) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), nowMillis(), userID)
	return err
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		timeToMillis(at), timeToMillis(at), userID)
	return err
}

func (r *usersRepo) IncrementFailedAttempts(ctx context.Context, email string, at time.Time) error {
	// Atomic in-database increment; concurrent failures cannot lose updates.
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    last_failed_login = ?, updated_at = ?
		WHERE email = ?`,
		timeToMillis(at), timeToMillis(at), email)
	return err
}

func (r *usersRepo) LockAccountIfThresholdReached(ctx context.Context, email string, threshold int, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET account_locked = 1, account_locked_until = ?, updated_at = ?
		WHERE email = ? AND failed_login_attempts >= ?`,
		timeToMillis(until), nowMillis(), email, threshold)
	return err
}

func (r *usersRepo) ResetLoginFailures(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, account_locked = 0,
		    account_locked_until = NULL, updated_at = ?
		WHERE email = ?`,
		nowMillis(), email)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                             domain.User
		role                          string
		isActive, isVerified, mfaOn   int64
		locked                        int64
		lastFailed, lockedUntil       sql.NullInt64
		lastLogin                     sql.NullInt64
		pwChanged, createdAt, updated int64
	)

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &isActive,
		&isVerified, &mfaOn, &u.FailedLoginAttempts, &lastFailed,
		&locked, &lockedUntil, &pwChanged, &lastLogin,
		&createdAt, &updated,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Role = domain.Role(role)
	u.IsActive = isActive != 0
	u.IsEmailVerified = isVerified != 0
	u.MFAEnabled = mfaOn != 0
	u.AccountLocked = locked != 0
	u.LastFailedLogin = millisToNullTime(lastFailed)
	u.AccountLockedUntil = millisToNullTime(lockedUntil)
	u.PasswordLastChanged = millisToTime(pwChanged)
	u.LastLogin = millisToNullTime(lastLogin)
	u.CreatedAt = millisToTime(createdAt)
	u.UpdatedAt = millisToTime(updated)

	return u, nil
}
