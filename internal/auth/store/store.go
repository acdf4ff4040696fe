package store

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable.
//
// Every token-consumption and counter path is either a single conditional
// statement (compare-and-set) or runs inside WithTx, so concurrent requests
// can never double-spend a token or lose a lockout increment.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	SingleUseTokens() SingleUseTokens
	MFARecords() MFARecords
	BackupCodes() BackupCodes
	LoginAttempts() LoginAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil error and
	// rolling back otherwise. Preferred over Tx for multi-step mutations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password hash and password_last_changed.
	UpdatePasswordHash(ctx context.Context, userID, newHash string, changedAt time.Time) error

	// SetEmailVerified marks the user's email as verified.
	SetEmailVerified(ctx context.Context, userID string) error

	// SetMFAEnabled toggles the user's mfa_enabled flag.
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error

	// UpdateLastLogin records a successful authentication time.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// IncrementFailedAttempts atomically bumps the failure counter and
	// stamps last_failed_login. A no-op for unknown emails.
	IncrementFailedAttempts(ctx context.Context, email string, at time.Time) error

	// LockAccountIfThresholdReached sets the account lock iff the failure
	// counter has reached threshold. Atomic conditional update.
	LockAccountIfThresholdReached(ctx context.Context, email string, threshold int, until time.Time) error

	// ResetLoginFailures clears the failure counter and any account lock.
	// Used on successful login and on lazy unlock of an expired lock.
	ResetLoginFailures(ctx context.Context, email string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token row.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the row for a token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// BlacklistRefreshToken flips blacklisted=1 iff the row exists and is not
	// blacklisted yet, reporting whether this call made the flip. Conditional
	// update: of any number of concurrent callers exactly one observes true,
	// which is what makes refresh rotation one-time-use. Unknown hashes are
	// not an error (the token is already unusable), they just report false.
	BlacklistRefreshToken(ctx context.Context, hash string) (bool, error)

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error
}

type SingleUseTokens interface {
	// CreateSingleUseToken stores a reset or verify token row.
	CreateSingleUseToken(ctx context.Context, t domain.SingleUseToken) error

	// ConsumeSingleUseToken atomically finds a not-used, not-expired token of
	// the given kind by fingerprint and marks it used, returning the row.
	// Returns ErrNotFound when no such token exists - including when it was
	// already consumed, so two concurrent consumers cannot both succeed.
	ConsumeSingleUseToken(ctx context.Context, kind domain.SingleUseKind, hash string, now time.Time) (domain.SingleUseToken, error)

	// DeleteExpiredSingleUseTokens is housekeeping.
	DeleteExpiredSingleUseTokens(ctx context.Context, now time.Time) error
}

type MFARecords interface {
	// UpsertMFARecord creates or replaces a user's (pending) enrollment.
	UpsertMFARecord(ctx context.Context, rec domain.MFARecord) error

	// GetMFARecord returns the user's enrollment, ErrNotFound if absent.
	GetMFARecord(ctx context.Context, userID string) (domain.MFARecord, error)

	// MarkMFAVerified flips verified=1 on the user's record.
	MarkMFAVerified(ctx context.Context, userID string) error

	// DeleteMFARecord removes the enrollment (MFA disable).
	DeleteMFARecord(ctx context.Context, userID string) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code fingerprint for a user.
	CreateBackupCode(ctx context.Context, userID, codeHash string) error

	// ConsumeBackupCode atomically removes a matching code, reporting whether
	// one was consumed. A code can never be consumed twice.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error)

	// DeleteAllBackupCodes removes every code for a user (regeneration, disable).
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountBackupCodes returns the number of remaining codes.
	CountBackupCodes(ctx context.Context, userID string) (int, error)
}

type LoginAttempts interface {
	// CreateLoginAttempt appends an audit row. Rows are never mutated.
	CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// CountRecentFailuresByAddr counts failed attempts from a source address
	// since the given time (sliding-window source limiter).
	CountRecentFailuresByAddr(ctx context.Context, addr string, since time.Time) (int, error)

	// DeleteLoginAttemptsBefore is housekeeping for the audit log.
	DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) error
}
