package service

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/store"
	"github.com/halcyonlabs/authd/pkg/idx"
	"github.com/jonboulle/clockwork"
)

// Lockout policy defaults. Account and source-address limits are deliberately
// independent: the per-account counter defends against targeted brute force
// (one email, many addresses), the per-address window against credential
// stuffing (many emails, one address).
const (
	DefaultMaxAccountFailures = 5
	DefaultAccountLockWindow  = 15 * time.Minute
	DefaultMaxAddrFailures    = 10
	DefaultAddrWindow         = time.Hour
)

// LoginGuard tracks failed logins per account and per source address and
// enforces lockout windows over the append-only login_attempts audit log.
type LoginGuard struct {
	Store store.Store
	Clock clockwork.Clock

	MaxAccountFailures int
	AccountLockWindow  time.Duration
	MaxAddrFailures    int
	AddrWindow         time.Duration
}

func (g *LoginGuard) now() time.Time {
	if g.Clock != nil {
		return g.Clock.Now()
	}
	return time.Now()
}

func (g *LoginGuard) maxAccountFailures() int {
	if g.MaxAccountFailures > 0 {
		return g.MaxAccountFailures
	}
	return DefaultMaxAccountFailures
}

func (g *LoginGuard) accountLockWindow() time.Duration {
	if g.AccountLockWindow > 0 {
		return g.AccountLockWindow
	}
	return DefaultAccountLockWindow
}

func (g *LoginGuard) maxAddrFailures() int {
	if g.MaxAddrFailures > 0 {
		return g.MaxAddrFailures
	}
	return DefaultMaxAddrFailures
}

func (g *LoginGuard) addrWindow() time.Duration {
	if g.AddrWindow > 0 {
		return g.AddrWindow
	}
	return DefaultAddrWindow
}

// RecordAttempt appends an audit row and updates the per-account counter.
// On failure the counter is bumped atomically and, once it reaches the
// threshold, the account is locked for the lock window. On success the
// counter and any lock are cleared. The per-address window needs no writes
// beyond the audit row; it is recomputed from the log on every check.
func (g *LoginGuard) RecordAttempt(ctx context.Context, email, sourceAddr string, success bool) error {
	email = domain.NormalizeEmail(email)
	now := g.now()

	return g.Store.WithTx(ctx, func(tx store.Tx) error {
		attempt := domain.LoginAttempt{
			ID:         idx.New().String(),
			Email:      email,
			SourceAddr: sourceAddr,
			Successful: success,
			CreatedAt:  now,
		}
		if err := tx.LoginAttempts().CreateLoginAttempt(ctx, attempt); err != nil {
			return err
		}

		if success {
			return tx.Users().ResetLoginFailures(ctx, email)
		}

		if err := tx.Users().IncrementFailedAttempts(ctx, email, now); err != nil {
			return err
		}
		return tx.Users().LockAccountIfThresholdReached(
			ctx, email, g.maxAccountFailures(), now.Add(g.accountLockWindow()))
	})
}

// IsBlocked reports whether an attempt for this email from this address must
// be rejected before credentials are even considered. An expired account
// lock is lazily cleared here as a side effect.
func (g *LoginGuard) IsBlocked(ctx context.Context, email, sourceAddr string) (bool, error) {
	email = domain.NormalizeEmail(email)
	now := g.now()

	u, err := g.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Unknown emails still count against the address window below.
	case err != nil:
		return false, err
	case u.AccountLocked:
		if u.AccountLockedUntil != nil && now.Before(*u.AccountLockedUntil) {
			return true, nil
		}
		// Lock has expired; clear it so the user gets a clean slate.
		if err := g.Store.Users().ResetLoginFailures(ctx, email); err != nil {
			return false, err
		}
	}

	failures, err := g.Store.LoginAttempts().CountRecentFailuresByAddr(ctx, sourceAddr, now.Add(-g.addrWindow()))
	if err != nil {
		return false, err
	}
	return failures >= g.maxAddrFailures(), nil
}
