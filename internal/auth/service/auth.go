package service

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/notify"
	"github.com/halcyonlabs/authd/internal/auth/store"
	"github.com/halcyonlabs/authd/pkg/cryptox"
	"github.com/halcyonlabs/authd/pkg/idx"
	"github.com/halcyonlabs/authd/pkg/jwtx"
	"github.com/halcyonlabs/authd/pkg/slogx"
	"github.com/jonboulle/clockwork"
)

const notifyTimeout = 10 * time.Second

// AuthService orchestrates the authentication flows: it composes the guard,
// the credential store, the MFA service and the token service into the
// register/login/refresh/reset state machine.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	MFA      *MFAService
	Guard    *LoginGuard
	Notifier notify.Notifier
	Clock    clockwork.Clock

	// AppBaseURL prefixes the links embedded in outbound emails.
	AppBaseURL string

	// RequireEmailVerification gates login on a completed verify-email flow.
	RequireEmailVerification bool

	// LoginAlerts enables the best-effort new-sign-in notification.
	LoginAlerts bool
}

func (s *AuthService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// Register creates a user and authenticates them immediately. If email
// verification is required a verify token is minted and sent, but the fresh
// session is issued regardless; only login is gated on verification.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidRole(role) {
		role = domain.RoleUser
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := domain.User{
		ID:                  idx.New().String(),
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Role:                role,
		IsActive:            true,
		IsEmailVerified:     !s.RequireEmailVerification,
		PasswordLastChanged: now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	if s.RequireEmailVerification {
		verifyRaw, err := s.Tokens.IssueSingleUse(ctx, u.ID, domain.SingleUseVerify)
		if err != nil {
			return nil, err
		}
		s.notifyAsync(ctx, u.Email, notify.TemplateVerifyEmail, notify.Data{
			"name": u.Name,
			"link": s.AppBaseURL + "/v1/auth/verify-email?token=" + verifyRaw,
		})
	}
	s.notifyAsync(ctx, u.Email, notify.TemplateWelcome, notify.Data{"name": u.Name})

	pair, err := s.Tokens.IssuePair(ctx, u)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{User: u.Public(), Tokens: pair}, nil
}

// Login runs the authentication state machine:
// blocked check -> credential compare -> lock check -> verification check ->
// MFA branch -> issue tokens. Exactly one of the result or the challenge is
// non-nil on success.
func (s *AuthService) Login(ctx context.Context, email, password, sourceAddr string) (*domain.LoginResult, *domain.MFAChallenge, error) {
	email = domain.NormalizeEmail(email)

	blocked, err := s.Guard.IsBlocked(ctx, email, sourceAddr)
	if err != nil {
		return nil, nil, err
	}
	if blocked {
		return nil, nil, ErrTooManyAttempts
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Record the failure for the address window; the account counter
			// update is a no-op for unknown emails.
			if gerr := s.Guard.RecordAttempt(ctx, email, sourceAddr, false); gerr != nil {
				return nil, nil, gerr
			}
			return nil, nil, ErrInvalidCredential
		}
		return nil, nil, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if gerr := s.Guard.RecordAttempt(ctx, email, sourceAddr, false); gerr != nil {
			return nil, nil, gerr
		}
		return nil, nil, ErrInvalidCredential
	}

	// Correct password, but the lock window may still be active (set by a
	// concurrent attempt after the IsBlocked check above).
	if u.AccountLocked && u.AccountLockedUntil != nil && s.now().Before(*u.AccountLockedUntil) {
		return nil, nil, ErrAccountLocked
	}

	if !u.IsActive {
		return nil, nil, ErrInvalidCredential
	}

	if s.RequireEmailVerification && !u.IsEmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	if u.MFAEnabled {
		// No successful attempt is recorded yet; the login only completes
		// after the MFA challenge.
		temp, err := s.Tokens.IssueTemp(u)
		if err != nil {
			return nil, nil, err
		}
		return nil, &domain.MFAChallenge{RequireMFA: true, TempToken: temp}, nil
	}

	result, err := s.finishLogin(ctx, u, sourceAddr)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

// VerifyMFA completes a login that branched into the MFA challenge. The code
// may be a TOTP code or one of the user's backup codes.
func (s *AuthService) VerifyMFA(ctx context.Context, tempToken, code, sourceAddr string) (*domain.LoginResult, error) {
	claims, err := s.Tokens.Verify(tempToken, jwtx.KindAccess)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	err = s.MFA.Challenge(ctx, u.ID, code)
	if errors.Is(err, ErrInvalidMFACode) {
		err = s.MFA.ConsumeBackupCode(ctx, u.ID, code)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidMFACode) {
			if gerr := s.Guard.RecordAttempt(ctx, u.Email, sourceAddr, false); gerr != nil {
				return nil, gerr
			}
		}
		return nil, err
	}

	return s.finishLogin(ctx, u, sourceAddr)
}

// Refresh rotates a refresh token: the presented token is blacklisted and a
// new access+refresh pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return s.Tokens.Rotate(ctx, refreshToken)
}

// Logout blacklists the presented refresh token. Idempotent: logging out an
// already-blacklisted or unknown token succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.Tokens.Blacklist(ctx, refreshToken)
}

// ForgotPassword issues a reset token and notifies the account holder. It
// always succeeds regardless of whether the email exists, so callers learn
// nothing about registered addresses.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	resetRaw, err := s.Tokens.IssueSingleUse(ctx, u.ID, domain.SingleUseReset)
	if err != nil {
		return err
	}

	s.notifyAsync(ctx, u.Email, notify.TemplateResetPassword, notify.Data{
		"name": u.Name,
		"link": s.AppBaseURL + "/reset-password?token=" + resetRaw,
	})
	return nil
}

// ResetPassword spends a reset token and overwrites the password hash. No
// current-password check; possession of the token is the proof.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	tok, err := s.Tokens.ConsumeSingleUse(ctx, domain.SingleUseReset, token)
	if err != nil {
		return err
	}

	u, err := s.Store.Users().GetUserByID(ctx, tok.UserID)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash, s.now()); err != nil {
		return err
	}

	s.notifyAsync(ctx, u.Email, notify.TemplatePasswordChanged, notify.Data{"name": u.Name})
	return nil
}

// ChangePassword rotates the password for an authenticated user. The current
// password must match and the new one must differ.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, u.PasswordHash); err != nil {
		return ErrInvalidCredential
	}
	if newPassword == currentPassword {
		return ErrSameAsCurrent
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash, s.now()); err != nil {
		return err
	}

	s.notifyAsync(ctx, u.Email, notify.TemplatePasswordChanged, notify.Data{"name": u.Name})
	return nil
}

// VerifyEmail spends a verify token and marks the user's email verified.
// Verifying an already-verified account is not an error; the returned flag
// distinguishes the two outcomes.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (alreadyVerified bool, err error) {
	tok, err := s.Tokens.ConsumeSingleUse(ctx, domain.SingleUseVerify, token)
	if err != nil {
		return false, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, tok.UserID)
	if err != nil {
		return false, err
	}
	if u.IsEmailVerified {
		return true, nil
	}

	return false, s.Store.Users().SetEmailVerified(ctx, u.ID)
}

// Session resolves the authenticated user's public profile.
func (s *AuthService) Session(ctx context.Context, userID string) (domain.PublicUser, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PublicUser{}, ErrNotFound
		}
		return domain.PublicUser{}, err
	}
	return u.Public(), nil
}

// finishLogin is the shared tail of login and verifyMfa: record the success,
// stamp last_login, mint tokens, fire the alert.
func (s *AuthService) finishLogin(ctx context.Context, u domain.User, sourceAddr string) (*domain.LoginResult, error) {
	now := s.now()

	if err := s.Guard.RecordAttempt(ctx, u.Email, sourceAddr, true); err != nil {
		return nil, err
	}
	if err := s.Store.Users().UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}

	pair, err := s.Tokens.IssuePair(ctx, u)
	if err != nil {
		return nil, err
	}

	if s.LoginAlerts {
		s.notifyAsync(ctx, u.Email, notify.TemplateLoginAlert, notify.Data{
			"name":        u.Name,
			"source_addr": sourceAddr,
			"at":          now.UTC().Format(time.RFC3339),
		})
	}

	u.LastLogin = &now
	return &domain.LoginResult{User: u.Public(), Tokens: pair}, nil
}

// notifyAsync delivers a notification without blocking or failing the parent
// flow. Errors are logged and dropped.
func (s *AuthService) notifyAsync(ctx context.Context, to string, tpl notify.Template, data notify.Data) {
	if s.Notifier == nil {
		return
	}
	l := slogx.FromContext(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.Notifier.Send(sendCtx, to, tpl, data); err != nil {
			l.Warn("notification delivery failed",
				"template", string(tpl),
				"error", err,
			)
		}
	}()
}
