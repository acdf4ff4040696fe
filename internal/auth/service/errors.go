package service

import "errors"

// Operational error taxonomy. The HTTP layer owns the translation to status
// codes; services only ever return these (or wrapped infrastructure errors,
// which the boundary treats as opaque internal failures).
var (
	ErrAlreadyExists         = errors.New("already_exists")
	ErrInvalidCredential     = errors.New("invalid_credential")
	ErrTooManyAttempts       = errors.New("too_many_attempts")
	ErrAccountLocked         = errors.New("account_locked")
	ErrEmailNotVerified      = errors.New("email_not_verified")
	ErrInvalidMFACode        = errors.New("invalid_mfa_code")
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	ErrNotFound              = errors.New("not_found")
	ErrSameAsCurrent         = errors.New("same_as_current")
	ErrMFANotEnabled         = errors.New("mfa_not_enabled")
	ErrMFAAlreadyEnabled     = errors.New("mfa_already_enabled")
)
