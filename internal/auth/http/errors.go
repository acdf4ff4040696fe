package http

import (
	"errors"
	"net/http"

	"github.com/halcyonlabs/authd/internal/auth/service"
	"github.com/halcyonlabs/authd/pkg/httpx"
	"github.com/halcyonlabs/authd/pkg/slogx"
)

// writeServiceError translates the service error taxonomy to HTTP statuses.
// Anything outside the taxonomy is an internal failure: logged with detail,
// surfaced as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict,
			"already_exists", "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidCredential):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credential", "invalid email or password")
	case errors.Is(err, service.ErrTooManyAttempts):
		w.Header().Set("Retry-After", "900")
		httpx.WriteError(w, http.StatusTooManyRequests,
			"too_many_attempts", "too many failed attempts, try again later")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusForbidden,
			"account_locked", "account temporarily locked")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden,
			"email_not_verified", "verify your email address before logging in")
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_mfa_code", "invalid authentication code")
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_token", "token is invalid or expired")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"not_found", "resource not found")
	case errors.Is(err, service.ErrSameAsCurrent):
		httpx.WriteError(w, http.StatusBadRequest,
			"same_as_current", "new password must differ from the current one")
	case errors.Is(err, service.ErrMFANotEnabled):
		httpx.WriteError(w, http.StatusBadRequest,
			"mfa_not_enabled", "MFA is not enabled for this user")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusBadRequest,
			"mfa_already_enabled", "MFA is already enabled for this user")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "internal server error")
	}
}

func writeBadRequest(w http.ResponseWriter, description string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", description)
}
