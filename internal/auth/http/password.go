package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/halcyonlabs/authd/internal/auth/service"
	"github.com/halcyonlabs/authd/pkg/httpx"
)

// PasswordHandler serves the password lifecycle endpoints.
type PasswordHandler struct {
	AuthService *service.AuthService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleForgot handles POST /v1/auth/password/forgot. The response is the
// same whether or not the email exists.
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeBadRequest(w, "email is required")
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

// HandleReset handles POST /v1/auth/password/reset. A spent or expired token
// is a 400 here (the caller followed a dead link, not a failed login).
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeBadRequest(w, "token and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	if err := h.AuthService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_token", "reset token is invalid or expired")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// HandleChange handles POST /v1/auth/password/change for the authenticated
// user.
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeBadRequest(w, "current_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	if err := h.AuthService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
