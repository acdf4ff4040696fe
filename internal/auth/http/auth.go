package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/service"
	"github.com/halcyonlabs/authd/pkg/httpx"
	"github.com/halcyonlabs/authd/pkg/slogx"
)

// AuthHandler serves the credential-bearing authentication endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mfaVerifyRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	result, err := h.AuthService.Register(r.Context(), req.Name, req.Email, req.Password, domain.RoleUser)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, result)
}

// HandleLogin handles POST /v1/auth/login. When the account has MFA enabled
// the response is a challenge ({require_mfa, temp_token}) instead of tokens.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	result, challenge, err := h.AuthService.Login(r.Context(), req.Email, req.Password, httpx.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	if challenge != nil {
		log.Info("login requires mfa completion")
		httpx.WriteJSON(w, http.StatusOK, challenge)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleVerifyMFA handles POST /v1/auth/mfa/verify, completing a challenged
// login with a TOTP or backup code.
func (h *AuthHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TempToken == "" || req.Code == "" {
		writeBadRequest(w, "temp_token and code are required")
		return
	}

	result, err := h.AuthService.VerifyMFA(r.Context(), req.TempToken, req.Code, httpx.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleRefresh handles POST /v1/auth/refresh. The presented refresh token
// is rotated: blacklisted and replaced.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout handles POST /v1/auth/logout. Idempotent.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	if err := h.AuthService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleVerifyEmail handles GET /v1/auth/verify-email?token=...
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeBadRequest(w, "token query parameter is required")
		return
	}

	alreadyVerified, err := h.AuthService.VerifyEmail(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	msg := "email verified"
	if alreadyVerified {
		msg = "email was already verified"
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// HandleSession handles GET /v1/auth/session for the authenticated user.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
		return
	}

	profile, err := h.AuthService.Session(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profile)
}
