package http

import (
	"encoding/json"
	"net/http"

	"github.com/halcyonlabs/authd/internal/auth/service"
	"github.com/halcyonlabs/authd/pkg/httpx"
)

// MFAHandler serves MFA enrollment management for authenticated users.
// Login-time MFA completion lives on AuthHandler (it happens before a full
// session exists).
type MFAHandler struct {
	MFAService *service.MFAService
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

type mfaDisableRequest struct {
	Code          string `json:"code"`
	UseBackupCode bool   `json:"use_backup_code"`
}

type backupCodesResponse struct {
	Codes []string `json:"codes"`
}

// HandleSetup handles POST /v1/mfa/setup: generates a pending TOTP secret.
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
		return
	}

	setup, err := h.MFAService.BeginSetup(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, setup)
}

// HandleConfirm handles POST /v1/mfa/confirm: proves authenticator
// possession, enables MFA, returns backup codes once.
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	codes, err := h.MFAService.ConfirmSetup(r.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, backupCodesResponse{Codes: codes})
}

// HandleRegenerateBackupCodes handles POST /v1/mfa/backup-codes.
func (h *MFAHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(r.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, backupCodesResponse{Codes: codes})
}

// HandleDisable handles POST /v1/mfa/disable. The code may be a TOTP code
// or, with use_backup_code, one of the user's backup codes.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authentication")
		return
	}

	var req mfaDisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	if err := h.MFAService.Disable(r.Context(), userID, req.Code, req.UseBackupCode); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "MFA disabled"})
}
