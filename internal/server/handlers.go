// Package server exposes the auth flows over HTTP/JSON.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace-auth/internal/auth/service"
	"marketplace-auth/internal/otp"
	"marketplace-auth/internal/security"
)

// AuthHandler serves the /v1/auth endpoints.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler returns an AuthHandler backed by the given service.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{svc: svc, logger: logger}
}

type requestOTPRequest struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type requestOTPResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	// Code is populated only in dev OTP mode.
	Code string `json:"code,omitempty"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Code  string `json:"code"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	IsNewUser    bool      `json:"is_new_user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type meResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RequestOTP handles POST /v1/auth/otp/request.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.RequestOTP(r.Context(), req.Phone, req.Email)
	if err != nil {
		if errors.Is(err, otp.ErrMissingIdentifier) {
			writeError(w, http.StatusBadRequest, "phone or email is required")
			return
		}
		h.logger.Error("request otp failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, requestOTPResponse{ExpiresAt: out.ExpiresAt, Code: out.Code})
}

// VerifyOTP handles POST /v1/auth/otp/verify.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	res, err := h.svc.LoginWithOTP(r.Context(), req.Phone, req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrMissingIdentifier):
			writeError(w, http.StatusBadRequest, "phone or email is required")
		case errors.Is(err, service.ErrInvalidOTP):
			writeError(w, http.StatusUnauthorized, "invalid or expired code")
		default:
			h.logger.Error("otp login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
		IsNewUser:    res.IsNewUser,
	})
}

// Refresh handles POST /v1/auth/refresh. The refresh token travels in the
// request body, not the Authorization header.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken):
			writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		case errors.Is(err, security.ErrMissingSecret):
			h.logger.Error("refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			h.logger.Error("refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
	})
}

// Logout handles POST /v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// A missing or malformed body is fine; logout succeeds regardless.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /v1/auth/me. Requires RequireAuth upstream.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:    p.ID,
		Name:  p.Name,
		Phone: p.Phone,
		Email: p.Email,
		Role:  string(p.Role),
	})
}

// Healthz handles GET /healthz.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
