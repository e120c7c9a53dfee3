// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/logscope/internal/auth"
	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/query"
	"github.com/tomtom215/logscope/internal/validation"
)

const maxLoginBody = 4 << 10

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries the session token. Token is empty in basic mode,
// where clients keep sending credentials on every request.
type LoginResponse struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Mode      string    `json:"mode"`
}

// Login verifies the operator credentials and, in JWT mode, issues a token
// both in the body and as an HttpOnly cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil || h.auth.Mode() == config.AuthNone {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Authentication is disabled", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, query.CodeValidation, "Invalid request body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondQueryError(w, r, verr)
		return
	}

	token, expires, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit.LogAuth(r.Context(), r, req.Username, h.auth.Mode(), err)
			logging.Ctx(r.Context()).Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Failed login attempt")
			respondError(w, r, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid username or password", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, query.CodeInternal, "Login failed", err)
		return
	}

	if token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.TokenCookie,
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
			SameSite: http.SameSiteStrictMode,
		})
	}
	h.audit.LogAuth(r.Context(), r, req.Username, h.auth.Mode(), nil)
	logging.Ctx(r.Context()).Info().Str("username", sanitizeLogValue(req.Username)).Msg("Login succeeded")
	respondSuccess(w, r, LoginResponse{Token: token, ExpiresAt: expires, Mode: h.auth.Mode()})
}
