// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/models"
)

type contextKey string

// ClaimsContextKey holds the *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// TokenCookie is the cookie the login endpoint sets.
const TokenCookie = "token"

// Middleware enforces the configured auth mode.
type Middleware struct {
	mode  string
	jwt   *JWTManager
	basic *BasicAuthManager
}

// NewMiddleware builds the managers required by cfg.AuthMode.
func NewMiddleware(cfg config.SecurityConfig) (*Middleware, error) {
	m := &Middleware{mode: cfg.AuthMode}
	switch cfg.AuthMode {
	case config.AuthNone:
		return m, nil
	case config.AuthJWT:
		jm, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.jwt = jm
	case config.AuthBasic:
	default:
		return nil, errors.New("unknown auth mode " + cfg.AuthMode)
	}
	bm, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPasswordHash)
	if err != nil {
		return nil, err
	}
	m.basic = bm
	return m, nil
}

// Mode returns the auth mode.
func (m *Middleware) Mode() string { return m.mode }

// Login verifies credentials and, in JWT mode, issues a token. In basic
// mode the returned token is empty: clients keep sending credentials.
func (m *Middleware) Login(username, password string) (token string, expires time.Time, err error) {
	if m.basic == nil {
		return "", time.Time{}, errors.New("login is disabled when AUTH_MODE=none")
	}
	if err := m.basic.Verify(username, password); err != nil {
		return "", time.Time{}, err
	}
	if m.jwt == nil {
		return "", time.Time{}, nil
	}
	token, err = m.jwt.GenerateToken(username, RoleAdmin)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, m.jwt.now().Add(m.jwt.Timeout()), nil
}

// Authenticate rejects unauthenticated requests with 401. In mode "none"
// every request passes with no claims attached.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch m.mode {
		case config.AuthNone:
			next.ServeHTTP(w, r)
		case config.AuthBasic:
			m.handleBasicAuth(w, r, next)
		default:
			m.handleJWTAuth(w, r, next)
		}
	})
}

func (m *Middleware) handleBasicAuth(w http.ResponseWriter, r *http.Request, next http.Handler) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		w.Header().Set("WWW-Authenticate", m.basic.WWWAuthenticate())
		writeAuthError(w, "authentication required")
		return
	}
	username, err := m.basic.ValidateCredentials(authHeader)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Basic auth validation failed")
		w.Header().Set("WWW-Authenticate", m.basic.WWWAuthenticate())
		writeAuthError(w, "invalid credentials")
		return
	}
	claims := &Claims{Username: username, Role: RoleAdmin}
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims)))
}

func (m *Middleware) handleJWTAuth(w http.ResponseWriter, r *http.Request, next http.Handler) {
	token, err := extractJWTToken(r)
	if err != nil {
		writeAuthError(w, err.Error())
		return
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Token validation failed")
		writeAuthError(w, "invalid token")
		return
	}
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims)))
}

// extractJWTToken reads a Bearer header, falling back to the token cookie.
func extractJWTToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookie)
		if err != nil {
			return "", errors.New("missing token")
		}
		return cookie.Value, nil
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", errors.New("invalid authorization header")
	}
	return token, nil
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok
}

// SecurityHeaders sets conservative headers for a JSON and PNG API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    "AUTHENTICATION_ERROR",
			Message: "Unauthorized: " + message,
		},
	})
}
