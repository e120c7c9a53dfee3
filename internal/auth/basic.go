// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// BasicAuthManager checks the operator's credentials against a bcrypt hash.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager takes the bcrypt hash as configured, so the plain
// password never appears in config or environment.
func NewBasicAuthManager(username, passwordHash string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("password hash is not a bcrypt hash: %w", err)
	}
	return &BasicAuthManager{
		username:     username,
		passwordHash: []byte(passwordHash),
	}, nil
}

// ValidateCredentials parses an "Authorization: Basic ..." header and
// returns the username when the credentials match.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", fmt.Errorf("invalid authorization header format")
	}
	credentials, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}
	username, password, ok := strings.Cut(string(credentials), ":")
	if !ok {
		return "", fmt.Errorf("invalid credentials format")
	}
	if err := m.Verify(username, password); err != nil {
		return "", err
	}
	return username, nil
}

// Verify checks a username and password pair. Both comparisons always run.
func (m *BasicAuthManager) Verify(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	if !usernameMatch || !passwordMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// WWWAuthenticate is the challenge sent with 401 responses.
func (m *BasicAuthManager) WWWAuthenticate() string {
	return `Basic realm="Logscope", charset="UTF-8"`
}
