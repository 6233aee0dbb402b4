// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides JWT and HTTP Basic authentication for the web API.
package auth

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jellywatch/jellywatch/internal/logging"
)

// Handlers exposes the login/logout/userinfo endpoints used in jwt mode.
type Handlers struct {
	jwtManager  *JWTManager
	credentials *BasicAuthManager
	timeout     time.Duration
}

// NewHandlers creates the authentication handlers. Credentials are checked
// against the configured admin account and successful logins are answered
// with a signed session token.
func NewHandlers(jwtManager *JWTManager, credentials *BasicAuthManager, timeout time.Duration) *Handlers {
	return &Handlers{
		jwtManager:  jwtManager,
		credentials: credentials,
		timeout:     timeout,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates an admin user and issues a JWT.
// POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request: invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.credentials.ValidatePassword(req.Username, req.Password); err != nil {
		logging.Warn().Str("username", req.Username).Msg("Login failed")
		http.Error(w, "Unauthorized: invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to generate token")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	expiresAt := time.Now().Add(h.timeout)
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logging.Info().Str("username", req.Username).Msg("User logged in")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{Token: token, ExpiresAt: expiresAt}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode login response")
	}
}

// Logout clears the session cookie. Tokens remain valid until expiry; the
// cookie removal only signals the browser to stop sending them.
// POST /api/v1/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode logout response")
	}
}

// UserInfo returns the identity attached to the request.
// GET /api/v1/auth/userinfo
func (h *Handlers) UserInfo(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized: not authenticated", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"username": claims.Username}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode userinfo response")
	}
}
