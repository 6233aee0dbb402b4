// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jellywatch/jellywatch/internal/logging"
)

type contextKey string

// ClaimsContextKey is the request context key under which authenticated
// claims are stored.
const ClaimsContextKey contextKey = "claims"

// TokenCookieName is the cookie carrying the session JWT. Browser clients
// (including the dashboard websocket, which cannot set headers) authenticate
// through it.
const TokenCookieName = "jellywatch_token"

// AuthModeJWT, AuthModeBasic and AuthModeNone are the supported values of
// security.auth_mode.
const (
	AuthModeJWT   = "jwt"
	AuthModeBasic = "basic"
	AuthModeNone  = "none"
)

// Middleware enforces the configured authentication mode on API routes.
type Middleware struct {
	jwtManager       *JWTManager
	basicAuthManager *BasicAuthManager
	authMode         string
}

// NewMiddleware creates authentication middleware. The managers may be nil
// when the corresponding mode is not configured.
func NewMiddleware(jwtManager *JWTManager, basicAuthManager *BasicAuthManager, authMode string) *Middleware {
	return &Middleware{
		jwtManager:       jwtManager,
		basicAuthManager: basicAuthManager,
		authMode:         authMode,
	}
}

// Authenticate wraps a handler with authentication appropriate to the
// configured mode.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch m.authMode {
		case AuthModeNone:
			next.ServeHTTP(w, r)
		case AuthModeBasic:
			m.handleBasicAuth(w, r, next)
		default:
			m.handleJWTAuth(w, r, next)
		}
	})
}

func (m *Middleware) handleBasicAuth(w http.ResponseWriter, r *http.Request, next http.Handler) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		m.sendBasicAuthChallenge(w, "Unauthorized: authentication required")
		return
	}

	username, err := m.basicAuthManager.ValidateCredentials(authHeader)
	if err != nil {
		logging.Warn().Err(err).Msg("Basic auth validation failed")
		m.sendBasicAuthChallenge(w, "Unauthorized: invalid credentials")
		return
	}

	claims := &Claims{Username: username}
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims)))
}

func (m *Middleware) sendBasicAuthChallenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", m.basicAuthManager.GetWWWAuthenticateHeader())
	http.Error(w, message, http.StatusUnauthorized)
}

func (m *Middleware) handleJWTAuth(w http.ResponseWriter, r *http.Request, next http.Handler) {
	tokenString := extractToken(r)
	if tokenString == "" {
		http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := m.jwtManager.ValidateToken(tokenString)
	if err != nil {
		logging.Warn().Err(err).Msg("JWT validation failed")
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims)))
}

// extractToken pulls the JWT from the Authorization header or, failing that,
// the session cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetClaims returns the authenticated claims from a request context, or nil
// when the request was not authenticated (auth mode "none").
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}
