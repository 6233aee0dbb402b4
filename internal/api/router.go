// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jellywatch/jellywatch/internal/auth"
	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/middleware"
)

// Router assembles the HTTP surface from handlers and middleware.
type Router struct {
	cfg          *config.Config
	handler      *Handler
	authMW       *auth.Middleware
	authHandlers *auth.Handlers
}

// NewRouter creates the router. authHandlers may be nil when the auth mode
// does not use the login endpoint.
func NewRouter(cfg *config.Config, handler *Handler, authMW *auth.Middleware, authHandlers *auth.Handlers) *Router {
	return &Router{
		cfg:          cfg,
		handler:      handler,
		authMW:       authMW,
		authHandlers: authHandlers,
	}
}

// Setup wires all routes and returns the root handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health endpoints stay unauthenticated but get a generous rate limit so
	// probes cannot be used for abuse.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", rt.handler.Health)
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	if rt.authHandlers != nil {
		r.Route("/api/v1/auth", func(r chi.Router) {
			// Strict limit on login to slow down brute forcing.
			r.With(httprate.LimitByIP(5, 5*time.Minute)).Post("/login", rt.authHandlers.Login)
			r.Post("/logout", rt.authHandlers.Logout)
			r.With(rt.authMW.Authenticate).Get("/userinfo", rt.authHandlers.UserInfo)
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.rateLimit())
		r.Use(middleware.Prometheus)
		r.Use(rt.authMW.Authenticate)

		r.Get("/activity", rt.handler.Activity)
		r.Get("/history", rt.handler.History)
		r.Get("/history/stats", rt.handler.HistoryStats)
		r.Get("/users", rt.handler.Users)
		r.Get("/metadata/{id}", rt.handler.Metadata)
		r.Get("/server-info", rt.handler.ServerInfo)
		r.Post("/sessions/{id}/terminate", rt.handler.TerminateSession)
		r.Get("/ws", rt.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit builds the per-IP limiter for data endpoints, or a no-op when
// rate limiting is disabled.
func (rt *Router) rateLimit() func(http.Handler) http.Handler {
	sec := rt.cfg.Security
	if sec.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	window := sec.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(sec.RateLimitReqs, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}
