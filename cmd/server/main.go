// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package main is the entry point for the JellyWatch server.
//
// JellyWatch is a self-hosted monitoring dashboard for Jellyfin. It follows
// playback activity in real time over the Jellyfin websocket, reconciles it
// with periodic session polling, records finished playbacks to DuckDB, and
// serves a web API with live updates pushed to connected browsers.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading from defaults, config file, and
//     environment variables (koanf v2)
//  2. Database: DuckDB with the play history, users, and library tables
//  3. Metadata: normalized item metadata behind memory and disk caches
//  4. Activity: the session reconciler merging websocket events and poll
//     snapshots
//  5. Jellyfin manager: REST client, realtime websocket transport, and
//     session poller
//  6. WebSocket hub: realtime updates to connected dashboard clients
//  7. Authentication: JWT, Basic Auth, or no-auth mode
//  8. HTTP server: the REST API and Prometheus metrics
//
// All long-running components run under a suture supervision tree and are
// restarted with backoff when they fail.
//
// # Configuration
//
// Configuration keys can be provided via config.yaml or environment
// variables from a fixed alias list (e.g. JELLYFIN_URL maps to jellyfin.url);
// unlisted variables are ignored.
//
// Minimal setup:
//
//	export JELLYFIN_URL=http://localhost:8096
//	export JELLYFIN_API_KEY=your-api-key
//	export AUTH_MODE=none  # For development
//	./jellywatch
//
// Production with JWT:
//
//	export AUTH_MODE=jwt
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD=secure-password
//	./jellywatch
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP server
// drains in-flight requests, the websocket transport closes its connection,
// and active sessions are flushed before the database closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jellywatch/jellywatch/internal/activity"
	"github.com/jellywatch/jellywatch/internal/api"
	"github.com/jellywatch/jellywatch/internal/auth"
	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/database"
	"github.com/jellywatch/jellywatch/internal/jellyfin"
	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/metadata"
	"github.com/jellywatch/jellywatch/internal/supervisor"
	"github.com/jellywatch/jellywatch/internal/supervisor/services"
	ws "github.com/jellywatch/jellywatch/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("jellyfin_url", cfg.Jellyfin.URL).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("realtime", cfg.Jellyfin.RealtimeEnabled).
		Bool("polling", cfg.Jellyfin.SessionPollingEnabled).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// Metadata pipeline: normalized items behind memory and disk caches. The
	// fetcher is a plain REST client; the manager's breaker-wrapped client
	// covers the session and system endpoints.
	metaTTL := time.Duration(cfg.Monitor.MetadataCacheSeconds) * time.Second
	diskCache, err := metadata.NewDiskCache(cfg.Monitor.CacheDir, metaTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize metadata disk cache")
	}
	metaSvc := metadata.NewService(jellyfin.NewClient(cfg.Jellyfin), diskCache, metaTTL)
	defer metaSvc.Stop()

	// WebSocket hub for realtime dashboard updates. Created before the
	// manager so session changes can be broadcast immediately.
	wsHub := ws.NewHub()

	reconciler := activity.NewReconciler(metaSvc, db, cfg.Monitor.SessionTimeout)
	manager := jellyfin.NewManager(cfg, reconciler, metaSvc, db, wsHub, nil)

	authMW, authHandlers, err := setupAuth(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	handler := api.NewHandler(cfg, db, reconciler, manager, metaSvc, wsHub)
	router := api.NewRouter(cfg, handler, authMW, authHandlers)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog speaks slog, so bridge zerolog through the adapter.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddMonitorService(services.NewHubService(wsHub))
	tree.AddMonitorService(services.NewJellyfinService(manager))
	if transport := manager.Transport(); transport != nil {
		tree.AddMonitorService(services.NewTransportService(transport))
		logging.Info().Msg("Realtime websocket transport added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// setupAuth builds the middleware and, in jwt mode, the login handlers for
// the configured auth mode. Config validation has already checked that the
// required credentials are present.
func setupAuth(sec *config.SecurityConfig) (*auth.Middleware, *auth.Handlers, error) {
	switch sec.AuthMode {
	case auth.AuthModeJWT:
		jwtManager, err := auth.NewJWTManager(sec)
		if err != nil {
			return nil, nil, err
		}
		basicManager, err := auth.NewBasicAuthManager(sec.AdminUsername, sec.AdminPassword)
		if err != nil {
			return nil, nil, err
		}
		mw := auth.NewMiddleware(jwtManager, basicManager, sec.AuthMode)
		handlers := auth.NewHandlers(jwtManager, basicManager, sec.SessionTimeout)
		logging.Info().Msg("JWT authentication enabled")
		return mw, handlers, nil

	case auth.AuthModeBasic:
		basicManager, err := auth.NewBasicAuthManager(sec.AdminUsername, sec.AdminPassword)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Msg("Basic authentication enabled")
		return auth.NewMiddleware(nil, basicManager, sec.AuthMode), nil, nil

	default:
		logging.Warn().Msg("Authentication disabled, do not expose this instance to untrusted networks")
		return auth.NewMiddleware(nil, nil, auth.AuthModeNone), nil, nil
	}
}
