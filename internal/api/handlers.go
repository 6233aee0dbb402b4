// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/jellyfin"
	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/models"
	"github.com/jellywatch/jellywatch/internal/websocket"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X github.com/jellywatch/jellywatch/internal/api.Version=...".
var Version = "dev"

// HistoryStore is the persistence surface the handlers read from.
type HistoryStore interface {
	Ping(ctx context.Context) error
	ListHistory(ctx context.Context, filter models.HistoryFilter) ([]*models.PlayHistory, int64, error)
	HistoryStats(ctx context.Context, filter models.HistoryFilter) (*models.HistoryStats, error)
	ListUsers(ctx context.Context) ([]*models.JellyfinUser, error)
}

// SessionSource provides the live session view.
type SessionSource interface {
	Sessions() []*models.Session
	Count() int
}

// ServerSource exposes upstream connectivity and the REST client.
type ServerSource interface {
	API() jellyfin.API
	ConnectionState() jellyfin.ConnectionState
}

// MetadataSource resolves normalized item metadata.
type MetadataSource interface {
	GetMetadata(ctx context.Context, itemID string) (*models.Metadata, error)
}

// Handler implements the dashboard API endpoints.
type Handler struct {
	cfg       *config.Config
	db        HistoryStore
	sessions  SessionSource
	server    ServerSource
	metadata  MetadataSource
	hub       *websocket.Hub
	startTime time.Time
}

// NewHandler creates the API handler set.
func NewHandler(cfg *config.Config, db HistoryStore, sessions SessionSource, server ServerSource, metadata MetadataSource, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		db:        db,
		sessions:  sessions,
		server:    server,
		metadata:  metadata,
		hub:       hub,
		startTime: time.Now(),
	}
}

// healthStatus is the payload of GET /api/v1/health.
type healthStatus struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	DatabaseConnected bool      `json:"database_connected"`
	JellyfinConnected bool      `json:"jellyfin_connected"`
	RealtimeConnected bool      `json:"realtime_connected"`
	UptimeSeconds     float64   `json:"uptime_seconds"`
	Timestamp         time.Time `json:"timestamp"`
}

// Health reports overall service health. The service is degraded when the
// database or the Jellyfin server is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	jellyfinConnected := h.server != nil && h.server.API().Ping(r.Context()) == nil

	realtime := false
	if h.server != nil {
		realtime = h.server.ConnectionState().Connected
	}

	status := "healthy"
	if !dbConnected || !jellyfinConnected {
		status = "degraded"
	}

	respondData(w, http.StatusOK, healthStatus{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbConnected,
		JellyfinConnected: jellyfinConnected,
		RealtimeConnected: realtime,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
		Timestamp:         time.Now(),
	})
}

// HealthLive answers liveness probes. It succeeds whenever the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers readiness probes. Readiness requires the database;
// Jellyfin may be down without making the dashboard itself unusable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeInternal, "Database not ready")
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"ready": true})
}

// activityResponse is the payload of GET /api/v1/activity.
type activityResponse struct {
	Count      int                      `json:"count"`
	Sessions   []*models.Session        `json:"sessions"`
	Connection jellyfin.ConnectionState `json:"connection"`
}

// Activity returns the current session table and upstream connection state.
func (h *Handler) Activity(w http.ResponseWriter, _ *http.Request) {
	resp := activityResponse{
		Count:    h.sessions.Count(),
		Sessions: h.sessions.Sessions(),
	}
	if h.server != nil {
		resp.Connection = h.server.ConnectionState()
	}
	respondData(w, http.StatusOK, resp)
}

// History lists finished playback records, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := parseHistoryFilter(r, &h.cfg.API)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	rows, total, err := h.db.ListHistory(r.Context(), filter)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list history")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to query history")
		return
	}

	respondJSON(w, http.StatusOK, &APIResponse{
		Success: true,
		Data:    rows,
		Meta: &APIMeta{
			Timestamp: time.Now(),
			Pagination: &PaginationMeta{
				Total:    total,
				Count:    len(rows),
				Page:     filter.Page,
				PageSize: filter.PageSize,
				HasMore:  int64(filter.Page*filter.PageSize) < total,
			},
		},
	})
}

// HistoryStats returns aggregate playback statistics for the filtered range.
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseHistoryFilter(r, &h.cfg.API)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	stats, err := h.db.HistoryStats(r.Context(), filter)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to compute history stats")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to query history stats")
		return
	}

	respondData(w, http.StatusOK, stats)
}

// Users lists the Jellyfin users seen by the monitor.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list users")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to query users")
		return
	}
	respondData(w, http.StatusOK, users)
}

// Metadata returns normalized metadata for a library item.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Item ID is required")
		return
	}

	meta, err := h.metadata.GetMetadata(r.Context(), itemID)
	if err != nil {
		logging.Warn().Err(err).Str("item_id", itemID).Msg("Metadata lookup failed")
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Item not found")
		return
	}

	respondData(w, http.StatusOK, meta)
}

// ServerInfo proxies the Jellyfin system information endpoint.
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.server.API().GetSystemInfo(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to fetch system info")
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstream, "Jellyfin server unavailable")
		return
	}
	respondData(w, http.StatusOK, info)
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

// TerminateSession asks Jellyfin to stop a playing session. The optional JSON
// body carries the message shown to the viewer.
func (h *Handler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Session ID is required")
		return
	}

	var req terminateRequest
	if body, err := io.ReadAll(io.LimitReader(r.Body, 4096)); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
			return
		}
	}

	if err := h.server.API().StopSession(r.Context(), sessionID, req.Reason); err != nil {
		logging.Error().Err(err).Str("session_id", sessionID).Msg("Failed to terminate session")
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstream, "Failed to terminate session")
		return
	}

	logging.Info().Str("session_id", sessionID).Msg("Session terminated")
	respondData(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "terminated"})
}

// WebSocket upgrades the connection and attaches it to the broadcast hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.hub, w, r)
}
