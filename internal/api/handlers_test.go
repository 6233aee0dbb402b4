// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/jellywatch/internal/auth"
	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/jellyfin"
	"github.com/jellywatch/jellywatch/internal/models"
)

type fakeStore struct {
	pingErr    error
	history    []*models.PlayHistory
	total      int64
	listErr    error
	lastFilter models.HistoryFilter
	stats      *models.HistoryStats
	users      []*models.JellyfinUser
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListHistory(_ context.Context, filter models.HistoryFilter) ([]*models.PlayHistory, int64, error) {
	f.lastFilter = filter
	return f.history, f.total, f.listErr
}

func (f *fakeStore) HistoryStats(_ context.Context, filter models.HistoryFilter) (*models.HistoryStats, error) {
	f.lastFilter = filter
	if f.stats == nil {
		return nil, fmt.Errorf("no stats")
	}
	return f.stats, nil
}

func (f *fakeStore) ListUsers(context.Context) ([]*models.JellyfinUser, error) {
	return f.users, nil
}

type fakeSessions struct {
	sessions []*models.Session
}

func (f *fakeSessions) Sessions() []*models.Session { return f.sessions }
func (f *fakeSessions) Count() int                  { return len(f.sessions) }

type fakeServerAPI struct {
	pingErr    error
	systemInfo *models.JellyfinSystemInfo
	infoErr    error
	stopErr    error
	stopped    []string
	reasons    []string
}

func (f *fakeServerAPI) Ping(context.Context) error { return f.pingErr }
func (f *fakeServerAPI) GetSessions(context.Context) ([]models.JellyfinSession, error) {
	return nil, nil
}
func (f *fakeServerAPI) GetActiveSessions(context.Context) ([]models.JellyfinSession, error) {
	return nil, nil
}
func (f *fakeServerAPI) GetItem(context.Context, string) (*models.JellyfinItem, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeServerAPI) GetItemAncestors(context.Context, string) ([]models.JellyfinAncestor, error) {
	return nil, nil
}
func (f *fakeServerAPI) GetSystemInfo(context.Context) (*models.JellyfinSystemInfo, error) {
	return f.systemInfo, f.infoErr
}
func (f *fakeServerAPI) GetUsers(context.Context) ([]models.JellyfinUser, error) { return nil, nil }
func (f *fakeServerAPI) StopSession(_ context.Context, sessionID, reason string) error {
	f.stopped = append(f.stopped, sessionID)
	f.reasons = append(f.reasons, reason)
	return f.stopErr
}
func (f *fakeServerAPI) GetWebSocketURL() (string, error) { return "ws://example/socket", nil }
func (f *fakeServerAPI) AuthorizationHeader() string      { return "" }

type fakeServer struct {
	api   *fakeServerAPI
	state jellyfin.ConnectionState
}

func (f *fakeServer) API() jellyfin.API { return f.api }

func (f *fakeServer) ConnectionState() jellyfin.ConnectionState { return f.state }

type testAPI struct {
	cfg     *config.Config
	store   *fakeStore
	server  *fakeServer
	handler http.Handler
}

type fakeMetadata struct {
	items map[string]*models.Metadata
}

func (f *fakeMetadata) GetMetadata(_ context.Context, itemID string) (*models.Metadata, error) {
	if m, ok := f.items[itemID]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("item %s not found", itemID)
}

func newTestAPI(t *testing.T, authMode string) *testAPI {
	t.Helper()

	cfg := &config.Config{
		API: config.APIConfig{DefaultPageSize: 25, MaxPageSize: 100},
		Security: config.SecurityConfig{
			AuthMode:          authMode,
			JWTSecret:         "0123456789abcdef0123456789abcdef",
			SessionTimeout:    time.Hour,
			AdminUsername:     "admin",
			AdminPassword:     "correct-horse",
			RateLimitDisabled: true,
		},
	}

	store := &fakeStore{
		stats: &models.HistoryStats{TotalPlays: 3},
		users: []*models.JellyfinUser{{ID: "u1", Name: "alice"}},
	}
	server := &fakeServer{
		api:   &fakeServerAPI{systemInfo: &models.JellyfinSystemInfo{ServerName: "media", Version: "10.9.0"}},
		state: jellyfin.ConnectionState{Connected: true, ServerUp: jellyfin.ServerStatusUp},
	}
	sessions := &fakeSessions{sessions: []*models.Session{{SessionKey: "s1", UserName: "alice", State: models.StatePlaying}}}
	meta := &fakeMetadata{items: map[string]*models.Metadata{
		"m1": {RatingKey: "m1", Title: "The Matrix", MediaType: models.MediaTypeMovie},
	}}

	handler := NewHandler(cfg, store, sessions, server, meta, nil)

	var authMW *auth.Middleware
	var authHandlers *auth.Handlers
	switch authMode {
	case auth.AuthModeJWT:
		jwtMgr, err := auth.NewJWTManager(&cfg.Security)
		require.NoError(t, err)
		basicMgr, err := auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		require.NoError(t, err)
		authMW = auth.NewMiddleware(jwtMgr, basicMgr, authMode)
		authHandlers = auth.NewHandlers(jwtMgr, basicMgr, cfg.Security.SessionTimeout)
	default:
		authMW = auth.NewMiddleware(nil, nil, auth.AuthModeNone)
	}

	return &testAPI{
		cfg:     cfg,
		store:   store,
		server:  server,
		handler: NewRouter(cfg, handler, authMW, authHandlers).Setup(),
	}
}

func (a *testAPI) get(t *testing.T, path string) (*httptest.ResponseRecorder, *APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp APIResponse
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, &resp
}

func TestHealthHealthy(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, resp := a.get(t, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, true, data["database_connected"])
	assert.Equal(t, true, data["jellyfin_connected"])
	assert.Equal(t, true, data["realtime_connected"])
}

func TestHealthDegradedWhenJellyfinDown(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)
	a.server.api.pingErr = fmt.Errorf("connection refused")

	rec, resp := a.get(t, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "degraded", data["status"])
	assert.Equal(t, false, data["jellyfin_connected"])
}

func TestHealthReadyRequiresDatabase(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, _ := a.get(t, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	a.store.pingErr = fmt.Errorf("closed")
	rec, resp := a.get(t, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestHealthLive(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)
	a.store.pingErr = fmt.Errorf("closed")

	rec, resp := a.get(t, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestActivity(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, resp := a.get(t, "/api/v1/activity")
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	sessions := data["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].(map[string]interface{})["session_key"])
	conn := data["connection"].(map[string]interface{})
	assert.Equal(t, true, conn["connected"])
}

func TestHistoryPagination(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)
	a.store.history = []*models.PlayHistory{
		{ID: 2, Title: "Second"},
		{ID: 1, Title: "First"},
	}
	a.store.total = 52

	rec, resp := a.get(t, "/api/v1/history?page=2&page_size=2")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, resp.Meta)
	require.NotNil(t, resp.Meta.Pagination)
	assert.Equal(t, int64(52), resp.Meta.Pagination.Total)
	assert.Equal(t, 2, resp.Meta.Pagination.Count)
	assert.Equal(t, 2, resp.Meta.Pagination.Page)
	assert.True(t, resp.Meta.Pagination.HasMore)

	assert.Equal(t, 2, a.store.lastFilter.Page)
	assert.Equal(t, 2, a.store.lastFilter.PageSize)
}

func TestHistoryFilterParsing(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, _ := a.get(t, "/api/v1/history?user_id=u1&media_type=movie&after=2026-01-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", a.store.lastFilter.UserID)
	assert.Equal(t, models.MediaTypeMovie, a.store.lastFilter.MediaType)
	assert.Equal(t, 2026, a.store.lastFilter.After.Year())

	rec, resp := a.get(t, "/api/v1/history?page=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)

	rec, _ = a.get(t, "/api/v1/history?after=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryPageSizeClamped(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, _ := a.get(t, "/api/v1/history?page_size=9999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, a.store.lastFilter.PageSize)
}

func TestHistoryStats(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, resp := a.get(t, "/api/v1/history/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["total_plays"])
}

func TestUsers(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, resp := a.get(t, "/api/v1/users")
	require.Equal(t, http.StatusOK, rec.Code)
	users := resp.Data.([]interface{})
	require.Len(t, users, 1)
}

func TestMetadataLookup(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, resp := a.get(t, "/api/v1/metadata/m1")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "m1", data["rating_key"])
	assert.Equal(t, "The Matrix", data["title"])

	rec, resp = a.get(t, "/api/v1/metadata/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestServerInfo(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec, resp := a.get(t, "/api/v1/server-info")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "media", data["ServerName"])

	a.server.api.infoErr = fmt.Errorf("boom")
	rec, resp = a.get(t, "/api/v1/server-info")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrCodeUpstream, resp.Error.Code)
}

func TestTerminateSession(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	body, err := json.Marshal(terminateRequest{Reason: "Bedtime"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/terminate", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []string{"s1"}, a.server.api.stopped)
	assert.Equal(t, []string{"Bedtime"}, a.server.api.reasons)
}

func TestTerminateSessionEmptyBodyUsesDefaultReason(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/terminate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, a.server.api.reasons, 1)
	assert.Empty(t, a.server.api.reasons[0])
}

func TestTerminateSessionUpstreamFailure(t *testing.T) {
	a := newTestAPI(t, auth.AuthModeNone)
	a.server.api.stopErr = fmt.Errorf("boom")

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/terminate", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
