// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/jellywatch/internal/config"
)

func testClientConfig(baseURL string) config.JellyfinConfig {
	return config.JellyfinConfig{
		URL:        baseURL,
		APIKey:     "test-key",
		DeviceID:   "jellywatch-test",
		DeviceName: "JellyWatch",
		Timeout:    5 * time.Second,
		VerifySSL:  true,
	}
}

func TestClientSendsAuthHeaders(t *testing.T) {
	var gotToken, gotDeviceID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Emby-Token")
		gotDeviceID = r.Header.Get("X-Emby-Device-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	require.NoError(t, client.Ping(context.Background()))

	assert.Equal(t, "test-key", gotToken)
	assert.Equal(t, "jellywatch-test", gotDeviceID)
}

func TestClientGetSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Id":"s1","UserName":"alice","NowPlayingItem":{"Id":"m1","Name":"Some Movie","Type":"Movie"}},
			{"Id":"s2","UserName":"bob"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	sessions, err := client.GetSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "alice", sessions[0].UserName)

	active, err := client.GetActiveSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s1", active[0].ID)
}

func TestClientGetItemUsesUserScopedEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Id":"m1","Name":"Some Movie","Type":"Movie"}`))
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.UserID = "user-1"
	client := NewClient(cfg)

	item, err := client.GetItem(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "/Users/user-1/Items/m1", gotPath)
	assert.Equal(t, "Some Movie", item.Name)

	// Without a user id the plain items endpoint is used.
	client = NewClient(testClientConfig(srv.URL))
	_, err = client.GetItem(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "/Items/m1", gotPath)
}

func TestClientGetItemAncestors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Items/ep1/Ancestors", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Id":"sea1","Name":"Season 1","Type":"Season"},{"Id":"ser1","Name":"Some Show","Type":"Series"}]`))
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	ancestors, err := client.GetItemAncestors(context.Background(), "ep1")
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "Season", ancestors[0].Type)
}

func TestClientStopSessionSendsMessageFirst(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var messageBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/Sessions/s1/Message" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&messageBody))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	require.NoError(t, client.StopSession(context.Background(), "s1", "Too many streams"))

	require.Equal(t, []string{"/Sessions/s1/Message", "/Sessions/s1/Playing/Stop"}, paths)
	assert.Equal(t, "Stream terminated", messageBody["Header"])
	assert.Equal(t, "Too many streams", messageBody["Text"])
}

func TestClientStopSessionDefaultReason(t *testing.T) {
	var messageBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Sessions/s1/Message" {
			_ = json.NewDecoder(r.Body).Decode(&messageBody)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	require.NoError(t, client.StopSession(context.Background(), "s1", ""))
	assert.Equal(t, "The server owner has ended the stream.", messageBody["Text"])
}

func TestClientStopSessionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Sessions/s1/Playing/Stop" {
			http.Error(w, "no such session", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	err := client.StopSession(context.Background(), "s1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientGetWebSocketURL(t *testing.T) {
	client := NewClient(testClientConfig("http://media.example.com:8096"))
	wsURL, err := client.GetWebSocketURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://media.example.com:8096/socket?api_key=test-key&deviceId=jellywatch-test", wsURL)

	client = NewClient(testClientConfig("https://media.example.com"))
	wsURL, err = client.GetWebSocketURL()
	require.NoError(t, err)
	assert.Contains(t, wsURL, "wss://media.example.com/socket")
}

func TestClientAuthorizationHeader(t *testing.T) {
	client := NewClient(testClientConfig("http://localhost:8096"))
	header := client.AuthorizationHeader()
	assert.Contains(t, header, `MediaBrowser Client="JellyWatch"`)
	assert.Contains(t, header, `DeviceId="jellywatch-test"`)
	assert.Contains(t, header, `Token="test-key"`)
}

func TestClientPingNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))
	assert.Error(t, client.Ping(context.Background()))
}
