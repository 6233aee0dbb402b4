// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

/*
client.go - Jellyfin REST API client

Fetches session, item, user and system data from a Jellyfin server.
API Reference: https://api.jellyfin.org/
*/

package jellyfin

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

// ClientVersion is reported to Jellyfin in auth headers.
const ClientVersion = "1.0.0"

// API defines the Jellyfin operations the rest of the system depends on.
// Both Client and CircuitBreakerClient implement it.
type API interface {
	Ping(ctx context.Context) error
	GetSessions(ctx context.Context) ([]models.JellyfinSession, error)
	GetActiveSessions(ctx context.Context) ([]models.JellyfinSession, error)
	GetItem(ctx context.Context, itemID string) (*models.JellyfinItem, error)
	GetItemAncestors(ctx context.Context, itemID string) ([]models.JellyfinAncestor, error)
	GetSystemInfo(ctx context.Context) (*models.JellyfinSystemInfo, error)
	GetUsers(ctx context.Context) ([]models.JellyfinUser, error)
	StopSession(ctx context.Context, sessionID, reason string) error
	GetWebSocketURL() (string, error)
	AuthorizationHeader() string
}

var _ API = (*Client)(nil)

// Client provides access to the Jellyfin REST API.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	deviceID   string
	deviceName string
	httpClient *http.Client
}

// NewClient builds a client from the jellyfin section of the configuration.
func NewClient(cfg config.JellyfinConfig) *Client {
	transport := http.DefaultTransport
	if !cfg.VerifySSL {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // user opted out of verification
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		userID:     cfg.UserID,
		deviceID:   cfg.DeviceID,
		deviceName: cfg.DeviceName,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// Ping tests connectivity to the Jellyfin server.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/System/Ping", nil)
	if err != nil {
		return fmt.Errorf("jellyfin ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jellyfin ping returned status %d", resp.StatusCode)
	}
	return nil
}

// GetSessions retrieves all sessions, including idle ones.
func (c *Client) GetSessions(ctx context.Context) ([]models.JellyfinSession, error) {
	defer observe("get_sessions")()

	var sessions []models.JellyfinSession
	if err := c.getJSON(ctx, "/Sessions", &sessions); err != nil {
		return nil, fmt.Errorf("jellyfin sessions request failed: %w", err)
	}
	return sessions, nil
}

// GetActiveSessions retrieves only sessions with content loaded.
func (c *Client) GetActiveSessions(ctx context.Context) ([]models.JellyfinSession, error) {
	sessions, err := c.GetSessions(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]models.JellyfinSession, 0, len(sessions))
	for i := range sessions {
		if sessions[i].NowPlayingItem != nil {
			active = append(active, sessions[i])
		}
	}
	return active, nil
}

// GetItem retrieves the full item record for one library item. When a user id
// is configured the user-scoped endpoint is used so user data is populated.
func (c *Client) GetItem(ctx context.Context, itemID string) (*models.JellyfinItem, error) {
	defer observe("get_item")()

	endpoint := "/Items/" + url.PathEscape(itemID)
	if c.userID != "" {
		endpoint = "/Users/" + url.PathEscape(c.userID) + "/Items/" + url.PathEscape(itemID)
	}

	var item models.JellyfinItem
	if err := c.getJSON(ctx, endpoint, &item); err != nil {
		return nil, fmt.Errorf("jellyfin item %s request failed: %w", itemID, err)
	}
	return &item, nil
}

// GetItemAncestors retrieves an item's ancestor chain, nearest-first.
func (c *Client) GetItemAncestors(ctx context.Context, itemID string) ([]models.JellyfinAncestor, error) {
	defer observe("get_item_ancestors")()

	var ancestors []models.JellyfinAncestor
	endpoint := "/Items/" + url.PathEscape(itemID) + "/Ancestors"
	if err := c.getJSON(ctx, endpoint, &ancestors); err != nil {
		return nil, fmt.Errorf("jellyfin ancestors for %s request failed: %w", itemID, err)
	}
	return ancestors, nil
}

// GetSystemInfo retrieves server name, version and identifiers.
func (c *Client) GetSystemInfo(ctx context.Context) (*models.JellyfinSystemInfo, error) {
	var info models.JellyfinSystemInfo
	if err := c.getJSON(ctx, "/System/Info", &info); err != nil {
		return nil, fmt.Errorf("jellyfin system info request failed: %w", err)
	}
	return &info, nil
}

// GetUsers retrieves all server users.
func (c *Client) GetUsers(ctx context.Context) ([]models.JellyfinUser, error) {
	var users []models.JellyfinUser
	if err := c.getJSON(ctx, "/Users", &users); err != nil {
		return nil, fmt.Errorf("jellyfin users request failed: %w", err)
	}
	return users, nil
}

// StopSession terminates a playback session. An on-screen message with the
// reason is sent to the client first, then the stop command.
func (c *Client) StopSession(ctx context.Context, sessionID, reason string) error {
	if reason == "" {
		reason = "The server owner has ended the stream."
	}

	messagePayload := map[string]any{
		"Header":    "Stream terminated",
		"Text":      reason,
		"TimeoutMs": 6000,
	}
	messageEndpoint := "/Sessions/" + url.PathEscape(sessionID) + "/Message"
	resp, err := c.doRequest(ctx, http.MethodPost, messageEndpoint, messagePayload)
	if err != nil {
		return fmt.Errorf("jellyfin session message request failed: %w", err)
	}
	_ = resp.Body.Close()

	stopEndpoint := "/Sessions/" + url.PathEscape(sessionID) + "/Playing/Stop"
	resp, err = c.doRequest(ctx, http.MethodPost, stopEndpoint, nil)
	if err != nil {
		return fmt.Errorf("jellyfin stop session request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Jellyfin returns 204 No Content on success
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("jellyfin stop session returned status %d (failed to read body)", resp.StatusCode)
		}
		return fmt.Errorf("jellyfin stop session returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// GetWebSocketURL returns the realtime notification endpoint with the api
// key and device id as query parameters.
func (c *Client) GetWebSocketURL() (string, error) {
	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "https":
		parsedURL.Scheme = "wss"
	default:
		parsedURL.Scheme = "ws"
	}

	parsedURL.Path = "/socket"
	query := parsedURL.Query()
	query.Set("api_key", c.apiKey)
	query.Set("deviceId", c.deviceID)
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// AuthorizationHeader builds the MediaBrowser authorization header value used
// on the websocket handshake.
func (c *Client) AuthorizationHeader() string {
	return fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s", Token="%s"`,
		c.deviceName, c.deviceName, c.deviceID, ClientVersion, c.apiKey)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("status %d (failed to read body)", resp.StatusCode)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	fullURL := c.baseURL + endpoint

	var body io.Reader = http.NoBody
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("X-Emby-Client", c.deviceName)
	req.Header.Set("X-Emby-Device-Name", c.deviceName)
	req.Header.Set("X-Emby-Device-Id", c.deviceID)
	req.Header.Set("X-Emby-Client-Version", ClientVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.RecordUpstreamRequest(operation, time.Since(start))
	}
}
