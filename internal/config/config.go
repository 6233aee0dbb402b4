// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config provides layered configuration for JellyWatch using Koanf v2.
//
// Sources are merged in priority order (highest wins):
//  1. Environment variables (JELLYFIN_URL, HTTP_PORT, ...)
//  2. Config file (config.yaml)
//  3. Built-in defaults
package config

import (
	"time"

	"github.com/google/uuid"
)

// Config is the root configuration structure.
type Config struct {
	Jellyfin JellyfinConfig `koanf:"jellyfin"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// JellyfinConfig holds the upstream media-server connection settings.
type JellyfinConfig struct {
	URL        string        `koanf:"url" validate:"required,url"`
	APIKey     string        `koanf:"api_key" validate:"required"`
	UserID     string        `koanf:"user_id"`
	DeviceID   string        `koanf:"device_id"`
	DeviceName string        `koanf:"device_name"`
	Timeout    time.Duration `koanf:"timeout" validate:"min=1s"`
	VerifySSL  bool          `koanf:"verify_ssl"`

	// Realtime transport settings.
	RealtimeEnabled bool `koanf:"realtime_enabled"`
	// KeepalivePingPong arms the keepalive timer after every connect and pong.
	KeepalivePingPong bool `koanf:"ws_keepalive"`
	// ConnectionAttempts bounds both websocket reconnects and missed-pong
	// tolerance before the transport gives up.
	ConnectionAttempts int `koanf:"connection_attempts" validate:"min=1"`
	// ConnectionTimeout is the fixed delay between reconnect attempts. The
	// upstream server is LAN-local; fast fixed-delay recovery beats
	// exponential backoff here.
	ConnectionTimeout time.Duration `koanf:"connection_timeout" validate:"min=1s"`

	// Polling fallback settings.
	SessionPollingEnabled  bool          `koanf:"session_polling_enabled"`
	SessionPollingInterval time.Duration `koanf:"session_polling_interval"`
}

// MonitorConfig holds activity-monitoring behavior settings.
type MonitorConfig struct {
	// SessionTimeout removes a session that has received no events for this
	// long, even if no terminal state was observed.
	SessionTimeout time.Duration `koanf:"session_timeout" validate:"min=10s"`
	// NotifyServerConnectionThreshold delays the server-down notification to
	// ride out short reconnect gaps.
	NotifyServerConnectionThreshold time.Duration `koanf:"notify_server_connection_threshold"`
	// MetadataCacheSeconds is the TTL for cached normalized metadata.
	MetadataCacheSeconds int `koanf:"metadata_cache_seconds" validate:"min=0"`
	// CacheDir is the root directory for on-disk metadata cache files.
	CacheDir string `koanf:"cache_dir"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds API response paging settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1"`
}

// SecurityConfig holds authentication and rate-limit settings.
type SecurityConfig struct {
	// AuthMode selects the authentication scheme: jwt, basic, or none.
	AuthMode       string        `koanf:"auth_mode" validate:"oneof=jwt basic none"`
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	AdminPassword  string        `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are the
// lowest-priority layer; the config file and environment override them.
func defaultConfig() *Config {
	return &Config{
		Jellyfin: JellyfinConfig{
			URL:                    "",
			APIKey:                 "",
			DeviceID:               "", // generated on first load if empty
			DeviceName:             "JellyWatch",
			Timeout:                30 * time.Second,
			VerifySSL:              true,
			RealtimeEnabled:        true,
			KeepalivePingPong:      true,
			ConnectionAttempts:     3,
			ConnectionTimeout:      5 * time.Second,
			SessionPollingEnabled:  true,
			SessionPollingInterval: 30 * time.Second,
		},
		Monitor: MonitorConfig{
			SessionTimeout:                  90 * time.Second,
			NotifyServerConnectionThreshold: 60 * time.Second,
			MetadataCacheSeconds:            600,
			CacheDir:                        "/data/cache",
		},
		Database: DatabaseConfig{
			Path:      "/data/jellywatch.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8181,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 25,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyGenerated fills fields that are generated rather than defaulted.
func (c *Config) applyGenerated() {
	if c.Jellyfin.DeviceID == "" {
		c.Jellyfin.DeviceID = uuid.NewString()
	}
}
