// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/jellywatch/config.yaml",
	"/etc/jellywatch/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.applyGenerated()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive from the environment as plain strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names onto koanf config paths.
// Unmapped variables are dropped so stray environment entries cannot pollute
// the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"jellyfin_url":                       "jellyfin.url",
		"jellyfin_api_key":                   "jellyfin.api_key",
		"jellyfin_user_id":                   "jellyfin.user_id",
		"jellyfin_device_id":                 "jellyfin.device_id",
		"jellyfin_device_name":               "jellyfin.device_name",
		"jellyfin_timeout":                   "jellyfin.timeout",
		"jellyfin_verify_ssl":                "jellyfin.verify_ssl",
		"jellyfin_realtime_enabled":          "jellyfin.realtime_enabled",
		"websocket_monitor_ping_pong":        "jellyfin.ws_keepalive",
		"websocket_connection_attempts":      "jellyfin.connection_attempts",
		"websocket_connection_timeout":       "jellyfin.connection_timeout",
		"jellyfin_session_polling_enabled":   "jellyfin.session_polling_enabled",
		"jellyfin_session_polling_interval":  "jellyfin.session_polling_interval",
		"session_timeout":                    "monitor.session_timeout",
		"notify_server_connection_threshold": "monitor.notify_server_connection_threshold",
		"metadata_cache_seconds":             "monitor.metadata_cache_seconds",
		"cache_dir":                          "monitor.cache_dir",
		"duckdb_path":                        "database.path",
		"duckdb_max_memory":                  "database.max_memory",
		"duckdb_threads":                     "database.threads",
		"http_host":                          "server.host",
		"http_port":                          "server.port",
		"http_timeout":                       "server.timeout",
		"api_default_page_size":              "api.default_page_size",
		"api_max_page_size":                  "api.max_page_size",
		"auth_mode":                          "security.auth_mode",
		"jwt_secret":                         "security.jwt_secret",
		"auth_session_timeout":               "security.session_timeout",
		"admin_username":                     "security.admin_username",
		"admin_password":                     "security.admin_password",
		"rate_limit_requests":                "security.rate_limit_reqs",
		"rate_limit_window":                  "security.rate_limit_window",
		"disable_rate_limit":                 "security.rate_limit_disabled",
		"cors_origins":                       "security.cors_origins",
		"trusted_proxies":                    "security.trusted_proxies",
		"log_level":                          "logging.level",
		"log_format":                         "logging.format",
		"log_caller":                         "logging.caller",
	}

	if mapped, ok := mappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
