// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

/*
schema.go - Schema management

Tables:
  - play_history: one row per ended playback session
  - users: Jellyfin user id to name mapping
  - library_items: normalized metadata snapshots, refreshed on timeline events
*/

package database

import (
	"context"
	"fmt"
)

func (db *DB) createSchema(ctx context.Context) error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS play_history_id_seq`,

		`CREATE TABLE IF NOT EXISTS play_history (
			id BIGINT PRIMARY KEY DEFAULT nextval('play_history_id_seq'),
			session_key TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT,
			item_id TEXT NOT NULL,
			media_type TEXT,
			title TEXT,
			parent_title TEXT,
			grandparent_title TEXT,
			year INTEGER,
			client TEXT,
			device_name TEXT,
			ip_address TEXT,
			started TIMESTAMP NOT NULL,
			stopped TIMESTAMP NOT NULL,
			position_seconds BIGINT,
			duration_seconds BIGINT,
			percent_complete INTEGER,
			transcode_decision TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			last_seen TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS library_items (
			item_id TEXT PRIMARY KEY,
			media_type TEXT,
			section_id TEXT,
			title TEXT,
			parent_title TEXT,
			grandparent_title TEXT,
			year INTEGER,
			content_rating TEXT,
			rating DOUBLE,
			duration_ticks BIGINT,
			video_codec TEXT,
			audio_codec TEXT,
			updated_at TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_history_user ON play_history(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_started ON play_history(started)`,
		`CREATE INDEX IF NOT EXISTS idx_history_media_type ON play_history(media_type)`,
		`CREATE INDEX IF NOT EXISTS idx_history_item ON play_history(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_library_section ON library_items(section_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("schema statement failed: %s: %w", query, err)
		}
	}
	return nil
}
