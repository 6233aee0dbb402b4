// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

// UpsertUser records or refreshes one Jellyfin user.
func (db *DB) UpsertUser(ctx context.Context, user *models.JellyfinUser) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, name, last_seen) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, last_seen = excluded.last_seen`,
		user.ID, user.Name, time.Now().UTC(),
	)

	metrics.RecordDBQuery("upsert_user", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}

// ListUsers returns all recorded users.
func (db *DB) ListUsers(ctx context.Context) ([]*models.JellyfinUser, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, name FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.JellyfinUser
	for rows.Next() {
		var u models.JellyfinUser
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}
	return users, nil
}

// UpsertLibraryItem records or refreshes one normalized metadata snapshot.
func (db *DB) UpsertLibraryItem(ctx context.Context, m *models.Metadata) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO library_items (
			item_id, media_type, section_id, title, parent_title, grandparent_title,
			year, content_rating, rating, duration_ticks, video_codec, audio_codec, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			media_type = excluded.media_type,
			section_id = excluded.section_id,
			title = excluded.title,
			parent_title = excluded.parent_title,
			grandparent_title = excluded.grandparent_title,
			year = excluded.year,
			content_rating = excluded.content_rating,
			rating = excluded.rating,
			duration_ticks = excluded.duration_ticks,
			video_codec = excluded.video_codec,
			audio_codec = excluded.audio_codec,
			updated_at = excluded.updated_at`,
		m.RatingKey, string(m.MediaType), m.SectionID, m.Title, m.ParentTitle, m.GrandparentTitle,
		m.Year, m.ContentRating, m.Rating, m.DurationTicks, m.VideoCodec, m.AudioCodec, time.Now().UTC(),
	)

	metrics.RecordDBQuery("upsert_library_item", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert library item %s: %w", m.RatingKey, err)
	}
	return nil
}

// GetLibraryItem returns one stored snapshot, or nil when absent.
func (db *DB) GetLibraryItem(ctx context.Context, itemID string) (*models.Metadata, error) {
	var m models.Metadata
	var mediaType string
	var updatedAt time.Time

	err := db.conn.QueryRowContext(ctx, `
		SELECT item_id, media_type, section_id, title, parent_title, grandparent_title,
			year, content_rating, rating, duration_ticks, video_codec, audio_codec, updated_at
		FROM library_items WHERE item_id = ?`, itemID).Scan(
		&m.RatingKey, &mediaType, &m.SectionID, &m.Title, &m.ParentTitle, &m.GrandparentTitle,
		&m.Year, &m.ContentRating, &m.Rating, &m.DurationTicks, &m.VideoCodec, &m.AudioCodec, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query library item %s: %w", itemID, err)
	}
	m.MediaType = models.MediaType(mediaType)
	return &m, nil
}
