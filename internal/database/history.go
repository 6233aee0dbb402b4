// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

// RecordHistory inserts one ended-session row.
func (db *DB) RecordHistory(ctx context.Context, h *models.PlayHistory) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO play_history (
			session_key, user_id, user_name, item_id, media_type,
			title, parent_title, grandparent_title, year,
			client, device_name, ip_address,
			started, stopped,
			position_seconds, duration_seconds, percent_complete, transcode_decision
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.SessionKey, h.UserID, h.UserName, h.ItemID, string(h.MediaType),
		h.Title, h.ParentTitle, h.GrandparentTitle, h.Year,
		h.Client, h.DeviceName, h.IPAddress,
		h.Started, h.Stopped,
		h.PositionSeconds, h.DurationSeconds, h.PercentComplete, h.TranscodeDecision,
	)

	metrics.RecordDBQuery("record_history", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record history row: %w", err)
	}
	metrics.HistoryRows.Inc()
	return nil
}

// historyWhere builds the WHERE clause and arguments for a filter.
func historyWhere(filter models.HistoryFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.MediaType != "" {
		clauses = append(clauses, "media_type = ?")
		args = append(args, string(filter.MediaType))
	}
	if !filter.After.IsZero() {
		clauses = append(clauses, "started >= ?")
		args = append(args, filter.After)
	}
	if !filter.Before.IsZero() {
		clauses = append(clauses, "started < ?")
		args = append(args, filter.Before)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListHistory returns one page of history rows, newest first, plus the total
// row count for the filter.
func (db *DB) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]*models.PlayHistory, int64, error) {
	start := time.Now()

	where, args := historyWhere(filter)

	var total int64
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM play_history"+where, args...).Scan(&total)
	if err != nil {
		metrics.RecordDBQuery("list_history", time.Since(start), err)
		return nil, 0, fmt.Errorf("failed to count history rows: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT id, session_key, user_id, user_name, item_id, media_type,
			title, parent_title, grandparent_title, year,
			client, device_name, ip_address,
			started, stopped,
			position_seconds, duration_seconds, percent_complete, transcode_decision
		FROM play_history` + where + `
		ORDER BY started DESC, id DESC
		LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("list_history", time.Since(start), err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.PlayHistory
	for rows.Next() {
		var h models.PlayHistory
		var mediaType string
		if err := rows.Scan(
			&h.ID, &h.SessionKey, &h.UserID, &h.UserName, &h.ItemID, &mediaType,
			&h.Title, &h.ParentTitle, &h.GrandparentTitle, &h.Year,
			&h.Client, &h.DeviceName, &h.IPAddress,
			&h.Started, &h.Stopped,
			&h.PositionSeconds, &h.DurationSeconds, &h.PercentComplete, &h.TranscodeDecision,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan history row: %w", err)
		}
		h.MediaType = models.MediaType(mediaType)
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read history rows: %w", err)
	}
	return result, total, nil
}

// HistoryStats aggregates the filtered history rows.
func (db *DB) HistoryStats(ctx context.Context, filter models.HistoryFilter) (*models.HistoryStats, error) {
	start := time.Now()

	where, args := historyWhere(filter)

	stats := &models.HistoryStats{PlaysByMediaType: make(map[string]int64)}

	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(position_seconds), 0),
			COUNT(DISTINCT user_id),
			COUNT(DISTINCT item_id)
		FROM play_history`+where, args...).Scan(
		&stats.TotalPlays, &stats.TotalDurationSeconds, &stats.UniqueUsers, &stats.UniqueItems,
	)
	if err != nil {
		metrics.RecordDBQuery("history_stats", time.Since(start), err)
		return nil, fmt.Errorf("failed to aggregate history: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT COALESCE(media_type, ''), COUNT(*) FROM play_history"+where+" GROUP BY media_type", args...)
	metrics.RecordDBQuery("history_stats", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate history by media type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var mediaType string
		var count int64
		if err := rows.Scan(&mediaType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan media type aggregate: %w", err)
		}
		stats.PlaysByMediaType[mediaType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read media type aggregates: %w", err)
	}
	return stats, nil
}
