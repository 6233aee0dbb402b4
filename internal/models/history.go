// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

import "time"

// PlayHistory is one row of the play_history table, written when a session
// ends (terminal push state, poll debounce expiry or session timeout).
type PlayHistory struct {
	ID         int64  `json:"id"`
	SessionKey string `json:"session_key"`

	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`

	ItemID           string    `json:"item_id"`
	MediaType        MediaType `json:"media_type"`
	Title            string    `json:"title"`
	ParentTitle      string    `json:"parent_title,omitempty"`
	GrandparentTitle string    `json:"grandparent_title,omitempty"`
	Year             int       `json:"year,omitempty"`

	Client     string `json:"client,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`

	Started time.Time `json:"started"`
	Stopped time.Time `json:"stopped"`

	PositionSeconds   int64  `json:"position_seconds"`
	DurationSeconds   int64  `json:"duration_seconds"`
	PercentComplete   int    `json:"percent_complete"`
	TranscodeDecision string `json:"transcode_decision,omitempty"`
}

// HistoryFromSession flattens an ended session into a history row.
func HistoryFromSession(s *Session, stopped time.Time) *PlayHistory {
	h := &PlayHistory{
		SessionKey:        s.SessionKey,
		UserID:            s.UserID,
		UserName:          s.UserName,
		ItemID:            s.ItemID,
		Client:            s.Client,
		DeviceName:        s.DeviceName,
		IPAddress:         s.IPAddress,
		Started:           s.StartedAt,
		Stopped:           stopped,
		PositionSeconds:   s.PositionSeconds(),
		DurationSeconds:   s.DurationSeconds(),
		PercentComplete:   s.PercentComplete(),
		TranscodeDecision: s.TranscodeDecision,
	}
	if m := s.Metadata; m != nil {
		h.MediaType = m.MediaType
		h.Title = m.Title
		h.ParentTitle = m.ParentTitle
		h.GrandparentTitle = m.GrandparentTitle
		h.Year = m.Year
	}
	return h
}

// HistoryFilter selects and pages history rows.
type HistoryFilter struct {
	UserID    string
	MediaType MediaType
	After     time.Time
	Before    time.Time
	Page      int
	PageSize  int
}

// HistoryStats is the aggregate view served by /api/v1/history/stats.
type HistoryStats struct {
	TotalPlays           int64            `json:"total_plays"`
	TotalDurationSeconds int64            `json:"total_duration_seconds"`
	UniqueUsers          int64            `json:"unique_users"`
	UniqueItems          int64            `json:"unique_items"`
	PlaysByMediaType     map[string]int64 `json:"plays_by_media_type"`
}
