// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

import "time"

// SessionState is the internal play state of a tracked session.
type SessionState string

const (
	StatePlaying SessionState = "playing"
	StatePaused  SessionState = "paused"
	StateStopped SessionState = "stopped"
)

// Terminal reports whether the state ends a session's lifecycle.
func (s SessionState) Terminal() bool {
	return s == StateStopped
}

// Transcode decision vocabulary used across sessions, history and the API.
const (
	TranscodeDecisionDirectPlay   = "direct play"
	TranscodeDecisionDirectStream = "direct stream"
	TranscodeDecisionTranscode    = "transcode"
)

// Session is the flat internal record for one active playback, keyed by the
// server-issued session key. At most one record exists per key; events for
// the same key replace fields, never duplicate the record.
type Session struct {
	SessionKey string `json:"session_key"`

	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`

	Client        string `json:"client"`
	DeviceID      string `json:"device_id"`
	DeviceName    string `json:"device_name"`
	ClientVersion string `json:"client_version,omitempty"`
	IPAddress     string `json:"ip_address,omitempty"`

	ItemID string       `json:"item_id"`
	State  SessionState `json:"state"`

	PositionTicks int64 `json:"position_ticks"`
	DurationTicks int64 `json:"duration_ticks"`

	TranscodeDecision string `json:"transcode_decision,omitempty"`
	VideoCodec        string `json:"video_codec,omitempty"`
	AudioCodec        string `json:"audio_codec,omitempty"`
	Bitrate           int    `json:"bitrate,omitempty"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`

	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// PositionSeconds returns the playback position in seconds.
func (s *Session) PositionSeconds() int64 {
	return s.PositionTicks / TicksPerSecond
}

// DurationSeconds returns the item runtime in seconds.
func (s *Session) DurationSeconds() int64 {
	return s.DurationTicks / TicksPerSecond
}

// PercentComplete returns playback progress as an integer percentage.
func (s *Session) PercentComplete() int {
	d := s.DurationSeconds()
	if d == 0 {
		return 0
	}
	return int((s.PositionSeconds() * 100) / d)
}

// Copy returns a deep copy safe to hand to API readers.
func (s *Session) Copy() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Metadata = s.Metadata.Copy()
	return &dup
}
