// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

import (
	"fmt"
	"strings"
)

// TicksPerSecond converts Jellyfin's 100ns tick values to seconds.
const TicksPerSecond = 10000000

// JellyfinSession is the session shape returned by /Sessions and carried in
// PlaySessionStateNotification websocket payloads. Push payloads are partial;
// zero-valued fields mean "not reported", not "cleared".
type JellyfinSession struct {
	ID                 string `json:"Id"`
	Client             string `json:"Client,omitempty"`
	DeviceID           string `json:"DeviceId,omitempty"`
	DeviceName         string `json:"DeviceName,omitempty"`
	ApplicationVersion string `json:"ApplicationVersion,omitempty"`

	UserID   string `json:"UserId,omitempty"`
	UserName string `json:"UserName,omitempty"`

	RemoteEndPoint   string `json:"RemoteEndPoint,omitempty"`
	LastActivityDate string `json:"LastActivityDate,omitempty"`

	NowPlayingItem  *JellyfinNowPlayingItem  `json:"NowPlayingItem,omitempty"`
	PlayState       *JellyfinPlayState       `json:"PlayState,omitempty"`
	TranscodingInfo *JellyfinTranscodingInfo `json:"TranscodingInfo,omitempty"`

	// PlaybackState is set on push notifications that carry an explicit
	// lifecycle state ("Playing", "Paused", "Stopped").
	PlaybackState string `json:"State,omitempty"`

	ServerID string `json:"ServerId,omitempty"`
}

// JellyfinNowPlayingItem is the item a session is currently playing.
type JellyfinNowPlayingItem struct {
	ID        string `json:"Id"`
	Name      string `json:"Name"`
	Type      string `json:"Type"`
	MediaType string `json:"MediaType,omitempty"`

	SeriesID          string `json:"SeriesId,omitempty"`
	SeriesName        string `json:"SeriesName,omitempty"`
	SeasonID          string `json:"SeasonId,omitempty"`
	SeasonName        string `json:"SeasonName,omitempty"`
	IndexNumber       int    `json:"IndexNumber,omitempty"`
	ParentIndexNumber int    `json:"ParentIndexNumber,omitempty"`

	AlbumID     string   `json:"AlbumId,omitempty"`
	Album       string   `json:"Album,omitempty"`
	AlbumArtist string   `json:"AlbumArtist,omitempty"`
	Artists     []string `json:"Artists,omitempty"`

	RunTimeTicks   int64  `json:"RunTimeTicks,omitempty"`
	ProductionYear int    `json:"ProductionYear,omitempty"`
	Container      string `json:"Container,omitempty"`

	MediaStreams []JellyfinMediaStream `json:"MediaStreams,omitempty"`

	ProviderIDs map[string]string `json:"ProviderIds,omitempty"`
}

// JellyfinPlayState carries the playback position and pause state.
type JellyfinPlayState struct {
	PositionTicks       int64  `json:"PositionTicks,omitempty"`
	CanSeek             bool   `json:"CanSeek,omitempty"`
	IsPaused            bool   `json:"IsPaused"`
	IsMuted             bool   `json:"IsMuted,omitempty"`
	AudioStreamIndex    int    `json:"AudioStreamIndex,omitempty"`
	SubtitleStreamIndex int    `json:"SubtitleStreamIndex,omitempty"`
	MediaSourceID       string `json:"MediaSourceId,omitempty"`
	PlayMethod          string `json:"PlayMethod,omitempty"`
}

// JellyfinTranscodingInfo is present only while the server transcodes.
type JellyfinTranscodingInfo struct {
	AudioCodec           string   `json:"AudioCodec,omitempty"`
	VideoCodec           string   `json:"VideoCodec,omitempty"`
	Container            string   `json:"Container,omitempty"`
	IsVideoDirect        bool     `json:"IsVideoDirect,omitempty"`
	IsAudioDirect        bool     `json:"IsAudioDirect,omitempty"`
	Bitrate              int      `json:"Bitrate,omitempty"`
	Framerate            float64  `json:"Framerate,omitempty"`
	CompletionPercentage float64  `json:"CompletionPercentage,omitempty"`
	Width                int      `json:"Width,omitempty"`
	Height               int      `json:"Height,omitempty"`
	TranscodeReasons     []string `json:"TranscodeReasons,omitempty"`
}

// JellyfinMediaStream is one elementary stream of an item's media source.
type JellyfinMediaStream struct {
	Codec        string `json:"Codec,omitempty"`
	Language     string `json:"Language,omitempty"`
	DisplayTitle string `json:"DisplayTitle,omitempty"`
	Type         string `json:"Type"`
	Index        int    `json:"Index"`
	IsDefault    bool   `json:"IsDefault,omitempty"`
	Height       int    `json:"Height,omitempty"`
	Width        int    `json:"Width,omitempty"`
	BitRate      int    `json:"BitRate,omitempty"`
	Channels     int    `json:"Channels,omitempty"`
}

// IsActive reports whether the session has content loaded (playing or paused).
func (s *JellyfinSession) IsActive() bool {
	return s.NowPlayingItem != nil
}

// State derives the internal play state. Push payloads are partial, so an
// explicit lifecycle state wins, then the pause flag, then item presence.
func (s *JellyfinSession) State() SessionState {
	if strings.EqualFold(s.PlaybackState, "stopped") {
		return StateStopped
	}
	if s.PlayState != nil {
		if s.PlayState.IsPaused {
			return StatePaused
		}
		return StatePlaying
	}
	if s.NowPlayingItem == nil {
		return StateStopped
	}
	return StatePlaying
}

// IPAddress strips the port from RemoteEndPoint, handling bracketed IPv6.
func (s *JellyfinSession) IPAddress() string {
	ep := s.RemoteEndPoint
	if ep == "" {
		return ""
	}
	if strings.HasPrefix(ep, "[") {
		if idx := strings.LastIndex(ep, "]:"); idx != -1 {
			return ep[1:idx]
		}
		return strings.Trim(ep, "[]")
	}
	if idx := strings.LastIndex(ep, ":"); idx != -1 {
		return ep[:idx]
	}
	return ep
}

// PositionSeconds returns the current playback position in seconds.
func (s *JellyfinSession) PositionSeconds() int64 {
	if s.PlayState == nil {
		return 0
	}
	return s.PlayState.PositionTicks / TicksPerSecond
}

// DurationSeconds returns the playing item's runtime in seconds.
func (s *JellyfinSession) DurationSeconds() int64 {
	if s.NowPlayingItem == nil {
		return 0
	}
	return s.NowPlayingItem.RunTimeTicks / TicksPerSecond
}

// PercentComplete returns playback progress as an integer percentage.
func (s *JellyfinSession) PercentComplete() int {
	duration := s.DurationSeconds()
	if duration == 0 {
		return 0
	}
	return int((s.PositionSeconds() * 100) / duration)
}

// TranscodeDecision maps Jellyfin's PlayMethod onto the dashboard vocabulary.
func (s *JellyfinSession) TranscodeDecision() string {
	if s.PlayState == nil {
		return ""
	}
	switch s.PlayState.PlayMethod {
	case "DirectPlay":
		return TranscodeDecisionDirectPlay
	case "DirectStream":
		return TranscodeDecisionDirectStream
	case "Transcode":
		return TranscodeDecisionTranscode
	default:
		return strings.ToLower(s.PlayState.PlayMethod)
	}
}

// ContentTitle builds a display title for the playing item.
func (s *JellyfinSession) ContentTitle() string {
	if s.NowPlayingItem == nil {
		return ""
	}
	item := s.NowPlayingItem

	if item.SeriesName != "" {
		return fmt.Sprintf("%s - S%02dE%02d - %s",
			item.SeriesName, item.ParentIndexNumber, item.IndexNumber, item.Name)
	}
	if item.Album != "" {
		artists := strings.Join(item.Artists, ", ")
		if artists == "" {
			artists = item.AlbumArtist
		}
		return fmt.Sprintf("%s - %s", artists, item.Name)
	}
	return item.Name
}

// VideoStream returns the first video stream, if any.
func (n *JellyfinNowPlayingItem) VideoStream() *JellyfinMediaStream {
	for i := range n.MediaStreams {
		if n.MediaStreams[i].Type == "Video" {
			return &n.MediaStreams[i]
		}
	}
	return nil
}

// AudioStream returns the first audio stream, if any.
func (n *JellyfinNowPlayingItem) AudioStream() *JellyfinMediaStream {
	for i := range n.MediaStreams {
		if n.MediaStreams[i].Type == "Audio" {
			return &n.MediaStreams[i]
		}
	}
	return nil
}
