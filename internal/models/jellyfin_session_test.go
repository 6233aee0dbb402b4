// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketMessagePlayingPayload(t *testing.T) {
	raw := `{"MessageType":"playing","PlaySessionStateNotification":[{"Id":"abc","PlayState":{"IsPaused":false,"PositionTicks":600000000}}]}`

	var msg JellyfinWebSocketMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, WSMessagePlaying, msg.MessageType)
	require.Len(t, msg.PlaySessionStateNotification, 1)
	sess := msg.PlaySessionStateNotification[0]
	assert.Equal(t, "abc", sess.ID)
	assert.Equal(t, StatePlaying, sess.State())
	assert.Equal(t, int64(60), sess.PositionSeconds())
}

func TestWebSocketMessageForceKeepAlive(t *testing.T) {
	var msg JellyfinWebSocketMessage
	require.NoError(t, json.Unmarshal([]byte(`{"MessageType":"ForceKeepAlive","Data":60}`), &msg))
	assert.Equal(t, WSMessageForceKeepAlive, msg.MessageType)
}

func TestSessionState(t *testing.T) {
	s := &JellyfinSession{ID: "s1"}
	assert.Equal(t, StateStopped, s.State())

	s.NowPlayingItem = &JellyfinNowPlayingItem{ID: "i1", Name: "Some Movie"}
	assert.Equal(t, StatePlaying, s.State())

	s.PlayState = &JellyfinPlayState{IsPaused: true}
	assert.Equal(t, StatePaused, s.State())
}

func TestSessionIPAddress(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"192.168.1.50:43210", "192.168.1.50"},
		{"192.168.1.50", "192.168.1.50"},
		{"[2001:db8::1]:43210", "2001:db8::1"},
		{"[2001:db8::1]", "2001:db8::1"},
		{"", ""},
	}
	for _, tt := range tests {
		s := &JellyfinSession{RemoteEndPoint: tt.endpoint}
		assert.Equal(t, tt.want, s.IPAddress(), "endpoint %q", tt.endpoint)
	}
}

func TestSessionTicksConversion(t *testing.T) {
	s := &JellyfinSession{
		NowPlayingItem: &JellyfinNowPlayingItem{RunTimeTicks: 72000000000},
		PlayState:      &JellyfinPlayState{PositionTicks: 36000000000},
	}
	assert.Equal(t, int64(3600), s.PositionSeconds())
	assert.Equal(t, int64(7200), s.DurationSeconds())
	assert.Equal(t, 50, s.PercentComplete())
}

func TestSessionPercentCompleteZeroDuration(t *testing.T) {
	s := &JellyfinSession{PlayState: &JellyfinPlayState{PositionTicks: 100}}
	assert.Equal(t, 0, s.PercentComplete())
}

func TestTranscodeDecision(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"DirectPlay", "direct play"},
		{"DirectStream", "direct stream"},
		{"Transcode", "transcode"},
	}
	for _, tt := range tests {
		s := &JellyfinSession{PlayState: &JellyfinPlayState{PlayMethod: tt.method}}
		assert.Equal(t, tt.want, s.TranscodeDecision())
	}

	assert.Equal(t, "", (&JellyfinSession{}).TranscodeDecision())
}

func TestContentTitle(t *testing.T) {
	episode := &JellyfinSession{NowPlayingItem: &JellyfinNowPlayingItem{
		Name: "Pilot", SeriesName: "Some Show", ParentIndexNumber: 1, IndexNumber: 2,
	}}
	assert.Equal(t, "Some Show - S01E02 - Pilot", episode.ContentTitle())

	track := &JellyfinSession{NowPlayingItem: &JellyfinNowPlayingItem{
		Name: "Track Name", Album: "Album Name", Artists: []string{"Artist A", "Artist B"},
	}}
	assert.Equal(t, "Artist A, Artist B - Track Name", track.ContentTitle())

	movie := &JellyfinSession{NowPlayingItem: &JellyfinNowPlayingItem{Name: "Some Movie"}}
	assert.Equal(t, "Some Movie", movie.ContentTitle())
}

func TestPeopleByType(t *testing.T) {
	item := &JellyfinItem{People: []JellyfinPerson{
		{Name: "D One", Type: "Director"},
		{Name: "W One", Type: "Writer"},
		{Name: "A One", Type: "Actor", Role: "Lead"},
		{Name: "A Two", Type: "Actor"},
		{Name: "P One", Type: "Producer"},
	}}
	directors, writers, actors := item.PeopleByType()
	assert.Equal(t, []string{"D One"}, directors)
	assert.Equal(t, []string{"W One"}, writers)
	assert.Equal(t, []string{"A One", "A Two"}, actors)
}
