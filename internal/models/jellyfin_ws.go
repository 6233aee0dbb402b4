// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

import (
	json "github.com/goccy/go-json"
)

// Websocket message types sent by Jellyfin that JellyWatch acts on.
// Endpoint: ws://{jellyfin_url}/socket?api_key={api_key}
const (
	WSMessageForceKeepAlive = "ForceKeepAlive"
	WSMessageKeepAlive      = "KeepAlive"
	WSMessageSessions       = "Sessions"
	WSMessagePlaying        = "playing"
	WSMessageTimeline       = "timeline"
	WSMessageReachability   = "reachability"
)

// JellyfinWebSocketMessage is the envelope for every inbound websocket frame.
// Session-state, timeline and reachability payloads arrive as sibling arrays
// of MessageType rather than inside Data, so both forms are captured here.
type JellyfinWebSocketMessage struct {
	MessageType string          `json:"MessageType"`
	MessageID   string          `json:"MessageId,omitempty"`
	Data        json.RawMessage `json:"Data,omitempty"`

	PlaySessionStateNotification []JellyfinSession                  `json:"PlaySessionStateNotification,omitempty"`
	TimelineEntry                []JellyfinTimelineEntry            `json:"TimelineEntry,omitempty"`
	ReachabilityNotification     []JellyfinReachabilityNotification `json:"ReachabilityNotification,omitempty"`
}

// JellyfinOutboundMessage is a control frame sent to the server, e.g. the
// SessionsStart subscription or a KeepAlive.
type JellyfinOutboundMessage struct {
	MessageType string `json:"MessageType"`
	Data        string `json:"Data,omitempty"`
}

// JellyfinTimelineEntry describes a library content change pushed over the
// websocket (item added, updated or removed).
type JellyfinTimelineEntry struct {
	ItemID            string   `json:"ItemId"`
	SectionID         string   `json:"SectionId,omitempty"`
	State             string   `json:"State,omitempty"`
	UpdateType        string   `json:"UpdateType,omitempty"`
	ItemsAdded        []string `json:"ItemsAdded,omitempty"`
	ItemsUpdated      []string `json:"ItemsUpdated,omitempty"`
	ItemsRemoved      []string `json:"ItemsRemoved,omitempty"`
	CollectionFolders []string `json:"CollectionFolders,omitempty"`
}

// JellyfinReachabilityNotification reports a remote-access status change.
type JellyfinReachabilityNotification struct {
	Reachable bool   `json:"Reachable"`
	Reason    string `json:"Reason,omitempty"`
	PublicURL string `json:"PublicUrl,omitempty"`
}
