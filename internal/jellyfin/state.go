// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import "sync"

// ServerStatus is the tri-state reachability of the Jellyfin server as seen
// by the realtime transport. Unknown before the first connect attempt ends.
type ServerStatus int

const (
	ServerStatusUnknown ServerStatus = iota
	ServerStatusUp
	ServerStatusDown
)

func (s ServerStatus) String() string {
	switch s {
	case ServerStatusUp:
		return "up"
	case ServerStatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// ConnectionState is the transport's externally readable state. It is owned
// by the websocket transport; readers get value snapshots.
type ConnectionState struct {
	Connected      bool         `json:"connected"`
	ServerUp       ServerStatus `json:"server_up"`
	ReconnectCount int          `json:"reconnect_count"`
	PendingPong    bool         `json:"pending_pong"`
}

// connState wraps ConnectionState with its lock.
type connState struct {
	mu    sync.RWMutex
	state ConnectionState
}

func (c *connState) Snapshot() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *connState) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Connected = connected
}

func (c *connState) setServerUp(status ServerStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ServerUp = status
}

func (c *connState) setPendingPong(pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PendingPong = pending
}

func (c *connState) incReconnectCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ReconnectCount++
}

func (c *connState) resetReconnectCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ReconnectCount = 0
}
