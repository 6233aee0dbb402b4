// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

/*
manager.go - Jellyfin Integration Manager

Wires the REST client, websocket transport, session poller and event
dispatcher together, and owns the server-down/up notification scheduling.
The manager does not restart its components; supervision lives above it.
*/

package jellyfin

import (
	"context"
	"sync"
	"time"

	"github.com/jellywatch/jellywatch/internal/activity"
	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/models"
)

// Hub pushes JSON frames to connected browser clients.
type Hub interface {
	BroadcastJSON(event string, payload any)
}

// Notifier receives server connectivity transitions. The down notification
// is delayed by the configured threshold to ride out short reconnect gaps.
type Notifier interface {
	NotifyServerDown(reason string)
	NotifyServerUp(downFor time.Duration)
}

// LogNotifier is the default Notifier: it writes the transitions to the log.
type LogNotifier struct{}

func (LogNotifier) NotifyServerDown(reason string) {
	logging.Warn().Str("reason", reason).Msg("Jellyfin server is down")
}

func (LogNotifier) NotifyServerUp(downFor time.Duration) {
	logging.Info().Dur("down_for", downFor).Msg("Jellyfin server is back up")
}

// MetadataStore is the slice of the metadata service the manager needs for
// timeline events.
type MetadataStore interface {
	GetMetadata(ctx context.Context, itemID string) (*models.Metadata, error)
	Invalidate(itemID string)
}

// LibraryRecorder persists normalized metadata snapshots for changed items
// and the user roster fetched at startup.
type LibraryRecorder interface {
	UpsertLibraryItem(ctx context.Context, m *models.Metadata) error
	UpsertUser(ctx context.Context, user *models.JellyfinUser) error
}

// Manager orchestrates the Jellyfin integration services.
type Manager struct {
	cfg     config.JellyfinConfig
	monitor config.MonitorConfig

	api        API
	transport  *WebSocket
	poller     *Poller
	reconciler *activity.Reconciler
	metadata   MetadataStore
	library    LibraryRecorder
	hub        Hub
	notifier   Notifier

	downMu       sync.Mutex
	downTimer    *time.Timer
	downSince    time.Time
	downNotified bool
}

// NewManager builds the integration. hub, metadata, library and notifier may
// be nil; a nil notifier falls back to LogNotifier.
func NewManager(cfg *config.Config, reconciler *activity.Reconciler, metadata MetadataStore, library LibraryRecorder, hub Hub, notifier Notifier) *Manager {
	if notifier == nil {
		notifier = LogNotifier{}
	}

	api := NewCircuitBreakerClient(NewClient(cfg.Jellyfin))

	m := &Manager{
		cfg:        cfg.Jellyfin,
		monitor:    cfg.Monitor,
		api:        api,
		reconciler: reconciler,
		metadata:   metadata,
		library:    library,
		hub:        hub,
		notifier:   notifier,
	}

	dispatcher := NewDispatcher(reconciler, m, m)

	if cfg.Jellyfin.RealtimeEnabled {
		m.transport = NewWebSocket(cfg.Jellyfin, api, dispatcher)
		m.transport.SetCallbacks(m.handleConnect, m.handleDisconnect)
	}
	if cfg.Jellyfin.SessionPollingEnabled {
		m.poller = NewPoller(api, cfg.Jellyfin.SessionPollingInterval, reconciler.ReconcileSnapshot)
	}

	reconciler.SetOnUpdate(m.broadcastActivity)

	return m
}

// API exposes the circuit-breaker-wrapped upstream client, used by the web
// layer for server info and session termination.
func (m *Manager) API() API {
	return m.api
}

// Transport returns the websocket transport, nil when realtime is disabled.
func (m *Manager) Transport() *WebSocket {
	return m.transport
}

// SessionPoller returns the poller, nil when polling is disabled.
func (m *Manager) SessionPoller() *Poller {
	return m.poller
}

// ConnectionState reports the transport state for the activity endpoint.
func (m *Manager) ConnectionState() ConnectionState {
	if m.transport == nil {
		return ConnectionState{}
	}
	return m.transport.State()
}

// Start verifies upstream connectivity and starts the poller. The websocket
// transport is run separately under supervision; callers that do not use a
// supervisor can start it through Transport().
func (m *Manager) Start(ctx context.Context) error {
	logging.Info().Msg("Starting Jellyfin integration")

	if err := m.api.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Jellyfin ping failed, server may become available later")
	} else if info, err := m.api.GetSystemInfo(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to get Jellyfin system info")
	} else {
		logging.Info().
			Str("server", info.ServerName).
			Str("version", info.Version).
			Str("server_id", info.ID).
			Msg("Connected to Jellyfin")
	}

	m.syncUsers(ctx)

	if m.poller != nil {
		if err := m.poller.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// syncUsers refreshes the stored user roster. Failures are logged and left
// for the next restart; sessions still record user names as they arrive.
func (m *Manager) syncUsers(ctx context.Context) {
	if m.library == nil {
		return
	}

	users, err := m.api.GetUsers(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to fetch Jellyfin users")
		return
	}
	for i := range users {
		if err := m.library.UpsertUser(ctx, &users[i]); err != nil {
			logging.Warn().Err(err).Str("user_id", users[i].ID).Msg("Failed to store user")
		}
	}
	logging.Info().Int("count", len(users)).Msg("Synced Jellyfin users")
}

// Stop halts the poller and transport and cancels any pending down
// notification.
func (m *Manager) Stop() {
	if m.poller != nil {
		m.poller.Stop()
	}
	if m.transport != nil {
		m.transport.Stop()
	}

	m.downMu.Lock()
	if m.downTimer != nil {
		m.downTimer.Stop()
		m.downTimer = nil
	}
	m.downMu.Unlock()
}

// handleConnect cancels a pending down notification and, if the outage was
// already announced, announces recovery.
func (m *Manager) handleConnect() {
	m.downMu.Lock()
	if m.downTimer != nil {
		m.downTimer.Stop()
		m.downTimer = nil
	}
	notified := m.downNotified
	downFor := time.Duration(0)
	if !m.downSince.IsZero() {
		downFor = time.Since(m.downSince)
	}
	m.downSince = time.Time{}
	m.downNotified = false
	m.downMu.Unlock()

	if notified {
		m.notifier.NotifyServerUp(downFor)
	}
	m.broadcastServerStatus(true)
}

// handleDisconnect schedules the down notification after the configured
// threshold. A reconnect before the timer fires cancels it.
func (m *Manager) handleDisconnect() {
	m.downMu.Lock()
	if m.downSince.IsZero() {
		m.downSince = time.Now()
	}
	if m.downTimer == nil && !m.downNotified {
		threshold := m.monitor.NotifyServerConnectionThreshold
		if threshold <= 0 {
			m.downNotified = true
			m.downMu.Unlock()
			m.notifier.NotifyServerDown("websocket disconnected")
			m.broadcastServerStatus(false)
			return
		}
		m.downTimer = time.AfterFunc(threshold, m.notifyDown)
	}
	m.downMu.Unlock()

	m.broadcastServerStatus(false)
}

func (m *Manager) notifyDown() {
	m.downMu.Lock()
	m.downTimer = nil
	if m.downNotified || m.downSince.IsZero() {
		m.downMu.Unlock()
		return
	}
	m.downNotified = true
	m.downMu.Unlock()

	m.notifier.NotifyServerDown("websocket disconnected")
}

// HandleTimeline invalidates cached metadata for changed items and records
// fresh library snapshots for added or updated ones.
func (m *Manager) HandleTimeline(ctx context.Context, entry *models.JellyfinTimelineEntry) error {
	changed := make([]string, 0, 1+len(entry.ItemsAdded)+len(entry.ItemsUpdated)+len(entry.ItemsRemoved))
	if entry.ItemID != "" {
		changed = append(changed, entry.ItemID)
	}
	changed = append(changed, entry.ItemsAdded...)
	changed = append(changed, entry.ItemsUpdated...)

	removed := entry.ItemsRemoved

	if m.metadata != nil {
		for _, id := range changed {
			m.metadata.Invalidate(id)
		}
		for _, id := range removed {
			m.metadata.Invalidate(id)
		}

		if m.library != nil {
			for _, id := range changed {
				meta, err := m.metadata.GetMetadata(ctx, id)
				if err != nil {
					logging.Debug().Err(err).Str("item_id", id).Msg("Failed to refresh changed library item")
					continue
				}
				if err := m.library.UpsertLibraryItem(ctx, meta); err != nil {
					logging.Warn().Err(err).Str("item_id", id).Msg("Failed to record library item")
				}
			}
		}
	}

	if m.hub != nil && (len(changed) > 0 || len(removed) > 0) {
		m.hub.BroadcastJSON("library_changed", map[string]any{
			"changed": changed,
			"removed": removed,
		})
	}
	return nil
}

// HandleReachability logs remote-access transitions and forwards them to the
// UI.
func (m *Manager) HandleReachability(_ context.Context, n *models.JellyfinReachabilityNotification) error {
	logging.Info().
		Bool("reachable", n.Reachable).
		Str("reason", n.Reason).
		Msg("Jellyfin remote access status changed")

	if m.hub != nil {
		m.hub.BroadcastJSON("reachability", map[string]any{
			"reachable":  n.Reachable,
			"reason":     n.Reason,
			"public_url": n.PublicURL,
		})
	}
	return nil
}

func (m *Manager) broadcastActivity() {
	if m.hub == nil {
		return
	}
	sessions := m.reconciler.Sessions()
	m.hub.BroadcastJSON("activity", map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (m *Manager) broadcastServerStatus(connected bool) {
	if m.hub == nil {
		return
	}
	m.hub.BroadcastJSON("server_status", map[string]any{
		"connected": connected,
	})
}
