// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/jellywatch/internal/activity"
	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/models"
)

type fakeNotifier struct {
	mu    sync.Mutex
	downs []string
	ups   []time.Duration
}

func (f *fakeNotifier) NotifyServerDown(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downs = append(f.downs, reason)
}

func (f *fakeNotifier) NotifyServerUp(downFor time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ups = append(f.ups, downFor)
}

func (f *fakeNotifier) downCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downs)
}

func (f *fakeNotifier) upCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ups)
}

type fakeHub struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeHub) BroadcastJSON(event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeHub) has(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e == event {
			return true
		}
	}
	return false
}

type fakeMetadataStore struct {
	mu          sync.Mutex
	invalidated []string
	records     map[string]*models.Metadata
	err         error
}

func (f *fakeMetadataStore) GetMetadata(_ context.Context, itemID string) (*models.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.records[itemID]; ok {
		return m, nil
	}
	return &models.Metadata{RatingKey: itemID}, nil
}

func (f *fakeMetadataStore) Invalidate(itemID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, itemID)
}

type fakeLibrary struct {
	mu    sync.Mutex
	items []string
	users []string
	err   error
}

func (f *fakeLibrary) UpsertLibraryItem(_ context.Context, m *models.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, m.RatingKey)
	return f.err
}

func (f *fakeLibrary) UpsertUser(_ context.Context, user *models.JellyfinUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user.ID)
	return f.err
}

func managerTestConfig() *config.Config {
	return &config.Config{
		Jellyfin: config.JellyfinConfig{
			URL:                    "http://localhost:8096",
			APIKey:                 "test-key",
			DeviceID:               "jellywatch-test",
			DeviceName:             "JellyWatch",
			Timeout:                5 * time.Second,
			RealtimeEnabled:        false,
			SessionPollingEnabled:  false,
			ConnectionAttempts:     3,
			ConnectionTimeout:      time.Second,
			SessionPollingInterval: 30 * time.Second,
		},
		Monitor: config.MonitorConfig{
			SessionTimeout:                  90 * time.Second,
			NotifyServerConnectionThreshold: 50 * time.Millisecond,
		},
	}
}

func newTestManager(t *testing.T, cfg *config.Config, hub Hub, notifier Notifier, meta MetadataStore, library LibraryRecorder) *Manager {
	t.Helper()
	reconciler := activity.NewReconciler(nil, nil, cfg.Monitor.SessionTimeout)
	m := NewManager(cfg, reconciler, meta, library, hub, notifier)
	require.NotNil(t, m)
	return m
}

func TestManagerDownNotificationDelayed(t *testing.T) {
	notifier := &fakeNotifier{}
	m := newTestManager(t, managerTestConfig(), nil, notifier, nil, nil)

	m.handleDisconnect()
	assert.Equal(t, 0, notifier.downCount(), "down notification waits for the threshold")

	require.Eventually(t, func() bool { return notifier.downCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Repeated disconnect callbacks do not re-notify.
	m.handleDisconnect()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, notifier.downCount())
}

func TestManagerReconnectCancelsDownNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	m := newTestManager(t, managerTestConfig(), nil, notifier, nil, nil)

	m.handleDisconnect()
	m.handleConnect()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, notifier.downCount(), "reconnect before threshold suppresses the notification")
	assert.Equal(t, 0, notifier.upCount(), "no up notification when down was never announced")
}

func TestManagerUpNotificationAfterAnnouncedOutage(t *testing.T) {
	notifier := &fakeNotifier{}
	m := newTestManager(t, managerTestConfig(), nil, notifier, nil, nil)

	m.handleDisconnect()
	require.Eventually(t, func() bool { return notifier.downCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	m.handleConnect()
	assert.Equal(t, 1, notifier.upCount())

	// The next outage starts a fresh cycle.
	m.handleDisconnect()
	require.Eventually(t, func() bool { return notifier.downCount() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestManagerZeroThresholdNotifiesImmediately(t *testing.T) {
	cfg := managerTestConfig()
	cfg.Monitor.NotifyServerConnectionThreshold = 0

	notifier := &fakeNotifier{}
	m := newTestManager(t, cfg, nil, notifier, nil, nil)

	m.handleDisconnect()
	assert.Equal(t, 1, notifier.downCount())
}

func TestManagerBroadcastsServerStatus(t *testing.T) {
	hub := &fakeHub{}
	m := newTestManager(t, managerTestConfig(), hub, &fakeNotifier{}, nil, nil)

	m.handleDisconnect()
	m.handleConnect()

	assert.True(t, hub.has("server_status"))
}

func TestManagerTimelineInvalidatesAndRecords(t *testing.T) {
	meta := &fakeMetadataStore{}
	library := &fakeLibrary{}
	hub := &fakeHub{}
	m := newTestManager(t, managerTestConfig(), hub, nil, meta, library)

	err := m.HandleTimeline(context.Background(), &models.JellyfinTimelineEntry{
		ItemsAdded:   []string{"m1"},
		ItemsUpdated: []string{"m2"},
		ItemsRemoved: []string{"m3"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"m1", "m2", "m3"}, meta.invalidated)
	assert.ElementsMatch(t, []string{"m1", "m2"}, library.items, "removed items are not re-recorded")
	assert.True(t, hub.has("library_changed"))
}

func TestManagerTimelineFetchFailureIsNonFatal(t *testing.T) {
	meta := &fakeMetadataStore{err: errors.New("upstream down")}
	library := &fakeLibrary{}
	m := newTestManager(t, managerTestConfig(), nil, nil, meta, library)

	err := m.HandleTimeline(context.Background(), &models.JellyfinTimelineEntry{ItemsUpdated: []string{"m1"}})
	require.NoError(t, err)
	assert.Empty(t, library.items)
	assert.Equal(t, []string{"m1"}, meta.invalidated)
}

func TestManagerReachabilityBroadcast(t *testing.T) {
	hub := &fakeHub{}
	m := newTestManager(t, managerTestConfig(), hub, nil, nil, nil)

	err := m.HandleReachability(context.Background(), &models.JellyfinReachabilityNotification{
		Reachable: false,
		Reason:    "port closed",
	})
	require.NoError(t, err)
	assert.True(t, hub.has("reachability"))
}

func TestManagerDisabledComponents(t *testing.T) {
	m := newTestManager(t, managerTestConfig(), nil, nil, nil, nil)

	assert.Nil(t, m.Transport())
	assert.Nil(t, m.SessionPoller())
	assert.Equal(t, ConnectionState{}, m.ConnectionState())
	assert.NotNil(t, m.API())
}

type userSyncAPI struct {
	wsFakeAPI
	users []models.JellyfinUser
}

func (a *userSyncAPI) GetUsers(context.Context) ([]models.JellyfinUser, error) {
	return a.users, nil
}

func TestManagerStartSyncsUsers(t *testing.T) {
	library := &fakeLibrary{}
	m := newTestManager(t, managerTestConfig(), nil, nil, nil, library)
	m.api = &userSyncAPI{users: []models.JellyfinUser{
		{ID: "u1", Name: "alice"},
		{ID: "u2", Name: "bob"},
	}}

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	library.mu.Lock()
	defer library.mu.Unlock()
	assert.Equal(t, []string{"u1", "u2"}, library.users)
}
