// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

/*
reconciler.go - Current-session table

Merges push events from the websocket and authoritative poll snapshots into
one table of active sessions. The table has a single lock owner: the
websocket goroutine and the poller both mutate through the methods here,
and API readers get deep copies.
*/

package activity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

// debounceWindow is how many consecutive snapshots a session may be missing
// from before it is considered ended. Guards against a single missed poll.
const debounceWindow = 2

// End reasons recorded with history rows and metrics.
const (
	endReasonStopped      = "stopped"
	endReasonPollDebounce = "poll_debounce"
	endReasonTimeout      = "timeout"
)

// MetadataProvider fetches the normalized metadata record for an item.
type MetadataProvider interface {
	GetMetadata(ctx context.Context, itemID string) (*models.Metadata, error)
}

// HistoryRecorder persists one ended session.
type HistoryRecorder interface {
	RecordHistory(ctx context.Context, h *models.PlayHistory) error
}

type trackedSession struct {
	session     *models.Session
	missedPolls int
}

// Reconciler owns the current-session table.
type Reconciler struct {
	mu       sync.Mutex
	sessions map[string]*trackedSession

	metadata       MetadataProvider
	history        HistoryRecorder
	sessionTimeout time.Duration

	onUpdate func()
	now      func() time.Time
}

// NewReconciler builds an empty table. metadata and history may be nil in
// tests; persistence failures never fail reconciliation.
func NewReconciler(metadata MetadataProvider, history HistoryRecorder, sessionTimeout time.Duration) *Reconciler {
	return &Reconciler{
		sessions:       make(map[string]*trackedSession),
		metadata:       metadata,
		history:        history,
		sessionTimeout: sessionTimeout,
		now:            time.Now,
	}
}

// SetOnUpdate registers a hook invoked after every table mutation, outside
// the table lock. Used to broadcast activity to the dashboard hub.
func (r *Reconciler) SetOnUpdate(fn func()) {
	r.onUpdate = fn
}

// Apply merges one push event into the table, keyed by the session id.
// Event fields win, absent fields retain their prior values. The first
// sighting of a key fetches the item metadata. Applying the same terminal
// event twice yields the same result.
func (r *Reconciler) Apply(ctx context.Context, event *models.JellyfinSession) error {
	if event == nil || event.ID == "" {
		logging.Debug().Msg("Ignoring session event without a session key")
		return nil
	}

	terminal := strings.EqualFold(event.PlaybackState, "stopped")

	r.mu.Lock()

	tracked, exists := r.sessions[event.ID]
	if !exists {
		if terminal {
			// Replay of a stop for a session already gone.
			r.mu.Unlock()
			return nil
		}
		if event.NowPlayingItem == nil && event.PlayState == nil {
			// Nothing to track yet.
			r.mu.Unlock()
			return nil
		}
		tracked = &trackedSession{session: &models.Session{
			SessionKey: event.ID,
			StartedAt:  r.now(),
		}}
		r.sessions[event.ID] = tracked
	}

	mergeEvent(tracked.session, event, r.now())
	tracked.missedPolls = 0

	if terminal {
		delete(r.sessions, event.ID)
		ended := tracked.session
		r.updateGaugeLocked()
		r.mu.Unlock()

		r.flushToHistory(ctx, ended, endReasonStopped)
		r.notify()
		return nil
	}

	needsMetadata := tracked.session.Metadata == nil && tracked.session.ItemID != ""
	itemID := tracked.session.ItemID
	r.updateGaugeLocked()
	r.mu.Unlock()

	if needsMetadata {
		r.attachMetadata(ctx, event.ID, itemID)
	}

	r.notify()
	return nil
}

// ReconcileSnapshot replaces the table's view with an authoritative poll
// snapshot. Keys missing from the snapshot are debounced for one extra poll
// before being flushed to history; sessions past the session timeout go
// immediately.
func (r *Reconciler) ReconcileSnapshot(ctx context.Context, snapshot []models.JellyfinSession) error {
	now := r.now()
	active := make(map[string]*models.JellyfinSession, len(snapshot))
	for i := range snapshot {
		if snapshot[i].IsActive() && snapshot[i].ID != "" {
			active[snapshot[i].ID] = &snapshot[i]
		}
	}

	var ended []endedSession
	var fetches []fetchRequest

	r.mu.Lock()

	for key, js := range active {
		tracked, exists := r.sessions[key]
		if !exists {
			tracked = &trackedSession{session: &models.Session{
				SessionKey: key,
				StartedAt:  now,
			}}
			r.sessions[key] = tracked
		}
		mergeEvent(tracked.session, js, now)
		tracked.missedPolls = 0

		if tracked.session.Metadata == nil && tracked.session.ItemID != "" {
			fetches = append(fetches, fetchRequest{key: key, itemID: tracked.session.ItemID})
		}
	}

	for key, tracked := range r.sessions {
		if _, present := active[key]; present {
			continue
		}

		if r.sessionTimeout > 0 && now.Sub(tracked.session.LastActivity) > r.sessionTimeout {
			delete(r.sessions, key)
			ended = append(ended, endedSession{session: tracked.session, reason: endReasonTimeout})
			continue
		}

		tracked.missedPolls++
		if tracked.missedPolls >= debounceWindow {
			delete(r.sessions, key)
			ended = append(ended, endedSession{session: tracked.session, reason: endReasonPollDebounce})
		}
	}

	r.updateGaugeLocked()
	r.mu.Unlock()

	for _, e := range ended {
		r.flushToHistory(ctx, e.session, e.reason)
	}
	for _, f := range fetches {
		r.attachMetadata(ctx, f.key, f.itemID)
	}

	r.notify()
	return nil
}

type endedSession struct {
	session *models.Session
	reason  string
}

type fetchRequest struct {
	key    string
	itemID string
}

// Sessions returns deep copies of all tracked sessions, newest first.
func (r *Reconciler) Sessions() []*models.Session {
	r.mu.Lock()
	out := make([]*models.Session, 0, len(r.sessions))
	for _, tracked := range r.sessions {
		out = append(out, tracked.session.Copy())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].SessionKey < out[j].SessionKey
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Get returns a deep copy of one session, or nil.
func (r *Reconciler) Get(sessionKey string) *models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tracked, ok := r.sessions[sessionKey]; ok {
		return tracked.session.Copy()
	}
	return nil
}

// Count returns the number of tracked sessions.
func (r *Reconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// attachMetadata fetches and attaches the metadata record for a session's
// item. Fetch failures are logged; the session stays usable without
// metadata and the next sighting retries.
func (r *Reconciler) attachMetadata(ctx context.Context, sessionKey, itemID string) {
	if r.metadata == nil {
		return
	}

	meta, err := r.metadata.GetMetadata(ctx, itemID)
	if err != nil {
		logging.Warn().Err(err).
			Str("session_key", sessionKey).
			Str("item_id", itemID).
			Msg("Failed to fetch metadata for session")
		return
	}

	r.mu.Lock()
	if tracked, ok := r.sessions[sessionKey]; ok && tracked.session.ItemID == itemID {
		tracked.session.Metadata = meta
	}
	r.mu.Unlock()
}

func (r *Reconciler) flushToHistory(ctx context.Context, s *models.Session, reason string) {
	metrics.RecordSessionEnded(reason)
	logging.Info().
		Str("session_key", s.SessionKey).
		Str("user", s.UserName).
		Str("reason", reason).
		Msg("Session ended")

	if r.history == nil {
		return
	}
	if err := r.history.RecordHistory(ctx, models.HistoryFromSession(s, r.now())); err != nil {
		logging.Error().Err(err).
			Str("session_key", s.SessionKey).
			Msg("Failed to record play history")
	}
}

func (r *Reconciler) notify() {
	if r.onUpdate != nil {
		r.onUpdate()
	}
}

func (r *Reconciler) updateGaugeLocked() {
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
}

// mergeEvent folds one vendor session into the internal record. Only fields
// the event actually carries overwrite prior values.
func mergeEvent(s *models.Session, event *models.JellyfinSession, now time.Time) {
	if event.UserID != "" {
		s.UserID = event.UserID
	}
	if event.UserName != "" {
		s.UserName = event.UserName
	}
	if event.Client != "" {
		s.Client = event.Client
	}
	if event.DeviceID != "" {
		s.DeviceID = event.DeviceID
	}
	if event.DeviceName != "" {
		s.DeviceName = event.DeviceName
	}
	if event.ApplicationVersion != "" {
		s.ClientVersion = event.ApplicationVersion
	}
	if ip := event.IPAddress(); ip != "" {
		s.IPAddress = ip
	}

	if item := event.NowPlayingItem; item != nil {
		if item.ID != "" && item.ID != s.ItemID {
			// Item changed within the same session key: metadata no
			// longer matches.
			s.ItemID = item.ID
			s.Metadata = nil
		}
		if item.RunTimeTicks > 0 {
			s.DurationTicks = item.RunTimeTicks
		}
		if vs := item.VideoStream(); vs != nil {
			s.VideoCodec = vs.Codec
			if vs.Width > 0 {
				s.Width = vs.Width
			}
			if vs.Height > 0 {
				s.Height = vs.Height
			}
		}
		if as := item.AudioStream(); as != nil {
			s.AudioCodec = as.Codec
		}
	}

	if ps := event.PlayState; ps != nil {
		if ps.PositionTicks > 0 || !ps.IsPaused {
			s.PositionTicks = ps.PositionTicks
		}
		if decision := event.TranscodeDecision(); decision != "" {
			s.TranscodeDecision = decision
		}
	}

	if ti := event.TranscodingInfo; ti != nil {
		if ti.VideoCodec != "" {
			s.VideoCodec = ti.VideoCodec
		}
		if ti.AudioCodec != "" {
			s.AudioCodec = ti.AudioCodec
		}
		if ti.Bitrate > 0 {
			s.Bitrate = ti.Bitrate
		}
		if ti.Width > 0 {
			s.Width = ti.Width
		}
		if ti.Height > 0 {
			s.Height = ti.Height
		}
	}

	if state := event.State(); !state.Terminal() || event.PlaybackState != "" || event.NowPlayingItem != nil {
		s.State = state
	}

	s.LastActivity = now
}
