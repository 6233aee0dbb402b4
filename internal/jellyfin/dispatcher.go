// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

// SessionApplier merges one push session event into the current-session
// table. Implemented by the activity reconciler.
type SessionApplier interface {
	Apply(ctx context.Context, session *models.JellyfinSession) error
	ReconcileSnapshot(ctx context.Context, sessions []models.JellyfinSession) error
}

// TimelineHandler reacts to library content changes.
type TimelineHandler interface {
	HandleTimeline(ctx context.Context, entry *models.JellyfinTimelineEntry) error
}

// ReachabilityHandler reacts to remote-access status changes.
type ReachabilityHandler interface {
	HandleReachability(ctx context.Context, n *models.JellyfinReachabilityNotification) error
}

var _ MessageHandler = (*Dispatcher)(nil)

// Dispatcher routes decoded websocket messages to their handlers. Handler
// errors and panics are contained here: they are logged with the event type
// and counted, and never propagate back into the receive loop.
type Dispatcher struct {
	sessions     SessionApplier
	timeline     TimelineHandler
	reachability ReachabilityHandler
}

// NewDispatcher builds the routing table. Nil collaborators disable their
// event types.
func NewDispatcher(sessions SessionApplier, timeline TimelineHandler, reachability ReachabilityHandler) *Dispatcher {
	return &Dispatcher{
		sessions:     sessions,
		timeline:     timeline,
		reachability: reachability,
	}
}

// HandleMessage dispatches one message. Unknown message types are logged at
// debug level and ignored.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *models.JellyfinWebSocketMessage) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDispatchError(msg.MessageType)
			logging.Error().
				Str("event_type", msg.MessageType).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()

	var err error
	switch msg.MessageType {
	case models.WSMessageForceKeepAlive, models.WSMessageKeepAlive:
		// Keepalive bookkeeping is handled by the transport.

	case models.WSMessagePlaying:
		err = d.handlePlaying(ctx, msg)

	case models.WSMessageSessions:
		err = d.handleSessions(ctx, msg)

	case models.WSMessageTimeline:
		err = d.handleTimeline(ctx, msg)

	case models.WSMessageReachability:
		err = d.handleReachability(ctx, msg)

	default:
		logging.Debug().Str("event_type", msg.MessageType).Msg("Ignoring unhandled websocket event")
	}

	if err != nil {
		metrics.RecordDispatchError(msg.MessageType)
		logging.Error().Err(err).Str("event_type", msg.MessageType).Msg("Failed to process websocket event")
	}
}

// handlePlaying applies the first PlaySessionStateNotification element, per
// the upstream payload contract.
func (d *Dispatcher) handlePlaying(ctx context.Context, msg *models.JellyfinWebSocketMessage) error {
	if d.sessions == nil {
		return nil
	}
	if len(msg.PlaySessionStateNotification) == 0 {
		logging.Debug().Msg("Session event found but unable to get websocket data")
		return nil
	}
	return d.sessions.Apply(ctx, &msg.PlaySessionStateNotification[0])
}

// handleSessions reconciles a full session snapshot pushed by the
// SessionsStart subscription.
func (d *Dispatcher) handleSessions(ctx context.Context, msg *models.JellyfinWebSocketMessage) error {
	if d.sessions == nil || len(msg.Data) == 0 {
		return nil
	}

	var sessions []models.JellyfinSession
	if err := json.Unmarshal(msg.Data, &sessions); err != nil {
		return fmt.Errorf("failed to decode sessions payload: %w", err)
	}
	return d.sessions.ReconcileSnapshot(ctx, sessions)
}

func (d *Dispatcher) handleTimeline(ctx context.Context, msg *models.JellyfinWebSocketMessage) error {
	if d.timeline == nil {
		return nil
	}
	if len(msg.TimelineEntry) == 0 {
		logging.Debug().Msg("Timeline event found but unable to get websocket data")
		return nil
	}
	return d.timeline.HandleTimeline(ctx, &msg.TimelineEntry[0])
}

func (d *Dispatcher) handleReachability(ctx context.Context, msg *models.JellyfinWebSocketMessage) error {
	if d.reachability == nil {
		return nil
	}
	if len(msg.ReachabilityNotification) == 0 {
		logging.Debug().Msg("Reachability event found but unable to get websocket data")
		return nil
	}
	return d.reachability.HandleReachability(ctx, &msg.ReachabilityNotification[0])
}
