// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/jellywatch/jellywatch/internal/jellyfin"
	"github.com/jellywatch/jellywatch/internal/logging"
)

// TransportRunner matches *jellyfin.WebSocket's Run method.
type TransportRunner interface {
	Run(ctx context.Context) error
}

// TransportService wraps the realtime websocket transport as a supervised
// service. The transport manages its own reconnect budget; when it reports
// ErrTransportGaveUp the budget is spent and restarting would hammer a dead
// server, so the service tells suture not to restart it. The session poller
// keeps the dashboard fed until the process is restarted or the server
// returns.
type TransportService struct {
	transport TransportRunner
	name      string
}

// NewTransportService creates the transport service wrapper.
func NewTransportService(transport TransportRunner) *TransportService {
	return &TransportService{
		transport: transport,
		name:      "jellyfin-websocket",
	}
}

// Serve implements suture.Service.
func (s *TransportService) Serve(ctx context.Context) error {
	err := s.transport.Run(ctx)
	if errors.Is(err, jellyfin.ErrTransportGaveUp) {
		logging.Error().Msg("Realtime transport exhausted its reconnect budget, not restarting")
		return suture.ErrDoNotRestart
	}
	return err
}

// String implements fmt.Stringer for supervisor logs.
func (s *TransportService) String() string {
	return s.name
}
