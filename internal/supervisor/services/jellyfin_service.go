// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches *jellyfin.Manager's lifecycle methods.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop()
}

// JellyfinService wraps the Jellyfin manager as a supervised service. Start
// spawns the manager's internal goroutines (the session poller, the outage
// timer); the wrapper then blocks until shutdown and stops them.
type JellyfinService struct {
	manager StartStopManager
	name    string
}

// NewJellyfinService creates the manager service wrapper.
func NewJellyfinService(manager StartStopManager) *JellyfinService {
	return &JellyfinService{
		manager: manager,
		name:    "jellyfin-manager",
	}
}

// Serve implements suture.Service. A failed Start is returned to suture,
// which restarts the service under its backoff policy.
func (s *JellyfinService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("jellyfin manager start failed: %w", err)
	}

	<-ctx.Done()

	s.manager.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *JellyfinService) String() string {
	return s.name
}
