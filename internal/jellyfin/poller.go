// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/models"
)

// minPollInterval is the floor for the session polling interval.
const minPollInterval = 10 * time.Second

// SnapshotFunc receives each poll result.
type SnapshotFunc func(ctx context.Context, sessions []models.JellyfinSession) error

// Poller periodically fetches the full session list and feeds it to the
// reconciler. It is the safety net for push events lost in reconnect gaps:
// the poll snapshot always converges the session table to ground truth.
type Poller struct {
	api      API
	interval time.Duration
	onPoll   SnapshotFunc

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller clamps interval to the minimum and builds the poller.
func NewPoller(api API, interval time.Duration, onPoll SnapshotFunc) *Poller {
	if interval < minPollInterval {
		logging.Warn().
			Dur("requested", interval).
			Dur("minimum", minPollInterval).
			Msg("Session polling interval below minimum, clamping")
		interval = minPollInterval
	}
	return &Poller{
		api:      api,
		interval: interval,
		onPoll:   onPoll,
	}
}

// Start launches the poll loop. An immediate poll runs before the first tick.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("session poller already running")
	}
	p.running = true
	p.stopChan = make(chan struct{})

	p.wg.Add(1)
	go p.pollLoop(ctx)

	logging.Info().Dur("interval", p.interval).Msg("Session poller started")
	return nil
}

// Stop halts the loop and waits for the in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("Session poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	sessions, err := p.api.GetSessions(pollCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("Session poll failed")
		return
	}

	if p.onPoll == nil {
		return
	}
	if err := p.onPoll(pollCtx, sessions); err != nil {
		logging.Error().Err(err).Msg("Failed to reconcile session snapshot")
	}
}
