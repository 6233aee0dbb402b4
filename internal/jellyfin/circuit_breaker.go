// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

var _ API = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps Client with a circuit breaker so a down or slow
// Jellyfin server cannot stall the poller and API handlers indefinitely.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreakerClient wraps client with the breaker. The circuit opens
// after a 60% failure rate over at least 10 requests, waits 2 minutes before
// probing, and allows 3 requests in half-open state.
func NewCircuitBreakerClient(client *Client) *CircuitBreakerClient {
	metrics.CircuitBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "jellyfin-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening Jellyfin circuit breaker")
				return true
			}
			return false
		},

		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Jellyfin circuit breaker state transition")
			metrics.CircuitBreakerState.Set(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb}
}

func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("Jellyfin request rejected by circuit breaker")
		}
		return nil, err
	}
	return result, nil
}

// Ping tests connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (any, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// GetSessions retrieves all sessions with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetSessions(ctx context.Context) ([]models.JellyfinSession, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.GetSessions(ctx)
	})
	if err != nil {
		return nil, err
	}
	sessions, ok := result.([]models.JellyfinSession)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetSessions")
	}
	return sessions, nil
}

// GetActiveSessions retrieves active sessions with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetActiveSessions(ctx context.Context) ([]models.JellyfinSession, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.GetActiveSessions(ctx)
	})
	if err != nil {
		return nil, err
	}
	sessions, ok := result.([]models.JellyfinSession)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetActiveSessions")
	}
	return sessions, nil
}

// GetItem retrieves one item with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetItem(ctx context.Context, itemID string) (*models.JellyfinItem, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.GetItem(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	item, ok := result.(*models.JellyfinItem)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetItem")
	}
	return item, nil
}

// GetItemAncestors retrieves an ancestor chain with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetItemAncestors(ctx context.Context, itemID string) ([]models.JellyfinAncestor, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.GetItemAncestors(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	ancestors, ok := result.([]models.JellyfinAncestor)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetItemAncestors")
	}
	return ancestors, nil
}

// GetSystemInfo retrieves server info with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetSystemInfo(ctx context.Context) (*models.JellyfinSystemInfo, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.GetSystemInfo(ctx)
	})
	if err != nil {
		return nil, err
	}
	info, ok := result.(*models.JellyfinSystemInfo)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetSystemInfo")
	}
	return info, nil
}

// GetUsers retrieves users with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetUsers(ctx context.Context) ([]models.JellyfinUser, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.GetUsers(ctx)
	})
	if err != nil {
		return nil, err
	}
	users, ok := result.([]models.JellyfinUser)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetUsers")
	}
	return users, nil
}

// StopSession terminates a session with circuit breaker protection.
func (cbc *CircuitBreakerClient) StopSession(ctx context.Context, sessionID, reason string) error {
	_, err := cbc.execute(func() (any, error) {
		return nil, cbc.client.StopSession(ctx, sessionID, reason)
	})
	return err
}

// GetWebSocketURL is a passthrough, it makes no network calls.
func (cbc *CircuitBreakerClient) GetWebSocketURL() (string, error) {
	return cbc.client.GetWebSocketURL()
}

// AuthorizationHeader is a passthrough, it makes no network calls.
func (cbc *CircuitBreakerClient) AuthorizationHeader() string {
	return cbc.client.AuthorizationHeader()
}

// State returns the current circuit breaker state.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
