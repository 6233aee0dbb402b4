// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Sessions" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"Id":"s1"}]`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cbc := NewCircuitBreakerClient(NewClient(testClientConfig(srv.URL)))

	require.NoError(t, cbc.Ping(context.Background()))

	sessions, err := cbc.GetSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, gobreaker.StateClosed, cbc.State())
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cbc := NewCircuitBreakerClient(NewClient(testClientConfig(srv.URL)))

	for i := 0; i < 12; i++ {
		_ = cbc.Ping(context.Background())
	}

	assert.Equal(t, gobreaker.StateOpen, cbc.State())

	// Open circuit rejects without hitting upstream.
	before := requests.Load()
	err := cbc.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, requests.Load())
}

func TestCircuitBreakerErrorsPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cbc := NewCircuitBreakerClient(NewClient(testClientConfig(srv.URL)))

	_, err := cbc.GetSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
