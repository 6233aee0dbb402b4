// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api implements the dashboard's HTTP surface: health probes, live
// activity, playback history, metadata lookups, session termination, the
// realtime websocket upgrade, and Prometheus metrics. Routing is built on
// chi with go-chi/cors and go-chi/httprate, and every JSON endpoint answers
// with the APIResponse envelope.
package api
