// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics registers Prometheus collectors for the websocket
// transport, session reconciler, metadata cache, persistence layer and the
// HTTP API. All collectors are registered with the default registry and
// exposed on /metrics.
package metrics
