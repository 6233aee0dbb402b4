// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware shared by the API router:
// request ids and Prometheus instrumentation.
package middleware
