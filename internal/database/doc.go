// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package database persists play history, users and library item snapshots
// in DuckDB. Writes come from the activity reconciler and the timeline
// handler; reads serve the history API.
package database
