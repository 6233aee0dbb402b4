// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package websocket pushes activity updates, server status and library
// changes to connected dashboard browsers.
package websocket
