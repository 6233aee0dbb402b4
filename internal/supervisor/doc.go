// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package supervisor builds the suture supervision tree that keeps the
// long-running components alive: the Jellyfin manager, the realtime
// websocket transport, the browser broadcast hub, and the HTTP server.
// Service wrappers live in the services subpackage.
package supervisor
