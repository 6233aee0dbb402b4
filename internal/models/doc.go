// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package models defines the Jellyfin wire shapes consumed from the REST
// and websocket APIs, and the flat internal records (Session, Metadata,
// PlayHistory) the rest of the system works with.
package models
