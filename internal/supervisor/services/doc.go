// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package services adapts the application's long-running components to the
// suture.Service interface. Each wrapper holds a small interface rather than
// the concrete type so the packages stay decoupled and the wrappers stay
// testable.
package services
