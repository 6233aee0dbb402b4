// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/models"
)

// parseHistoryFilter builds a history filter from query parameters. Page sizes
// are clamped to the configured maximum; time bounds accept RFC 3339.
func parseHistoryFilter(r *http.Request, cfg *config.APIConfig) (models.HistoryFilter, error) {
	q := r.URL.Query()

	filter := models.HistoryFilter{
		UserID:    q.Get("user_id"),
		MediaType: models.MediaType(q.Get("media_type")),
		Page:      1,
		PageSize:  cfg.DefaultPageSize,
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, fmt.Errorf("invalid page %q", raw)
		}
		filter.Page = page
	}

	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return filter, fmt.Errorf("invalid page_size %q", raw)
		}
		if size > cfg.MaxPageSize {
			size = cfg.MaxPageSize
		}
		filter.PageSize = size
	}

	if raw := q.Get("after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid after %q: must be RFC 3339", raw)
		}
		filter.After = t
	}

	if raw := q.Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid before %q: must be RFC 3339", raw)
		}
		filter.Before = t
	}

	return filter, nil
}
