// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/models"
)

// cacheEnvelope is the on-disk shape: the flat record plus the write
// timestamp used for TTL checks.
type cacheEnvelope struct {
	*models.Metadata
	CacheTime int64 `json:"_cache_time"`
}

// DiskCache stores one JSON file per item under the cache directory.
// Any read problem (absence, parse failure, expiry) is a miss.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates the cache directory if needed. A ttl of zero disables
// expiry.
func NewDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata cache dir %s: %w", dir, err)
	}
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *DiskCache) path(itemID string) string {
	return filepath.Join(c.dir, fmt.Sprintf("metadata-item-%s.json", sanitizeKey(itemID)))
}

// Get returns the cached record, or nil on any miss.
func (c *DiskCache) Get(itemID string) *models.Metadata {
	data, err := os.ReadFile(c.path(itemID))
	if err != nil {
		return nil
	}

	env := cacheEnvelope{Metadata: &models.Metadata{}}
	if err := json.Unmarshal(data, &env); err != nil {
		logging.Debug().Err(err).Str("item_id", itemID).Msg("Discarding unreadable metadata cache file")
		return nil
	}

	if c.ttl > 0 {
		age := c.now().Unix() - env.CacheTime
		if age < 0 || age > int64(c.ttl.Seconds()) {
			return nil
		}
	}
	return env.Metadata
}

// Put writes the record. Write failures are logged and otherwise ignored;
// the cache is best-effort.
func (c *DiskCache) Put(itemID string, m *models.Metadata) {
	env := cacheEnvelope{Metadata: m, CacheTime: c.now().Unix()}
	data, err := json.Marshal(env)
	if err != nil {
		logging.Warn().Err(err).Str("item_id", itemID).Msg("Failed to encode metadata cache entry")
		return
	}
	if err := os.WriteFile(c.path(itemID), data, 0o644); err != nil {
		logging.Warn().Err(err).Str("item_id", itemID).Msg("Failed to write metadata cache file")
	}
}

// Delete drops one entry, used when a timeline event invalidates an item.
func (c *DiskCache) Delete(itemID string) {
	_ = os.Remove(c.path(itemID))
}

// sanitizeKey keeps cache file names path-safe.
func sanitizeKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
