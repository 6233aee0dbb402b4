// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/jellywatch/internal/models"
)

func newTestDiskCache(t *testing.T, ttl time.Duration) *DiskCache {
	t.Helper()
	c, err := NewDiskCache(t.TempDir(), ttl)
	require.NoError(t, err)
	return c
}

func TestDiskCacheRoundTrip(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)

	c.Put("item-1", &models.Metadata{RatingKey: "item-1", Title: "Some Movie", MediaType: models.MediaTypeMovie})

	got := c.Get("item-1")
	require.NotNil(t, got)
	assert.Equal(t, "Some Movie", got.Title)
	assert.Equal(t, models.MediaTypeMovie, got.MediaType)
}

func TestDiskCacheMissOnAbsent(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)

	assert.Nil(t, c.Get("never-written"))
}

func TestDiskCacheExpiry(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("item-1", &models.Metadata{RatingKey: "item-1", Title: "Some Movie"})

	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	assert.NotNil(t, c.Get("item-1"), "entry within ttl is a hit")

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Nil(t, c.Get("item-1"), "entry past ttl is a miss")
}

func TestDiskCacheFutureTimestampIsMiss(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)
	base := time.Now()
	c.now = func() time.Time { return base.Add(time.Hour) }

	c.Put("item-1", &models.Metadata{RatingKey: "item-1"})

	c.now = func() time.Time { return base }
	assert.Nil(t, c.Get("item-1"), "entry written in the future is a miss")
}

func TestDiskCacheCorruptFileIsMiss(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)

	require.NoError(t, os.WriteFile(c.path("item-1"), []byte("{not json"), 0o644))

	assert.Nil(t, c.Get("item-1"))
}

func TestDiskCacheZeroTTLNeverExpires(t *testing.T) {
	c := newTestDiskCache(t, 0)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("item-1", &models.Metadata{RatingKey: "item-1"})

	c.now = func() time.Time { return base.Add(1000 * time.Hour) }
	assert.NotNil(t, c.Get("item-1"))
}

func TestDiskCacheDelete(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)

	c.Put("item-1", &models.Metadata{RatingKey: "item-1"})
	c.Delete("item-1")

	assert.Nil(t, c.Get("item-1"))
}

func TestDiskCacheSanitizesFilenames(t *testing.T) {
	c := newTestDiskCache(t, time.Hour)

	c.Put("../../etc/passwd", &models.Metadata{RatingKey: "weird"})

	got := c.Get("../../etc/passwd")
	require.NotNil(t, got)
	assert.Equal(t, "weird", got.RatingKey)

	entries, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "metadata-item-______etc_passwd.json", filepath.Base(entries[0]))
}
