// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

// ItemFetcher is the slice of the upstream client the service needs.
type ItemFetcher interface {
	GetItem(ctx context.Context, itemID string) (*models.JellyfinItem, error)
	GetItemAncestors(ctx context.Context, itemID string) ([]models.JellyfinAncestor, error)
}

// Service resolves item ids to normalized Metadata records through two cache
// layers: an in-memory TTL cache in front of the on-disk JSON cache.
type Service struct {
	fetcher ItemFetcher
	mem     *ttlcache.Cache[string, *models.Metadata]
	disk    *DiskCache
}

// NewService builds the service. disk may be nil to run memory-only.
func NewService(fetcher ItemFetcher, disk *DiskCache, ttl time.Duration) *Service {
	mem := ttlcache.New[string, *models.Metadata](
		ttlcache.WithTTL[string, *models.Metadata](ttl),
		ttlcache.WithDisableTouchOnHit[string, *models.Metadata](),
	)
	go mem.Start()

	return &Service{
		fetcher: fetcher,
		mem:     mem,
		disk:    disk,
	}
}

// Stop halts the memory cache eviction loop.
func (s *Service) Stop() {
	s.mem.Stop()
}

// GetMetadata returns the normalized record for an item, from cache when
// fresh. Readers receive copies; cached records are never mutated.
func (s *Service) GetMetadata(ctx context.Context, itemID string) (*models.Metadata, error) {
	if itemID == "" {
		return nil, fmt.Errorf("metadata lookup requires an item id")
	}

	if entry := s.mem.Get(itemID); entry != nil {
		metrics.MetadataCacheHits.WithLabelValues("memory").Inc()
		return entry.Value().Copy(), nil
	}

	if s.disk != nil {
		if m := s.disk.Get(itemID); m != nil {
			metrics.MetadataCacheHits.WithLabelValues("disk").Inc()
			s.mem.Set(itemID, m, ttlcache.DefaultTTL)
			return m.Copy(), nil
		}
	}

	metrics.MetadataCacheMisses.Inc()

	item, err := s.fetcher.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}

	// The ancestor chain is best-effort: parent fields present on the item
	// itself still map without it.
	ancestors, err := s.fetcher.GetItemAncestors(ctx, itemID)
	if err != nil {
		logging.Debug().Err(err).Str("item_id", itemID).Msg("Failed to fetch ancestor chain")
		ancestors = nil
	}

	m := Normalize(item, ancestors)

	s.mem.Set(itemID, m, ttlcache.DefaultTTL)
	if s.disk != nil {
		s.disk.Put(itemID, m)
	}
	return m.Copy(), nil
}

// Invalidate drops an item from both cache layers. Called when a timeline
// event reports the item changed.
func (s *Service) Invalidate(itemID string) {
	s.mem.Delete(itemID)
	if s.disk != nil {
		s.disk.Delete(itemID)
	}
}
