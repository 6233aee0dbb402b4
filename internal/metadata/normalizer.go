// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

/*
normalizer.go - Vendor item to flat Metadata mapping

One mapping function per item type. Each takes the vendor item plus the
ancestor chain fetched once per item, and returns the flat record. Mapping
never fails: unclassifiable shapes produce a best-effort partial record.
*/

package metadata

import (
	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/models"
)

// ancestorChain indexes an item's ancestors by vendor type for the per-type
// parent/grandparent slicing. Fetched once per item so sibling fields never
// need extra upstream calls.
type ancestorChain struct {
	byType map[string]*models.JellyfinAncestor
}

func newAncestorChain(ancestors []models.JellyfinAncestor) *ancestorChain {
	c := &ancestorChain{byType: make(map[string]*models.JellyfinAncestor, len(ancestors))}
	for i := range ancestors {
		// Nearest ancestor of each type wins.
		if _, seen := c.byType[ancestors[i].Type]; !seen {
			c.byType[ancestors[i].Type] = &ancestors[i]
		}
	}
	return c
}

func (c *ancestorChain) get(itemType string) *models.JellyfinAncestor {
	if c == nil {
		return nil
	}
	return c.byType[itemType]
}

// sectionID returns the library folder id the item belongs to.
func (c *ancestorChain) sectionID() string {
	if a := c.get("CollectionFolder"); a != nil {
		return a.ID
	}
	if a := c.get("Folder"); a != nil {
		return a.ID
	}
	return ""
}

// Normalize maps one vendor item onto the flat Metadata record.
func Normalize(item *models.JellyfinItem, ancestors []models.JellyfinAncestor) *models.Metadata {
	chain := newAncestorChain(ancestors)
	m := mapBase(item, chain)

	switch m.MediaType {
	case models.MediaTypeMovie:
		mapMovie(m, item)
	case models.MediaTypeShow:
		mapShow(m, item)
	case models.MediaTypeSeason:
		mapSeason(m, item, chain)
	case models.MediaTypeEpisode:
		mapEpisode(m, item, chain)
	case models.MediaTypeArtist:
		mapArtist(m, item)
	case models.MediaTypeAlbum:
		mapAlbum(m, item, chain)
	case models.MediaTypeTrack:
		mapTrack(m, item, chain)
	case models.MediaTypePhoto:
		mapPhoto(m, item, chain)
	case models.MediaTypePhotoAlbum:
		mapPhotoAlbum(m, item)
	case models.MediaTypeCollection, models.MediaTypePlaylist:
		mapContainer(m, item)
	case models.MediaTypeClip:
		mapClip(m, item)
	default:
		logging.Debug().
			Str("item_id", item.ID).
			Str("item_type", item.Type).
			Msg("Unclassified item type, keeping base metadata")
	}

	return m
}

// mapBase fills the fields common to every item type.
func mapBase(item *models.JellyfinItem, chain *ancestorChain) *models.Metadata {
	m := &models.Metadata{
		MediaType:     models.MediaTypeFromItemType(item.Type),
		RatingKey:     item.ID,
		SectionID:     chain.sectionID(),
		Title:         item.Name,
		SortTitle:     item.SortName,
		OriginalTitle: item.OriginalTitle,
		Year:          item.ProductionYear,
		Summary:       item.Overview,
		ContentRating: item.OfficialRating,
		Rating:        item.CommunityRating,
		DurationTicks: item.RunTimeTicks,
		Genres:        append([]string(nil), item.Genres...),
		Labels:        append([]string(nil), item.Tags...),
		Studios:       item.StudioNames(),
		Guids:         item.ProviderIDs,

		OriginallyAvailableAt: item.PremiereDate,
		AddedAt:               item.DateCreated,
	}

	if len(item.Taglines) > 0 {
		m.Tagline = item.Taglines[0]
	}

	m.Directors, m.Writers, m.Actors = item.PeopleByType()

	if item.Container != "" {
		m.Container = item.Container
	}
	if item.Width > 0 {
		m.Width = item.Width
	}
	if item.Height > 0 {
		m.Height = item.Height
	}
	for i := range item.MediaStreams {
		stream := &item.MediaStreams[i]
		switch stream.Type {
		case "Video":
			if m.VideoCodec == "" {
				m.VideoCodec = stream.Codec
				if stream.Width > 0 {
					m.Width = stream.Width
				}
				if stream.Height > 0 {
					m.Height = stream.Height
				}
			}
		case "Audio":
			if m.AudioCodec == "" {
				m.AudioCodec = stream.Codec
				m.AudioChannels = stream.Channels
			}
		}
	}

	if tag, ok := item.ImageTags["Primary"]; ok {
		m.ThumbTag = tag
	}
	if len(item.BackdropImageTags) > 0 {
		m.ArtTag = item.BackdropImageTags[0]
	}

	return m
}

func mapMovie(_ *models.Metadata, _ *models.JellyfinItem) {
	// Base mapping covers movies completely.
}

func mapShow(m *models.Metadata, item *models.JellyfinItem) {
	m.MediaIndex = item.ChildCount
}

// mapSeason inherits genres and labels from the show when the season itself
// carries none.
func mapSeason(m *models.Metadata, item *models.JellyfinItem, chain *ancestorChain) {
	m.MediaIndex = item.IndexNumber
	m.ParentRatingKey = item.SeriesID
	m.ParentTitle = item.SeriesName

	if show := chain.get("Series"); show != nil {
		if m.ParentRatingKey == "" {
			m.ParentRatingKey = show.ID
		}
		if m.ParentTitle == "" {
			m.ParentTitle = show.Name
		}
		if len(m.Genres) == 0 {
			m.Genres = append([]string(nil), show.Genres...)
		}
		if len(m.Labels) == 0 {
			m.Labels = append([]string(nil), show.Tags...)
		}
		if m.Year == 0 {
			m.Year = show.ProductionYear
		}
	}
}

func mapEpisode(m *models.Metadata, item *models.JellyfinItem, chain *ancestorChain) {
	m.MediaIndex = item.IndexNumber
	m.ParentMediaIndex = item.ParentIndexNumber
	m.ParentRatingKey = item.SeasonID
	m.ParentTitle = item.SeasonName
	m.GrandparentRatingKey = item.SeriesID
	m.GrandparentTitle = item.SeriesName

	if season := chain.get("Season"); season != nil {
		if m.ParentRatingKey == "" {
			m.ParentRatingKey = season.ID
		}
		if m.ParentTitle == "" {
			m.ParentTitle = season.Name
		}
		if m.ParentMediaIndex == 0 {
			m.ParentMediaIndex = season.IndexNumber
		}
	}
	if show := chain.get("Series"); show != nil {
		if m.GrandparentRatingKey == "" {
			m.GrandparentRatingKey = show.ID
		}
		if m.GrandparentTitle == "" {
			m.GrandparentTitle = show.Name
		}
		if len(m.Genres) == 0 {
			m.Genres = append([]string(nil), show.Genres...)
		}
	}
}

func mapArtist(_ *models.Metadata, _ *models.JellyfinItem) {
	// Base mapping covers artists completely.
}

func mapAlbum(m *models.Metadata, item *models.JellyfinItem, chain *ancestorChain) {
	m.ParentTitle = item.AlbumArtist
	if len(item.AlbumArtists) > 0 {
		m.ParentRatingKey = item.AlbumArtists[0].ID
		if m.ParentTitle == "" {
			m.ParentTitle = item.AlbumArtists[0].Name
		}
	}
	if artist := chain.get("MusicArtist"); artist != nil {
		if m.ParentRatingKey == "" {
			m.ParentRatingKey = artist.ID
		}
		if m.ParentTitle == "" {
			m.ParentTitle = artist.Name
		}
	}
}

// mapTrack inherits year, genres and labels from the album when the track
// itself carries none.
func mapTrack(m *models.Metadata, item *models.JellyfinItem, chain *ancestorChain) {
	m.MediaIndex = item.IndexNumber
	m.ParentMediaIndex = item.ParentIndexNumber
	m.ParentRatingKey = item.AlbumID
	m.ParentTitle = item.Album
	m.GrandparentTitle = item.AlbumArtist
	if len(item.AlbumArtists) > 0 {
		m.GrandparentRatingKey = item.AlbumArtists[0].ID
	}

	if album := chain.get("MusicAlbum"); album != nil {
		if m.ParentRatingKey == "" {
			m.ParentRatingKey = album.ID
		}
		if m.ParentTitle == "" {
			m.ParentTitle = album.Name
		}
		if m.Year == 0 {
			m.Year = album.ProductionYear
		}
		if len(m.Genres) == 0 {
			m.Genres = append([]string(nil), album.Genres...)
		}
		if len(m.Labels) == 0 {
			m.Labels = append([]string(nil), album.Tags...)
		}
	}
	if artist := chain.get("MusicArtist"); artist != nil {
		if m.GrandparentRatingKey == "" {
			m.GrandparentRatingKey = artist.ID
		}
		if m.GrandparentTitle == "" {
			m.GrandparentTitle = artist.Name
		}
	}
}

// mapPhoto inherits from the containing photo album.
func mapPhoto(m *models.Metadata, item *models.JellyfinItem, chain *ancestorChain) {
	m.MediaIndex = item.IndexNumber
	if album := chain.get("PhotoAlbum"); album != nil {
		m.ParentRatingKey = album.ID
		m.ParentTitle = album.Name
		if m.Year == 0 {
			m.Year = album.ProductionYear
		}
	}
}

func mapPhotoAlbum(m *models.Metadata, item *models.JellyfinItem) {
	m.MediaIndex = item.ChildCount
}

func mapContainer(m *models.Metadata, item *models.JellyfinItem) {
	m.MediaIndex = item.ChildCount
}

func mapClip(_ *models.Metadata, _ *models.JellyfinItem) {
	// Base mapping covers clips completely.
}
