// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

import "strings"

// MediaType is the closed enumeration of normalized item types.
type MediaType string

const (
	MediaTypeMovie      MediaType = "movie"
	MediaTypeShow       MediaType = "show"
	MediaTypeSeason     MediaType = "season"
	MediaTypeEpisode    MediaType = "episode"
	MediaTypeArtist     MediaType = "artist"
	MediaTypeAlbum      MediaType = "album"
	MediaTypeTrack      MediaType = "track"
	MediaTypePhoto      MediaType = "photo"
	MediaTypePhotoAlbum MediaType = "photo_album"
	MediaTypeCollection MediaType = "collection"
	MediaTypePlaylist   MediaType = "playlist"
	MediaTypeClip       MediaType = "clip"
)

// MediaTypeFromItemType maps a Jellyfin item Type onto the normalized
// enumeration. Unknown types map to the lowercased vendor type so callers
// can log what they saw.
func MediaTypeFromItemType(itemType string) MediaType {
	switch itemType {
	case "Movie":
		return MediaTypeMovie
	case "Series":
		return MediaTypeShow
	case "Season":
		return MediaTypeSeason
	case "Episode":
		return MediaTypeEpisode
	case "MusicArtist":
		return MediaTypeArtist
	case "MusicAlbum":
		return MediaTypeAlbum
	case "Audio":
		return MediaTypeTrack
	case "Photo":
		return MediaTypePhoto
	case "PhotoAlbum":
		return MediaTypePhotoAlbum
	case "BoxSet":
		return MediaTypeCollection
	case "Playlist":
		return MediaTypePlaylist
	case "Video", "MusicVideo", "Trailer":
		return MediaTypeClip
	default:
		return MediaType(strings.ToLower(itemType))
	}
}

// Metadata is the normalized view of one media item. media_type determines
// which attribute subset is meaningful: grandparent_title is the show name
// only for episode types, parent_title the season or album, and so on.
// Records are never mutated after construction; cache refresh replaces them
// wholesale.
type Metadata struct {
	MediaType MediaType `json:"media_type"`

	RatingKey            string `json:"rating_key"`
	ParentRatingKey      string `json:"parent_rating_key,omitempty"`
	GrandparentRatingKey string `json:"grandparent_rating_key,omitempty"`
	SectionID            string `json:"section_id,omitempty"`

	Title            string `json:"title"`
	ParentTitle      string `json:"parent_title,omitempty"`
	GrandparentTitle string `json:"grandparent_title,omitempty"`
	SortTitle        string `json:"sort_title,omitempty"`
	OriginalTitle    string `json:"original_title,omitempty"`

	MediaIndex       int `json:"media_index,omitempty"`
	ParentMediaIndex int `json:"parent_media_index,omitempty"`

	Year                  int     `json:"year,omitempty"`
	OriginallyAvailableAt string  `json:"originally_available_at,omitempty"`
	AddedAt               string  `json:"added_at,omitempty"`
	Summary               string  `json:"summary,omitempty"`
	Tagline               string  `json:"tagline,omitempty"`
	ContentRating         string  `json:"content_rating,omitempty"`
	Rating                float64 `json:"rating,omitempty"`
	DurationTicks         int64   `json:"duration_ticks,omitempty"`

	Genres      []string `json:"genres,omitempty"`
	Directors   []string `json:"directors,omitempty"`
	Writers     []string `json:"writers,omitempty"`
	Actors      []string `json:"actors,omitempty"`
	Studios     []string `json:"studios,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Collections []string `json:"collections,omitempty"`

	Guids map[string]string `json:"guids,omitempty"`

	Container     string `json:"container,omitempty"`
	VideoCodec    string `json:"video_codec,omitempty"`
	AudioCodec    string `json:"audio_codec,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	AudioChannels int    `json:"audio_channels,omitempty"`

	ThumbTag string `json:"thumb_tag,omitempty"`
	ArtTag   string `json:"art_tag,omitempty"`
}

// DurationSeconds returns the item runtime in seconds.
func (m *Metadata) DurationSeconds() int64 {
	return m.DurationTicks / TicksPerSecond
}

// Copy returns a deep copy of the record.
func (m *Metadata) Copy() *Metadata {
	if m == nil {
		return nil
	}
	dup := *m
	dup.Genres = copyStrings(m.Genres)
	dup.Directors = copyStrings(m.Directors)
	dup.Writers = copyStrings(m.Writers)
	dup.Actors = copyStrings(m.Actors)
	dup.Studios = copyStrings(m.Studios)
	dup.Labels = copyStrings(m.Labels)
	dup.Collections = copyStrings(m.Collections)
	if m.Guids != nil {
		dup.Guids = make(map[string]string, len(m.Guids))
		for k, v := range m.Guids {
			dup.Guids[k] = v
		}
	}
	return &dup
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
