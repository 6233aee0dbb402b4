// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/jellywatch/internal/models"
)

func TestNormalizeMovie(t *testing.T) {
	item := &models.JellyfinItem{
		ID:              "m1",
		Name:            "Some Movie",
		Type:            "Movie",
		ProductionYear:  2024,
		Overview:        "A movie.",
		Taglines:        []string{"First tagline", "Second"},
		Genres:          []string{"Action", "Drama"},
		OfficialRating:  "PG-13",
		CommunityRating: 7.8,
		RunTimeTicks:    72000000000,
		Container:       "mkv",
		People: []models.JellyfinPerson{
			{Name: "D One", Type: "Director"},
			{Name: "A One", Type: "Actor"},
		},
		Studios:     []models.JellyfinNameID{{ID: "s1", Name: "Some Studio"}},
		ProviderIDs: map[string]string{"Imdb": "tt0000001"},
		MediaStreams: []models.JellyfinMediaStream{
			{Type: "Video", Codec: "hevc", Width: 3840, Height: 2160},
			{Type: "Audio", Codec: "eac3", Channels: 6},
		},
	}
	ancestors := []models.JellyfinAncestor{
		{ID: "lib1", Name: "Movies", Type: "CollectionFolder"},
	}

	m := Normalize(item, ancestors)

	assert.Equal(t, models.MediaTypeMovie, m.MediaType)
	assert.Equal(t, "m1", m.RatingKey)
	assert.Equal(t, "lib1", m.SectionID)
	assert.Equal(t, "Some Movie", m.Title)
	assert.Equal(t, 2024, m.Year)
	assert.Equal(t, "First tagline", m.Tagline)
	assert.Equal(t, []string{"Action", "Drama"}, m.Genres)
	assert.Equal(t, []string{"D One"}, m.Directors)
	assert.Equal(t, []string{"A One"}, m.Actors)
	assert.Equal(t, []string{"Some Studio"}, m.Studios)
	assert.Equal(t, "hevc", m.VideoCodec)
	assert.Equal(t, "eac3", m.AudioCodec)
	assert.Equal(t, 6, m.AudioChannels)
	assert.Equal(t, 3840, m.Width)
	assert.Equal(t, int64(7200), m.DurationSeconds())
	assert.Equal(t, "tt0000001", m.Guids["Imdb"])
}

func TestNormalizeEpisodeSlicesAncestorChain(t *testing.T) {
	item := &models.JellyfinItem{
		ID:          "ep1",
		Name:        "Pilot",
		Type:        "Episode",
		IndexNumber: 2,
	}
	ancestors := []models.JellyfinAncestor{
		{ID: "sea1", Name: "Season 1", Type: "Season", IndexNumber: 1},
		{ID: "ser1", Name: "Some Show", Type: "Series", Genres: []string{"Drama"}},
		{ID: "lib1", Name: "Shows", Type: "CollectionFolder"},
	}

	m := Normalize(item, ancestors)

	assert.Equal(t, models.MediaTypeEpisode, m.MediaType)
	assert.Equal(t, 2, m.MediaIndex)
	assert.Equal(t, 1, m.ParentMediaIndex)
	assert.Equal(t, "sea1", m.ParentRatingKey)
	assert.Equal(t, "Season 1", m.ParentTitle)
	assert.Equal(t, "ser1", m.GrandparentRatingKey)
	assert.Equal(t, "Some Show", m.GrandparentTitle)
	assert.Equal(t, []string{"Drama"}, m.Genres, "episode inherits show genres when it carries none")
	assert.Equal(t, "lib1", m.SectionID)
}

func TestNormalizeEpisodeItemFieldsWinOverAncestors(t *testing.T) {
	item := &models.JellyfinItem{
		ID:                "ep1",
		Name:              "Pilot",
		Type:              "Episode",
		SeriesID:          "ser-direct",
		SeriesName:        "Direct Show",
		SeasonID:          "sea-direct",
		SeasonName:        "Direct Season",
		IndexNumber:       3,
		ParentIndexNumber: 2,
		Genres:            []string{"Comedy"},
	}
	ancestors := []models.JellyfinAncestor{
		{ID: "sea1", Name: "Season 1", Type: "Season", IndexNumber: 1},
		{ID: "ser1", Name: "Ancestor Show", Type: "Series", Genres: []string{"Drama"}},
	}

	m := Normalize(item, ancestors)

	assert.Equal(t, "sea-direct", m.ParentRatingKey)
	assert.Equal(t, "Direct Season", m.ParentTitle)
	assert.Equal(t, "ser-direct", m.GrandparentRatingKey)
	assert.Equal(t, "Direct Show", m.GrandparentTitle)
	assert.Equal(t, 2, m.ParentMediaIndex)
	assert.Equal(t, []string{"Comedy"}, m.Genres)
}

func TestNormalizeSeasonInheritsFromShow(t *testing.T) {
	item := &models.JellyfinItem{
		ID:          "sea1",
		Name:        "Season 2",
		Type:        "Season",
		IndexNumber: 2,
	}
	ancestors := []models.JellyfinAncestor{
		{ID: "ser1", Name: "Some Show", Type: "Series", Genres: []string{"Drama"}, Tags: []string{"favorite"}, ProductionYear: 2020},
	}

	m := Normalize(item, ancestors)

	assert.Equal(t, models.MediaTypeSeason, m.MediaType)
	assert.Equal(t, "ser1", m.ParentRatingKey)
	assert.Equal(t, "Some Show", m.ParentTitle)
	assert.Equal(t, []string{"Drama"}, m.Genres)
	assert.Equal(t, []string{"favorite"}, m.Labels)
	assert.Equal(t, 2020, m.Year)
}

func TestNormalizeTrackInheritsFromAlbum(t *testing.T) {
	item := &models.JellyfinItem{
		ID:          "t1",
		Name:        "Track Name",
		Type:        "Audio",
		IndexNumber: 4,
	}
	ancestors := []models.JellyfinAncestor{
		{ID: "alb1", Name: "Album Name", Type: "MusicAlbum", ProductionYear: 2019, Genres: []string{"Jazz"}, Tags: []string{"Some Label"}},
		{ID: "art1", Name: "Artist Name", Type: "MusicArtist"},
	}

	m := Normalize(item, ancestors)

	assert.Equal(t, models.MediaTypeTrack, m.MediaType)
	assert.Equal(t, 4, m.MediaIndex)
	assert.Equal(t, "alb1", m.ParentRatingKey)
	assert.Equal(t, "Album Name", m.ParentTitle)
	assert.Equal(t, "art1", m.GrandparentRatingKey)
	assert.Equal(t, "Artist Name", m.GrandparentTitle)
	assert.Equal(t, 2019, m.Year)
	assert.Equal(t, []string{"Jazz"}, m.Genres)
	assert.Equal(t, []string{"Some Label"}, m.Labels)
}

func TestNormalizePhotoInheritsFromPhotoAlbum(t *testing.T) {
	item := &models.JellyfinItem{ID: "p1", Name: "IMG_0001", Type: "Photo"}
	ancestors := []models.JellyfinAncestor{
		{ID: "pa1", Name: "Holiday 2025", Type: "PhotoAlbum", ProductionYear: 2025},
	}

	m := Normalize(item, ancestors)

	assert.Equal(t, models.MediaTypePhoto, m.MediaType)
	assert.Equal(t, "pa1", m.ParentRatingKey)
	assert.Equal(t, "Holiday 2025", m.ParentTitle)
	assert.Equal(t, 2025, m.Year)
}

func TestNormalizeUnknownTypeKeepsBase(t *testing.T) {
	item := &models.JellyfinItem{ID: "x1", Name: "Strange", Type: "Channel"}

	m := Normalize(item, nil)

	require.NotNil(t, m)
	assert.Equal(t, models.MediaType("channel"), m.MediaType)
	assert.Equal(t, "Strange", m.Title)
}

func TestNormalizeCollection(t *testing.T) {
	item := &models.JellyfinItem{ID: "c1", Name: "Best Of", Type: "BoxSet", ChildCount: 12}

	m := Normalize(item, nil)

	assert.Equal(t, models.MediaTypeCollection, m.MediaType)
	assert.Equal(t, 12, m.MediaIndex)
}
