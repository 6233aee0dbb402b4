// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package models

// JellyfinItem is the full item shape returned by /Users/{userId}/Items/{id}
// and /Items. Only fields the normalizer consumes are declared.
type JellyfinItem struct {
	ID            string `json:"Id"`
	Name          string `json:"Name"`
	OriginalTitle string `json:"OriginalTitle,omitempty"`
	SortName      string `json:"SortName,omitempty"`
	Type          string `json:"Type"`
	MediaType     string `json:"MediaType,omitempty"`
	ParentID      string `json:"ParentId,omitempty"`

	Overview        string   `json:"Overview,omitempty"`
	Taglines        []string `json:"Taglines,omitempty"`
	Genres          []string `json:"Genres,omitempty"`
	Tags            []string `json:"Tags,omitempty"`
	OfficialRating  string   `json:"OfficialRating,omitempty"`
	CommunityRating float64  `json:"CommunityRating,omitempty"`
	ProductionYear  int      `json:"ProductionYear,omitempty"`
	PremiereDate    string   `json:"PremiereDate,omitempty"`
	DateCreated     string   `json:"DateCreated,omitempty"`
	RunTimeTicks    int64    `json:"RunTimeTicks,omitempty"`

	IndexNumber       int `json:"IndexNumber,omitempty"`
	ParentIndexNumber int `json:"ParentIndexNumber,omitempty"`
	ChildCount        int `json:"ChildCount,omitempty"`

	SeriesID   string `json:"SeriesId,omitempty"`
	SeriesName string `json:"SeriesName,omitempty"`
	SeasonID   string `json:"SeasonId,omitempty"`
	SeasonName string `json:"SeasonName,omitempty"`

	AlbumID      string           `json:"AlbumId,omitempty"`
	Album        string           `json:"Album,omitempty"`
	AlbumArtist  string           `json:"AlbumArtist,omitempty"`
	Artists      []string         `json:"Artists,omitempty"`
	AlbumArtists []JellyfinNameID `json:"AlbumArtists,omitempty"`

	People  []JellyfinPerson `json:"People,omitempty"`
	Studios []JellyfinNameID `json:"Studios,omitempty"`

	ProviderIDs map[string]string `json:"ProviderIds,omitempty"`

	Container    string                `json:"Container,omitempty"`
	Width        int                   `json:"Width,omitempty"`
	Height       int                   `json:"Height,omitempty"`
	MediaStreams []JellyfinMediaStream `json:"MediaStreams,omitempty"`

	ImageTags         map[string]string `json:"ImageTags,omitempty"`
	BackdropImageTags []string          `json:"BackdropImageTags,omitempty"`
}

// JellyfinPerson is one People entry (actor, director, writer).
type JellyfinPerson struct {
	ID   string `json:"Id,omitempty"`
	Name string `json:"Name"`
	Role string `json:"Role,omitempty"`
	Type string `json:"Type"`
}

// JellyfinNameID is the minimal name/id pair Jellyfin uses for studios,
// ancestors and album artists.
type JellyfinNameID struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
	Type string `json:"Type,omitempty"`
}

// JellyfinItemsResponse wraps paged item listings.
type JellyfinItemsResponse struct {
	Items            []JellyfinItem `json:"Items"`
	TotalRecordCount int            `json:"TotalRecordCount"`
	StartIndex       int            `json:"StartIndex,omitempty"`
}

// JellyfinAncestor is one entry of an item's ancestor chain as returned by
// /Items/{id}/Ancestors, ordered nearest-first.
type JellyfinAncestor struct {
	ID             string   `json:"Id"`
	Name           string   `json:"Name"`
	Type           string   `json:"Type"`
	IndexNumber    int      `json:"IndexNumber,omitempty"`
	ProductionYear int      `json:"ProductionYear,omitempty"`
	Genres         []string `json:"Genres,omitempty"`
	Tags           []string `json:"Tags,omitempty"`
}

// JellyfinSystemInfo is /System/Info.
type JellyfinSystemInfo struct {
	ID                 string `json:"Id"`
	ServerName         string `json:"ServerName"`
	Version            string `json:"Version"`
	OperatingSystem    string `json:"OperatingSystem,omitempty"`
	LocalAddress       string `json:"LocalAddress,omitempty"`
	HasUpdateAvailable bool   `json:"HasUpdateAvailable,omitempty"`
}

// JellyfinUser is one entry of /Users.
type JellyfinUser struct {
	ID               string `json:"Id"`
	Name             string `json:"Name"`
	PrimaryImageTag  string `json:"PrimaryImageTag,omitempty"`
	HasPassword      bool   `json:"HasPassword,omitempty"`
	LastLoginDate    string `json:"LastLoginDate,omitempty"`
	LastActivityDate string `json:"LastActivityDate,omitempty"`
}

// PeopleByType splits an item's People list into directors, writers and
// actors, preserving order.
func (i *JellyfinItem) PeopleByType() (directors, writers, actors []string) {
	for _, p := range i.People {
		switch p.Type {
		case "Director":
			directors = append(directors, p.Name)
		case "Writer":
			writers = append(writers, p.Name)
		case "Actor":
			actors = append(actors, p.Name)
		}
	}
	return directors, writers, actors
}

// StudioNames returns the item's studio names.
func (i *JellyfinItem) StudioNames() []string {
	if len(i.Studios) == 0 {
		return nil
	}
	names := make([]string, 0, len(i.Studios))
	for _, s := range i.Studios {
		names = append(names, s.Name)
	}
	return names
}
