// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package orionoid

import (
	"fmt"
	"strings"
	"time"
)

// Flavor selects the upstream media type for a lookup.
type Flavor string

const (
	FlavorMovie Flavor = "movie"
	FlavorShow  Flavor = "show"
)

// SearchParams describes a single upstream stream lookup. Exactly one of
// Query or the identifier fields should drive the search.
type SearchParams struct {
	Query   string
	IMDbID  string
	TVDbID  string
	TMDbID  string
	Flavor  Flavor
	Season  int
	Episode int
	Limit   int
}

// apiResult is the envelope every Orionoid response carries alongside its
// payload.
type apiResult struct {
	Status      string `json:"status"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

type searchResponse struct {
	Result apiResult  `json:"result"`
	Data   searchData `json:"data"`
}

type searchData struct {
	Streams []Stream  `json:"streams"`
	Count   countInfo `json:"count"`
}

type countInfo struct {
	Total int `json:"total"`
}

// Stream is a single raw result item from the stream retrieval endpoint.
// Consumed immediately into a NormalizedResult; never stored.
type Stream struct {
	ID         string     `json:"id"`
	Links      []string   `json:"links"`
	File       fileInfo   `json:"file"`
	Video      videoInfo  `json:"video"`
	Meta       metaInfo   `json:"meta"`
	Stream     sourceInfo `json:"stream"`
	Time       timeInfo   `json:"time"`
	Popularity *popInfo   `json:"popularity,omitempty"`
}

type fileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

type videoInfo struct {
	Quality string `json:"quality"`
	Codec   string `json:"codec"`
}

type metaInfo struct {
	Title   string       `json:"title"`
	IMDb    string       `json:"imdb"`
	TVDb    int64        `json:"tvdb"`
	Episode *episodeInfo `json:"episode"`
}

type episodeInfo struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

type sourceInfo struct {
	Type  string `json:"type"`
	Seeds int    `json:"seeds"`
}

type timeInfo struct {
	Added int64 `json:"added"`
}

type popInfo struct {
	Count int64 `json:"count"`
}

type userResponse struct {
	Result apiResult `json:"result"`
	Data   userData  `json:"data"`
}

type userData struct {
	Email        string `json:"email"`
	Subscription struct {
		Package struct {
			Premium bool `json:"premium"`
		} `json:"package"`
	} `json:"subscription"`
	Requests struct {
		Streams struct {
			Daily struct {
				Remaining int64 `json:"remaining"`
			} `json:"daily"`
		} `json:"streams"`
	} `json:"requests"`
}

// UserInfo is the account summary returned by Probe.
type UserInfo struct {
	Email             string `json:"email"`
	Premium           bool   `json:"premium"`
	DailyRequestsLeft int64  `json:"dailyRequestsLeft"`
}

// NormalizedResult is the uniform record every raw stream collapses into.
// Category and Quality are always populated, defaulting to Unknown; upstream
// metadata is too unreliable to treat gaps as failures.
type NormalizedResult struct {
	Title       string
	GUID        string
	DownloadURL string
	SizeBytes   int64
	PublishDate time.Time

	Category Category
	Quality  QualityTier
	Protocol Protocol

	// Torrent-only attributes; zero values for usenet results.
	Seeders  int
	Leechers int
	InfoHash string

	IMDbID  string
	TVDbID  string
	Season  int
	Episode int
}

// Normalize converts a raw stream into a NormalizedResult. The request
// flavor feeds classification when item metadata is absent.
func Normalize(s Stream, flavor Flavor) NormalizedResult {
	category, quality, protocol := Classify(s, flavor)

	r := NormalizedResult{
		Title:     buildTitle(s),
		GUID:      s.ID,
		Category:  category,
		Quality:   quality,
		Protocol:  protocol,
		SizeBytes: s.File.Size,
		InfoHash:  s.File.Hash,
		IMDbID:    s.Meta.IMDb,
	}

	if len(s.Links) > 0 {
		r.DownloadURL = s.Links[0]
	}
	if s.Time.Added > 0 {
		r.PublishDate = time.Unix(s.Time.Added, 0).UTC()
	}
	if protocol == ProtocolTorrent {
		r.Seeders = s.Stream.Seeds
		// Orionoid does not report leechers; seeders double as peers.
		r.Leechers = s.Stream.Seeds
	}
	if s.Meta.TVDb > 0 {
		r.TVDbID = fmt.Sprintf("%d", s.Meta.TVDb)
	}
	if s.Meta.Episode != nil {
		r.Season = s.Meta.Episode.Season
		r.Episode = s.Meta.Episode.Episode
	}

	return r
}

// buildTitle prefers the release file name and falls back to the metadata
// title, appending quality and codec markers when known.
func buildTitle(s Stream) string {
	parts := make([]string, 0, 3)

	switch {
	case s.File.Name != "":
		parts = append(parts, s.File.Name)
	case s.Meta.Title != "":
		parts = append(parts, s.Meta.Title)
	}

	if q := strings.ToUpper(s.Video.Quality); q != "" {
		parts = append(parts, "["+q+"]")
	}
	if c := strings.ToUpper(s.Video.Codec); c != "" {
		parts = append(parts, "["+c+"]")
	}

	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}
