// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package orionoid

import (
	"regexp"
	"strings"

	"github.com/moistari/rls"
)

// Category is the coarse media classification of a result.
type Category string

const (
	CategoryMovie   Category = "movie"
	CategoryTV      Category = "tv"
	CategoryUnknown Category = "unknown"
)

// QualityTier is the coarse resolution classification of a result.
type QualityTier string

const (
	QualitySD      QualityTier = "sd"
	QualityHD      QualityTier = "hd"
	QualityUHD     QualityTier = "uhd"
	QualityUnknown QualityTier = "unknown"
)

// Protocol distinguishes torrent from usenet results.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// seasonEpisodePattern matches SxxEyy style tokens. Nonstandard numbering
// ("1x02", "Part 3", anime absolute numbering) is intentionally not covered
// here; rls parsing picks up some of those.
var seasonEpisodePattern = regexp.MustCompile(`(?i)\bS(\d{1,2})[\s._-]?E(\d{1,3})\b`)

// Classify derives category, quality tier and protocol for a raw stream.
// The request flavor is the context of the lookup that produced the item and
// breaks ties when item metadata is missing.
func Classify(s Stream, flavor Flavor) (Category, QualityTier, Protocol) {
	protocol := ProtocolTorrent
	if strings.EqualFold(s.Stream.Type, "usenet") || strings.EqualFold(s.Stream.Type, "nzb") {
		protocol = ProtocolUsenet
	}

	return classifyCategory(s, flavor), classifyQuality(s), protocol
}

func classifyCategory(s Stream, flavor Flavor) Category {
	// Structured episode metadata and TV identifiers are authoritative.
	if s.Meta.Episode != nil && (s.Meta.Episode.Season > 0 || s.Meta.Episode.Episode > 0) {
		return CategoryTV
	}
	if s.Meta.TVDb > 0 {
		return CategoryTV
	}

	switch flavor {
	case FlavorMovie:
		return CategoryMovie
	case FlavorShow:
		return CategoryTV
	}

	if s.Meta.IMDb != "" {
		return CategoryMovie
	}

	// Title pattern matching is the fallback when metadata is absent.
	title := streamTitle(s)
	if TitleSeasonEpisode(title) != nil {
		return CategoryTV
	}

	return CategoryUnknown
}

func classifyQuality(s Stream) QualityTier {
	if tier := qualityFromToken(s.Video.Quality); tier != QualityUnknown {
		return tier
	}

	title := streamTitle(s)
	release := rls.ParseString(title)
	if tier := qualityFromToken(release.Resolution); tier != QualityUnknown {
		return tier
	}

	return qualityFromToken(title)
}

// qualityFromToken maps a quality marker or free text onto a tier,
// case-insensitively. Unmatched input yields Unknown rather than an error.
func qualityFromToken(token string) QualityTier {
	t := strings.ToLower(token)
	switch {
	case t == "":
		return QualityUnknown
	case strings.Contains(t, "2160") || strings.Contains(t, "4320") ||
		strings.Contains(t, "4k") || strings.Contains(t, "8k") ||
		strings.Contains(t, "uhd"):
		return QualityUHD
	case strings.Contains(t, "1080") || strings.Contains(t, "720") ||
		strings.Contains(t, "hd"):
		return QualityHD
	case strings.Contains(t, "480") || strings.Contains(t, "576") ||
		strings.Contains(t, "sd"):
		return QualitySD
	default:
		return QualityUnknown
	}
}

func streamTitle(s Stream) string {
	if s.File.Name != "" {
		return s.File.Name
	}
	return s.Meta.Title
}

// SeasonEpisode is a season/episode pair extracted from a release title.
type SeasonEpisode struct {
	Season  int
	Episode int
}

// TitleSeasonEpisode extracts season/episode numbering from a release title,
// or nil when the title encodes none. rls parsing runs first; the SxxEyy
// regex is the backstop for names rls does not recognise as episodes.
func TitleSeasonEpisode(title string) *SeasonEpisode {
	if title == "" {
		return nil
	}

	release := rls.ParseString(title)
	if release.Series > 0 || release.Episode > 0 {
		return &SeasonEpisode{Season: release.Series, Episode: release.Episode}
	}

	if m := seasonEpisodePattern.FindStringSubmatch(title); m != nil {
		return &SeasonEpisode{Season: atoiSafe(m[1]), Episode: atoiSafe(m[2])}
	}

	return nil
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
