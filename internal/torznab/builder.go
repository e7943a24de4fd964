// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package torznab renders Torznab/Newznab XML documents: the capabilities
// tree, search result feeds and error responses.
package torznab

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/orionarr/orionarr/internal/orionoid"
)

const (
	newznabNamespace = "http://www.newznab.com/DTD/2010/feeds/attributes/"
	torznabNamespace = "http://torznab.com/schemas/2015/feed"

	feedTitle = "Orionoid Torznab"
	feedLink  = "https://orionoid.com"
)

// Newznab category ids. Unknown content goes to Other rather than being
// guessed into a media category.
const (
	CategoryMovie    = 2000
	CategoryMovieSD  = 2030
	CategoryMovieHD  = 2040
	CategoryMovieUHD = 2060
	CategoryTV       = 5000
	CategoryTVSD     = 5030
	CategoryTVHD     = 5040
	CategoryTVUHD    = 5080
	CategoryOther    = 8000
)

// CategoryID maps a classified result onto its Newznab category id. The
// mapping is total; every (category, tier) pair has an id.
func CategoryID(category orionoid.Category, tier orionoid.QualityTier) int {
	switch category {
	case orionoid.CategoryMovie:
		switch tier {
		case orionoid.QualitySD:
			return CategoryMovieSD
		case orionoid.QualityHD:
			return CategoryMovieHD
		case orionoid.QualityUHD:
			return CategoryMovieUHD
		default:
			return CategoryMovie
		}
	case orionoid.CategoryTV:
		switch tier {
		case orionoid.QualitySD:
			return CategoryTVSD
		case orionoid.QualityHD:
			return CategoryTVHD
		case orionoid.QualityUHD:
			return CategoryTVUHD
		default:
			return CategoryTV
		}
	default:
		return CategoryOther
	}
}

type capsDoc struct {
	XMLName      xml.Name         `xml:"caps"`
	Server       capsServer       `xml:"server"`
	Limits       capsLimits       `xml:"limits"`
	Registration capsRegistration `xml:"registration"`
	Searching    capsSearching    `xml:"searching"`
	Categories   capsCategories   `xml:"categories"`
}

type capsServer struct {
	Version   string `xml:"version,attr"`
	Title     string `xml:"title,attr"`
	Strapline string `xml:"strapline,attr"`
	URL       string `xml:"url,attr"`
}

type capsLimits struct {
	Max     int `xml:"max,attr"`
	Default int `xml:"default,attr"`
}

type capsRegistration struct {
	Available string `xml:"available,attr"`
	Open      string `xml:"open,attr"`
}

type capsSearching struct {
	Search      capsSearch `xml:"search"`
	TVSearch    capsSearch `xml:"tv-search"`
	MovieSearch capsSearch `xml:"movie-search"`
}

type capsSearch struct {
	Available       string `xml:"available,attr"`
	SupportedParams string `xml:"supportedParams,attr"`
}

type capsCategories struct {
	Categories []capsCategory `xml:"category"`
}

type capsCategory struct {
	ID      int          `xml:"id,attr"`
	Name    string       `xml:"name,attr"`
	Subcats []capsSubcat `xml:"subcat,omitempty"`
}

type capsSubcat struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// CapsConfig carries the configured knobs the capabilities document
// advertises.
type CapsConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// BuildCaps renders the capabilities document.
func BuildCaps(cfg CapsConfig) ([]byte, error) {
	doc := capsDoc{
		Server: capsServer{
			Version:   "1.0",
			Title:     feedTitle,
			Strapline: "Orionoid Torznab Indexer",
			URL:       feedLink,
		},
		Limits: capsLimits{
			Max:     cfg.MaxLimit,
			Default: cfg.DefaultLimit,
		},
		Registration: capsRegistration{
			Available: "yes",
			Open:      "yes",
		},
		Searching: capsSearching{
			Search:      capsSearch{Available: "yes", SupportedParams: "q,imdbid"},
			TVSearch:    capsSearch{Available: "yes", SupportedParams: "q,imdbid,tvdbid,season,ep"},
			MovieSearch: capsSearch{Available: "yes", SupportedParams: "q,imdbid,tmdbid"},
		},
		Categories: capsCategories{
			Categories: []capsCategory{
				{
					ID:   CategoryMovie,
					Name: "Movies",
					Subcats: []capsSubcat{
						{ID: CategoryMovieSD, Name: "Movies/SD"},
						{ID: CategoryMovieHD, Name: "Movies/HD"},
						{ID: CategoryMovieUHD, Name: "Movies/UHD"},
					},
				},
				{
					ID:   CategoryTV,
					Name: "TV",
					Subcats: []capsSubcat{
						{ID: CategoryTVSD, Name: "TV/SD"},
						{ID: CategoryTVHD, Name: "TV/HD"},
						{ID: CategoryTVUHD, Name: "TV/UHD"},
					},
				},
				{
					ID:   CategoryOther,
					Name: "Other",
				},
			},
		},
	}

	return marshal(doc)
}

type rssDoc struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	NewznabNS string     `xml:"xmlns:newznab,attr"`
	TorznabNS string     `xml:"xmlns:torznab,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string          `xml:"title"`
	Description string          `xml:"description"`
	Link        string          `xml:"link"`
	Response    newznabResponse `xml:"newznab:response"`
	Items       []rssItem       `xml:"item"`
}

type newznabResponse struct {
	Offset int `xml:"offset,attr"`
	Total  int `xml:"total,attr"`
}

type rssItem struct {
	Title     string     `xml:"title"`
	GUID      rssGUID    `xml:"guid"`
	Link      string     `xml:"link,omitempty"`
	Comments  string     `xml:"comments"`
	PubDate   string     `xml:"pubDate,omitempty"`
	Size      int64      `xml:"size"`
	Enclosure *enclosure `xml:"enclosure,omitempty"`
	Attrs     []attr     `xml:"torznab:attr"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type attr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// BuildSearchResponse renders a result feed. An empty result set still
// produces a valid channel with total 0.
func BuildSearchResponse(results []orionoid.NormalizedResult, offset int) ([]byte, error) {
	items := make([]rssItem, 0, len(results))
	for _, r := range results {
		items = append(items, buildItem(r))
	}

	doc := rssDoc{
		Version:   "2.0",
		NewznabNS: newznabNamespace,
		TorznabNS: torznabNamespace,
		Channel: rssChannel{
			Title:       feedTitle,
			Description: "Orionoid Torznab Feed",
			Link:        feedLink,
			Response:    newznabResponse{Offset: offset, Total: len(results)},
			Items:       items,
		},
	}

	return marshal(doc)
}

func buildItem(r orionoid.NormalizedResult) rssItem {
	item := rssItem{
		Title:    r.Title,
		GUID:     rssGUID{IsPermaLink: "false", Value: r.GUID},
		Link:     r.DownloadURL,
		Comments: feedLink,
		Size:     r.SizeBytes,
	}

	if !r.PublishDate.IsZero() {
		item.PubDate = r.PublishDate.UTC().Format(time.RFC1123Z)
	}

	if r.DownloadURL != "" {
		mime := "application/x-bittorrent"
		if r.Protocol == orionoid.ProtocolUsenet {
			mime = "application/x-nzb"
		}
		item.Enclosure = &enclosure{
			URL:    r.DownloadURL,
			Length: r.SizeBytes,
			Type:   mime,
		}
	}

	item.Attrs = append(item.Attrs,
		attr{Name: "category", Value: strconv.Itoa(CategoryID(r.Category, r.Quality))},
		attr{Name: "size", Value: strconv.FormatInt(r.SizeBytes, 10)},
	)

	if r.Protocol == orionoid.ProtocolTorrent {
		item.Attrs = append(item.Attrs,
			attr{Name: "seeders", Value: strconv.Itoa(r.Seeders)},
			attr{Name: "peers", Value: strconv.Itoa(r.Leechers)},
		)
		if r.InfoHash != "" {
			item.Attrs = append(item.Attrs, attr{Name: "infohash", Value: r.InfoHash})
		}
	}

	if r.IMDbID != "" {
		item.Attrs = append(item.Attrs, attr{Name: "imdbid", Value: r.IMDbID})
	}
	if r.TVDbID != "" {
		item.Attrs = append(item.Attrs, attr{Name: "tvdbid", Value: r.TVDbID})
	}
	if r.Season > 0 {
		item.Attrs = append(item.Attrs, attr{Name: "season", Value: strconv.Itoa(r.Season)})
	}
	if r.Episode > 0 {
		item.Attrs = append(item.Attrs, attr{Name: "episode", Value: strconv.Itoa(r.Episode)})
	}

	return item
}

type errorDoc struct {
	XMLName     xml.Name `xml:"error"`
	Code        int      `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

// Torznab/Newznab error codes used at the HTTP boundary.
const (
	ErrorCodeIncorrectCredentials = 100
	ErrorCodeMissingParameter     = 200
	ErrorCodeIncorrectParameter   = 201
	ErrorCodeUnknown              = 900
)

// BuildError renders an error document. It always returns well-formed XML;
// a marshal failure falls back to a static document.
func BuildError(code int, description string) []byte {
	out, err := marshal(errorDoc{Code: code, Description: description})
	if err != nil {
		return []byte(xml.Header + fmt.Sprintf(`<error code="%d" description="internal error"></error>`, ErrorCodeUnknown))
	}
	return out
}

func marshal(doc any) ([]byte, error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal torznab document: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
