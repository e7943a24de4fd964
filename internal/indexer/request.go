// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package indexer translates Torznab search requests into upstream
// lookups and merges the answers into a single result set.
package indexer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// QueryType is the Torznab function selected via the t parameter.
type QueryType string

const (
	QueryCaps     QueryType = "caps"
	QuerySearch   QueryType = "search"
	QueryMovie    QueryType = "movie"
	QueryTVSearch QueryType = "tvsearch"
)

var (
	// ErrMalformedRequest marks requests that fail parameter validation.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrMissingParameter marks requests lacking a required parameter. It
	// wraps ErrMalformedRequest; handlers distinguish it to report the
	// missing-parameter Torznab code instead of incorrect-parameter.
	ErrMissingParameter = fmt.Errorf("%w: missing parameter", ErrMalformedRequest)

	// ErrUnknownQueryType marks an unrecognised t parameter. Unlike a
	// malformed request this maps to a Torznab error document on HTTP 200.
	ErrUnknownQueryType = errors.New("unknown query type")

	// ErrUpstreamUnavailable is returned when every upstream lookup for a
	// request failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Limits carries the configured result-count bounds into request parsing.
type Limits struct {
	Default int
	Max     int
}

// SearchRequest is a validated Torznab query.
type SearchRequest struct {
	Type QueryType

	Query  string
	IMDbID string
	TVDbID string
	TMDbID string

	Season  int
	Episode int

	Categories []int

	// Limit is always in [1, Limits.Max] after parsing.
	Limit  int
	Offset int
}

// ParseSearchRequest validates raw query parameters into a SearchRequest.
// Violations return an error wrapping ErrMalformedRequest; an unrecognised
// t value returns ErrUnknownQueryType.
func ParseSearchRequest(values url.Values, limits Limits) (SearchRequest, error) {
	req := SearchRequest{}

	t := strings.TrimSpace(values.Get("t"))
	if t == "" {
		return req, fmt.Errorf("%w: t", ErrMissingParameter)
	}

	switch QueryType(t) {
	case QueryCaps, QuerySearch, QueryMovie, QueryTVSearch:
		req.Type = QueryType(t)
	default:
		return req, fmt.Errorf("%w: %q", ErrUnknownQueryType, t)
	}

	if req.Type == QueryCaps {
		return req, nil
	}

	req.Query = strings.TrimSpace(values.Get("q"))
	req.IMDbID = strings.TrimSpace(values.Get("imdbid"))
	req.TVDbID = strings.TrimSpace(values.Get("tvdbid"))
	req.TMDbID = strings.TrimSpace(values.Get("tmdbid"))

	if req.IMDbID != "" && !validIMDbID(req.IMDbID) {
		return req, fmt.Errorf("%w: invalid imdbid %q", ErrMalformedRequest, req.IMDbID)
	}
	if req.TVDbID != "" && !allDigits(req.TVDbID) {
		return req, fmt.Errorf("%w: invalid tvdbid %q", ErrMalformedRequest, req.TVDbID)
	}
	if req.TMDbID != "" && !allDigits(req.TMDbID) {
		return req, fmt.Errorf("%w: invalid tmdbid %q", ErrMalformedRequest, req.TMDbID)
	}

	var err error
	if req.Season, err = optionalInt(values, "season"); err != nil {
		return req, err
	}
	if req.Episode, err = optionalInt(values, "ep"); err != nil {
		return req, err
	}

	if req.Categories, err = parseCategories(values.Get("cat")); err != nil {
		return req, err
	}

	// Unlike season or episode, a non-positive limit is not an error; it
	// falls back to the configured default.
	rawLimit := strings.TrimSpace(values.Get("limit"))
	limit := 0
	if rawLimit != "" {
		if limit, err = strconv.Atoi(rawLimit); err != nil {
			return req, fmt.Errorf("%w: invalid limit %q", ErrMalformedRequest, rawLimit)
		}
	}
	req.Limit = effectiveLimit(limit, limits)

	if req.Offset, err = optionalInt(values, "offset"); err != nil {
		return req, err
	}

	if err := requireSelector(req); err != nil {
		return req, err
	}

	return req, nil
}

// requireSelector enforces that each search type carries at least one
// usable lookup key. Season and episode alone cannot drive a lookup.
func requireSelector(req SearchRequest) error {
	switch req.Type {
	case QueryMovie:
		if req.Query == "" && req.IMDbID == "" && req.TMDbID == "" {
			return fmt.Errorf("%w: movie search requires q, imdbid or tmdbid", ErrMissingParameter)
		}
	case QueryTVSearch:
		if req.Query == "" && req.TVDbID == "" && req.IMDbID == "" {
			return fmt.Errorf("%w: tv search requires q, tvdbid or imdbid", ErrMissingParameter)
		}
	case QuerySearch:
		if req.Query == "" && req.IMDbID == "" {
			return fmt.Errorf("%w: search requires q or imdbid", ErrMissingParameter)
		}
	}
	return nil
}

// effectiveLimit clamps the requested count into the configured bounds.
func effectiveLimit(requested int, limits Limits) int {
	if requested <= 0 {
		return limits.Default
	}
	if requested > limits.Max {
		return limits.Max
	}
	return requested
}

func optionalInt(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrMalformedRequest, key, raw)
	}
	return n, nil
}

func parseCategories(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	cats := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid cat %q", ErrMalformedRequest, raw)
		}
		cats = append(cats, n)
	}
	return cats, nil
}

func validIMDbID(id string) bool {
	return allDigits(strings.TrimPrefix(id, "tt"))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
