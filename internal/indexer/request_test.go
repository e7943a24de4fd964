// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{Default: 100, Max: 1000}

func TestParseSearchRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		expected SearchRequest
		wantErr  error
	}{
		{
			name:  "caps ignores everything else",
			query: "t=caps&q=ignored&limit=bogus",
			expected: SearchRequest{
				Type: QueryCaps,
			},
		},
		{
			name:  "free text search",
			query: "t=search&q=the+matrix",
			expected: SearchRequest{
				Type:  QuerySearch,
				Query: "the matrix",
				Limit: 100,
			},
		},
		{
			name:  "movie by imdb id",
			query: "t=movie&imdbid=tt0133093&limit=50",
			expected: SearchRequest{
				Type:   QueryMovie,
				IMDbID: "tt0133093",
				Limit:  50,
			},
		},
		{
			name:  "movie by tmdb id",
			query: "t=movie&tmdbid=603",
			expected: SearchRequest{
				Type:   QueryMovie,
				TMDbID: "603",
				Limit:  100,
			},
		},
		{
			name:  "tv search with season and episode",
			query: "t=tvsearch&tvdbid=81189&season=1&ep=2",
			expected: SearchRequest{
				Type:    QueryTVSearch,
				TVDbID:  "81189",
				Season:  1,
				Episode: 2,
				Limit:   100,
			},
		},
		{
			name:  "search with categories",
			query: "t=search&q=test&cat=5030,5040",
			expected: SearchRequest{
				Type:       QuerySearch,
				Query:      "test",
				Categories: []int{5030, 5040},
				Limit:      100,
			},
		},
		{
			name:  "offset",
			query: "t=search&q=test&offset=20",
			expected: SearchRequest{
				Type:   QuerySearch,
				Query:  "test",
				Offset: 20,
				Limit:  100,
			},
		},
		{
			name:    "missing t",
			query:   "q=test",
			wantErr: ErrMissingParameter,
		},
		{
			name:    "unknown t",
			query:   "t=music&q=test",
			wantErr: ErrUnknownQueryType,
		},
		{
			name:    "movie without selector",
			query:   "t=movie&season=1",
			wantErr: ErrMissingParameter,
		},
		{
			name:    "tvsearch without selector",
			query:   "t=tvsearch&season=1&ep=2",
			wantErr: ErrMissingParameter,
		},
		{
			name:    "search without selector",
			query:   "t=search",
			wantErr: ErrMissingParameter,
		},
		{
			name:    "non-numeric season",
			query:   "t=tvsearch&q=test&season=one",
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "non-numeric episode",
			query:   "t=tvsearch&q=test&ep=x",
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "non-numeric limit",
			query:   "t=search&q=test&limit=abc",
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "invalid imdb id",
			query:   "t=movie&imdbid=notanid",
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "invalid tvdb id",
			query:   "t=tvsearch&tvdbid=abc",
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "invalid category list",
			query:   "t=search&q=test&cat=movies",
			wantErr: ErrMalformedRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			req, err := ParseSearchRequest(values, testLimits)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, req)
		})
	}
}

func TestMissingParameterWrapsMalformed(t *testing.T) {
	t.Parallel()

	values := url.Values{"t": {"movie"}}
	_, err := ParseSearchRequest(values, testLimits)

	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.ErrorIs(t, err, ErrMalformedRequest, "missing parameters are a kind of malformed request")
}

func TestParseSearchRequestLimitBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rawLimit string
		expected int
	}{
		{"absent uses default", "", 100},
		{"zero uses default", "0", 100},
		{"negative uses default", "-5", 100},
		{"within bounds kept", "250", 250},
		{"above max clamped", "5000", 1000},
		{"max kept", "1000", 1000},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			values := url.Values{"t": {"search"}, "q": {"test"}}
			if tt.rawLimit != "" {
				values.Set("limit", tt.rawLimit)
			}

			req, err := ParseSearchRequest(values, testLimits)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Limit)
		})
	}
}
