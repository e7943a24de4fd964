// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package orionoid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		AppKey:         "app-key",
		UserKey:        "user-key",
		BaseURL:        serverURL,
		TimeoutSeconds: 5,
	})
}

func TestClientSearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "stream", r.FormValue("mode"))
		assert.Equal(t, "retrieve", r.FormValue("action"))
		assert.Equal(t, "movie", r.FormValue("type"))
		assert.Equal(t, "app-key", r.FormValue("keyapp"))
		assert.Equal(t, "user-key", r.FormValue("keyuser"))
		assert.Equal(t, "0133093", r.FormValue("idimdb"), "imdb id should have tt prefix stripped")
		assert.Equal(t, "50", r.FormValue("limitcount"))
		assert.Equal(t, "1", r.FormValue("protocoltorrent"))
		assert.Equal(t, "1", r.FormValue("protocolnzb"))
		assert.Equal(t, "0", r.FormValue("debridlookup"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": {"status": "success"},
			"data": {
				"count": {"total": 1},
				"streams": [
					{
						"id": "abc123",
						"links": ["magnet:?xt=urn:btih:deadbeef"],
						"file": {"name": "The.Matrix.1999.1080p.BluRay.x264", "size": 2147483648},
						"video": {"quality": "hd1080", "codec": "h264"},
						"meta": {"title": "The Matrix"},
						"stream": {"type": "torrent", "seeds": 42},
						"time": {"added": 1700000000}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	streams, err := client.Search(context.Background(), SearchParams{
		Flavor: FlavorMovie,
		IMDbID: "tt0133093",
		Limit:  50,
	})

	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "abc123", streams[0].ID)
	assert.Equal(t, int64(2147483648), streams[0].File.Size)
	assert.Equal(t, 42, streams[0].Stream.Seeds)
}

func TestClientSearchShowParams(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "show", r.FormValue("type"))
		assert.Equal(t, "1", r.FormValue("numberseason"))
		assert.Equal(t, "2", r.FormValue("numberepisode"))

		w.Write([]byte(`{"result": {"status": "success"}, "data": {"streams": []}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	streams, err := client.Search(context.Background(), SearchParams{
		Flavor:  FlavorShow,
		Query:   "Breaking Bad",
		Season:  1,
		Episode: 2,
	})

	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestClientRetriesTransientOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"result": {"status": "success"}, "data": {"streams": []}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Search(context.Background(), SearchParams{Flavor: FlavorMovie, Query: "test"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientTransientExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Search(context.Background(), SearchParams{Flavor: FlavorMovie, Query: "test"})

	require.Error(t, err)

	var transientErr *TransientError
	assert.ErrorAs(t, err, &transientErr)
	assert.Equal(t, int32(2), calls.Load(), "a transient failure is retried exactly once")
}

func TestClientDoesNotRetryAuthFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Search(context.Background(), SearchParams{Flavor: FlavorMovie, Query: "test"})

	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "auth failures must not be retried")
}

func TestClientEnvelopeAuthFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"result": {"status": "error", "type": "userkey", "message": "User key invalid"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Search(context.Background(), SearchParams{Flavor: FlavorMovie, Query: "test"})

	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientEnvelopeAPIError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"result": {"status": "error", "type": "querylimit", "message": "Daily limit reached"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Search(context.Background(), SearchParams{Flavor: FlavorMovie, Query: "test"})

	require.Error(t, err)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "querylimit", apiErr.Type)
	assert.Equal(t, int32(1), calls.Load(), "api-level errors on 2xx must not be retried")
}

func TestClientProbe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user", r.FormValue("mode"))
		assert.Equal(t, "retrieve", r.FormValue("action"))

		w.Write([]byte(`{
			"result": {"status": "success"},
			"data": {
				"email": "user@example.com",
				"subscription": {"package": {"premium": true}},
				"requests": {"streams": {"daily": {"remaining": 870}}}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	info, err := client.Probe(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "user@example.com", info.Email)
	assert.True(t, info.Premium)
	assert.Equal(t, int64(870), info.DailyRequestsLeft)
}

func TestClientProbeAuthFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Probe(context.Background())

	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestClientContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"status": "success"}, "data": {"streams": []}}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.Search(ctx, SearchParams{Flavor: FlavorMovie, Query: "test"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
