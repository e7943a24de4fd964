// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionarr/orionarr/internal/indexer"
	"github.com/orionarr/orionarr/internal/orionoid"
)

const testAPIKey = "secret-key"

// upstreamStub fakes the Orionoid API with a fixed response per request.
type upstreamStub struct {
	calls   atomic.Int32
	status  int
	body    string
	handler http.HandlerFunc
}

func (u *upstreamStub) serve(w http.ResponseWriter, r *http.Request) {
	u.calls.Add(1)
	if u.handler != nil {
		u.handler(w, r)
		return
	}
	if u.status != 0 {
		w.WriteHeader(u.status)
	}
	io.WriteString(w, u.body)
}

const successBody = `{
	"result": {"status": "success"},
	"data": {
		"streams": [
			{
				"id": "stream-1",
				"links": ["magnet:?xt=urn:btih:deadbeef"],
				"file": {"name": "The.Matrix.1999.1080p.BluRay.x264", "size": 2147483648, "hash": "deadbeef"},
				"video": {"quality": "hd1080"},
				"meta": {"title": "The Matrix", "imdb": "0133093"},
				"stream": {"type": "torrent", "seeds": 42},
				"time": {"added": 1700000000}
			}
		]
	}
}`

func newTestRouter(t *testing.T, stub *upstreamStub, apiKey string) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(upstream.Close)

	client := orionoid.NewClient(orionoid.Config{
		AppKey:  "app",
		UserKey: "user",
		BaseURL: upstream.URL,
	})
	handler := NewTorznabHandler(
		indexer.NewTranslator(client),
		indexer.Limits{Default: 100, Max: 1000},
		apiKey,
	)

	r := chi.NewRouter()
	handler.Routes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, server *httptest.Server, path string) (int, string) {
	t.Helper()

	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

type errorXML struct {
	XMLName     xml.Name `xml:"error"`
	Code        int      `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

func parseError(t *testing.T, body string) errorXML {
	t.Helper()
	var doc errorXML
	require.NoError(t, xml.Unmarshal([]byte(body), &doc))
	return doc
}

func TestHandleCapsSkipsUpstream(t *testing.T) {
	t.Parallel()

	stub := &upstreamStub{body: successBody}
	server := newTestRouter(t, stub, "")

	status, body := get(t, server, "/api?t=caps")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<caps>")
	assert.Contains(t, body, "supportedParams")
	assert.Equal(t, int32(0), stub.calls.Load(), "caps must not touch upstream")
}

func TestHandleSearchSuccess(t *testing.T) {
	t.Parallel()

	server := newTestRouter(t, &upstreamStub{body: successBody}, "")

	status, body := get(t, server, "/api?t=movie&imdbid=tt0133093")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "The.Matrix.1999.1080p.BluRay.x264")
	assert.Contains(t, body, `name="seeders" value="42"`)
	assert.Contains(t, body, `name="category" value="2040"`)
}

func TestHandleSearchIndexerPath(t *testing.T) {
	t.Parallel()

	server := newTestRouter(t, &upstreamStub{body: successBody}, "")

	status, body := get(t, server, "/orionoid/api?t=movie&imdbid=tt0133093")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "stream-1")
}

func TestHandleEmptyResults(t *testing.T) {
	t.Parallel()

	empty := `{"result": {"status": "success"}, "data": {"streams": []}}`
	server := newTestRouter(t, &upstreamStub{body: empty}, "")

	status, body := get(t, server, "/api?t=movie&q=nothing")

	assert.Equal(t, http.StatusOK, status, "no results is still a success")
	assert.Contains(t, body, `total="0"`)
	assert.NotContains(t, body, "<item>")
}

func TestHandleMalformedRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		expectedCode int
	}{
		{"missing t", "/api?q=test", 200},
		{"missing selector", "/api?t=movie", 200},
		{"bad limit", "/api?t=search&q=x&limit=abc", 201},
		{"bad season", "/api?t=tvsearch&q=x&season=one", 201},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &upstreamStub{body: successBody}
			server := newTestRouter(t, stub, "")

			status, body := get(t, server, tt.path)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.expectedCode, parseError(t, body).Code)
			assert.Equal(t, int32(0), stub.calls.Load())
		})
	}
}

func TestHandleUnknownFunction(t *testing.T) {
	t.Parallel()

	server := newTestRouter(t, &upstreamStub{body: successBody}, "")

	status, body := get(t, server, "/api?t=music&q=test")

	assert.Equal(t, http.StatusOK, status, "unknown function is an error document, not an HTTP error")
	doc := parseError(t, body)
	assert.Equal(t, 201, doc.Code)
	assert.Contains(t, doc.Description, "music")
}

func TestHandleAPIKeyGate(t *testing.T) {
	t.Parallel()

	server := newTestRouter(t, &upstreamStub{body: successBody}, testAPIKey)

	status, body := get(t, server, "/api?t=movie&imdbid=tt0133093")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 100, parseError(t, body).Code)

	status, body = get(t, server, "/api?t=movie&imdbid=tt0133093&apikey=wrong")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 100, parseError(t, body).Code)

	status, _ = get(t, server, "/api?t=movie&imdbid=tt0133093&apikey="+testAPIKey)
	assert.Equal(t, http.StatusOK, status)

	status, _ = get(t, server, "/api?t=caps")
	assert.Equal(t, http.StatusOK, status, "caps is exempt from the key gate")
}

func TestHandleUpstreamFailure(t *testing.T) {
	t.Parallel()

	server := newTestRouter(t, &upstreamStub{status: http.StatusBadGateway}, "")

	status, body := get(t, server, "/api?t=movie&q=test")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, 900, parseError(t, body).Code)

	// A combined search with every branch failing reports unavailability.
	status, body = get(t, server, "/api?t=search&q=test")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, 900, parseError(t, body).Code)
}

func TestHandleUpstreamAuthFailure(t *testing.T) {
	t.Parallel()

	server := newTestRouter(t, &upstreamStub{status: http.StatusUnauthorized}, "")

	status, body := get(t, server, "/api?t=movie&q=test")

	assert.Equal(t, http.StatusBadGateway, status)
	doc := parseError(t, body)
	assert.Equal(t, 100, doc.Code)
	assert.Contains(t, strings.ToLower(doc.Description), "credentials")
}
