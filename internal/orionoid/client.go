// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package orionoid implements the client for the Orionoid stream-search
// API. All calls are authenticated form-encoded POSTs against a single
// endpoint; the mode/action parameters select the operation.
package orionoid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.orionoid.com"

// maxResponseBytes caps how much of an upstream body is read. Stream
// listings for popular titles stay well under this.
const maxResponseBytes int64 = 32 << 20

// Config holds the client construction parameters.
type Config struct {
	AppKey    string
	UserKey   string
	BaseURL   string
	UserAgent string
	// TimeoutSeconds bounds each HTTP request. Defaults to 30.
	TimeoutSeconds int
}

// Client issues authenticated calls against the Orionoid API.
type Client struct {
	appKey     string
	userKey    string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Orionoid API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}

	return &Client{
		appKey:    cfg.AppKey,
		userKey:   cfg.UserKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: log.Logger.With().Str("module", "orionoid").Logger(),
	}
}

// Search retrieves streams for the given parameters.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Stream, error) {
	form := url.Values{}
	form.Set("mode", "stream")
	form.Set("action", "retrieve")
	form.Set("type", string(params.Flavor))
	form.Set("sort", "best")

	if params.Limit > 0 {
		form.Set("limitcount", strconv.Itoa(params.Limit))
	}
	if params.Query != "" {
		form.Set("query", params.Query)
	}
	if id := strings.TrimPrefix(params.IMDbID, "tt"); params.IMDbID != "" {
		form.Set("idimdb", id)
	}
	if params.TVDbID != "" {
		form.Set("idtvdb", params.TVDbID)
	}
	if params.TMDbID != "" {
		form.Set("idtmdb", params.TMDbID)
	}
	if params.Flavor == FlavorShow && params.Season > 0 {
		form.Set("numberseason", strconv.Itoa(params.Season))
		if params.Episode > 0 {
			form.Set("numberepisode", strconv.Itoa(params.Episode))
		}
	}

	// Both protocols are requested; debrid lookups are skipped to conserve
	// the account's daily request budget.
	form.Set("protocoltorrent", "1")
	form.Set("protocolnzb", "1")
	form.Set("debridlookup", "0")

	body, err := c.request(ctx, form)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode orionoid search response: %w", err)
	}

	if resp.Result.Status != "success" {
		if isAuthFailure(resp.Result) {
			return nil, &AuthError{Message: resp.Result.Message}
		}
		return nil, &APIError{Type: resp.Result.Type, Message: resp.Result.Message}
	}

	c.logger.Debug().
		Str("flavor", string(params.Flavor)).
		Str("query", params.Query).
		Int("streams", len(resp.Data.Streams)).
		Msg("Orionoid search completed")

	return resp.Data.Streams, nil
}

// Probe verifies connectivity and credentials via the user retrieval
// endpoint and returns the account summary on success.
func (c *Client) Probe(ctx context.Context) (*UserInfo, error) {
	form := url.Values{}
	form.Set("mode", "user")
	form.Set("action", "retrieve")

	body, err := c.request(ctx, form)
	if err != nil {
		return nil, err
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode orionoid user response: %w", err)
	}

	if resp.Result.Status != "success" {
		if isAuthFailure(resp.Result) {
			return nil, &AuthError{Message: resp.Result.Message}
		}
		return nil, &APIError{Type: resp.Result.Type, Message: resp.Result.Message}
	}

	return &UserInfo{
		Email:             resp.Data.Email,
		Premium:           resp.Data.Subscription.Package.Premium,
		DailyRequestsLeft: resp.Data.Requests.Streams.Daily.Remaining,
	}, nil
}

// request posts the form to the API with credentials attached. Transient
// failures (timeouts, connection errors, non-2xx statuses) are retried
// exactly once with no backoff; authentication failures are never retried.
func (c *Client) request(ctx context.Context, form url.Values) ([]byte, error) {
	form.Set("keyapp", c.appKey)
	form.Set("keyuser", c.userKey)

	var body []byte
	err := retry.Do(
		func() error {
			var err error
			body, err = c.doOnce(ctx, form)
			return err
		},
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if _, ok := err.(*TransientError); ok {
				return ctx.Err() == nil
			}
			return false
		}),
	)
	return body, err
}

func (c *Client) doOnce(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build orionoid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TransientError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("read orionoid response: %w", err)}
	}

	return body, nil
}
