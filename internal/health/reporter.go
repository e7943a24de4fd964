// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package health probes the upstream API and summarizes service health.
package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/orionarr/orionarr/internal/orionoid"
)

// Status is the overall health verdict.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Account carries upstream account details surfaced on healthy probes.
type Account struct {
	Email             string `json:"email"`
	Premium           bool   `json:"premium"`
	DailyRequestsLeft int64  `json:"dailyRequestsLeft"`
}

// HealthStatus is the JSON shape of the health endpoint.
type HealthStatus struct {
	Status            Status    `json:"status"`
	UpstreamReachable bool      `json:"upstreamReachable"`
	Authenticated     bool      `json:"authenticated"`
	UptimeSeconds     int64     `json:"uptimeSeconds"`
	LastError         string    `json:"lastError,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Account           *Account  `json:"account,omitempty"`
}

// Prober is the upstream credential check the reporter depends on.
type Prober interface {
	Probe(ctx context.Context) (*orionoid.UserInfo, error)
}

// Reporter caches upstream probe outcomes for a freshness horizon so health
// polling does not burn the account's daily request budget.
type Reporter struct {
	prober  Prober
	ttl     time.Duration
	started time.Time
	logger  zerolog.Logger

	group singleflight.Group

	mu       sync.Mutex
	cached   *HealthStatus
	cachedAt time.Time
}

// NewReporter creates a reporter with the given cache TTL in seconds.
// A TTL of zero disables caching so every check probes upstream.
func NewReporter(prober Prober, ttlSeconds int) *Reporter {
	if ttlSeconds < 0 {
		ttlSeconds = 30
	}
	return &Reporter{
		prober:  prober,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		started: time.Now(),
		logger:  log.Logger.With().Str("module", "health").Logger(),
	}
}

// Check returns the current health. Non-forced checks answer from cache
// while it is fresh; force blocks on a live probe. Concurrent probes are
// collapsed into one upstream call.
func (r *Reporter) Check(ctx context.Context, force bool) HealthStatus {
	if !force {
		if cached := r.fresh(); cached != nil {
			return r.stamp(*cached)
		}
	}

	v, _, _ := r.group.Do("probe", func() (interface{}, error) {
		status := r.probe(ctx)

		r.mu.Lock()
		r.cached = &status
		r.cachedAt = time.Now()
		r.mu.Unlock()

		return status, nil
	})

	return r.stamp(v.(HealthStatus))
}

func (r *Reporter) fresh() *HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ttl == 0 || r.cached == nil || time.Since(r.cachedAt) >= r.ttl {
		return nil
	}
	status := *r.cached
	return &status
}

// stamp refreshes the per-response fields on a possibly cached status.
func (r *Reporter) stamp(status HealthStatus) HealthStatus {
	status.UptimeSeconds = int64(time.Since(r.started).Seconds())
	status.Timestamp = time.Now().UTC()
	return status
}

func (r *Reporter) probe(ctx context.Context) HealthStatus {
	info, err := r.prober.Probe(ctx)
	if err == nil {
		return HealthStatus{
			Status:            StatusOK,
			UpstreamReachable: true,
			Authenticated:     true,
			Account: &Account{
				Email:             info.Email,
				Premium:           info.Premium,
				DailyRequestsLeft: info.DailyRequestsLeft,
			},
		}
	}

	var authErr *orionoid.AuthError
	if errors.As(err, &authErr) {
		r.logger.Warn().Err(err).Msg("Upstream rejected credentials")
		return HealthStatus{
			Status:            StatusDegraded,
			UpstreamReachable: true,
			Authenticated:     false,
			LastError:         err.Error(),
		}
	}

	r.logger.Error().Err(err).Msg("Upstream probe failed")
	return HealthStatus{
		Status:            StatusDown,
		UpstreamReachable: false,
		Authenticated:     false,
		LastError:         err.Error(),
	}
}
