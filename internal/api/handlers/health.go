// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/orionarr/orionarr/internal/health"
)

type HealthHandler struct {
	reporter *health.Reporter
}

func NewHealthHandler(reporter *health.Reporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// Handle reports service health. force=true bypasses the probe cache.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force")
	status := h.reporter.Check(r.Context(), force == "1" || force == "true")

	code := http.StatusOK
	if status.Status == health.StatusDown {
		code = http.StatusServiceUnavailable
	}
	RespondJSON(w, code, status)
}
