// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import "net/http"

type RootHandler struct {
	version string
}

func NewRootHandler(version string) *RootHandler {
	return &RootHandler{version: version}
}

// Handle summarizes the service and its endpoints for anyone poking the
// root URL.
func (h *RootHandler) Handle(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"name":        "orionarr",
		"description": "Torznab indexer bridge for the Orionoid API",
		"version":     h.version,
		"endpoints": map[string]string{
			"torznab": "/api?t=caps",
			"health":  "/health",
		},
	})
}
